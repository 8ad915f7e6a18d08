// Package calculator implements the tick-crossing swap simulator for CL pool
// snapshots. Quotes are pure: the input snapshot is never mutated and every
// quote returns a fresh post-trade snapshot.
package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/pools/clpool"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator/liquiditymath"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator/swapmath"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator/tickbitmap"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator/tickmath"
)

var (
	// ErrNoTickList means the pool snapshot was never densified. Quoting a
	// pool without its tick list is a caller contract violation.
	ErrNoTickList = errors.New("pool has no valid tick list")
	// ErrInvalidPriceLimit means the supplied price limit is on the wrong
	// side of the current price.
	ErrInvalidPriceLimit = errors.New("price limit on wrong side of current price")
	// ErrInsufficientLiquidity means an exact-output quote exhausted the
	// pool's liquidity before satisfying the requested output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for requested output")
	// ErrCurrencyMismatch means the traded currency is not one of the pool's
	// pair.
	ErrCurrencyMismatch = errors.New("currency not in pool")
	// ErrInvalidAmount means the trade amount is nil or non-positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Result is a successful quote: the counterpart amount and the post-trade
// snapshot.
type Result struct {
	Amount *big.Int
	Pool   *clpool.Pool
}

// swapState carries the loop state plus every temporary needed by one
// simulation, pooled to keep the hot loop allocation-free.
type swapState struct {
	amountSpecifiedRemaining *big.Int
	amountCalculated         *big.Int
	sqrtPriceX96             *big.Int
	tick                     int64
	liquidity                *big.Int

	sqrtPriceStartX96 *big.Int
	sqrtPriceNextX96  *big.Int
	targetPrice       *big.Int
	stepAmountIn      *big.Int
	stepAmountOut     *big.Int
	stepFeeAmount     *big.Int
	tempAmount        *big.Int
	liquidityNet      *big.Int
}

var swapStatePool = sync.Pool{
	New: func() any {
		return &swapState{
			amountSpecifiedRemaining: new(big.Int),
			amountCalculated:         new(big.Int),
			sqrtPriceX96:             new(big.Int),
			liquidity:                new(big.Int),
			sqrtPriceStartX96:        new(big.Int),
			sqrtPriceNextX96:         new(big.Int),
			targetPrice:              new(big.Int),
			stepAmountIn:             new(big.Int),
			stepAmountOut:            new(big.Int),
			stepFeeAmount:            new(big.Int),
			tempAmount:               new(big.Int),
			liquidityNet:             new(big.Int),
		}
	},
}

// defaultPriceLimit is the protocol bound, exclusive of the boundary by one
// unit, in the direction of travel.
func defaultPriceLimit(zeroForOne bool) *big.Int {
	if zeroForOne {
		return new(big.Int).Add(tickmath.MinSqrtRatio, big.NewInt(1))
	}
	return new(big.Int).Sub(tickmath.MaxSqrtRatio, big.NewInt(1))
}

func checkPriceLimit(current, limit *big.Int, zeroForOne bool) error {
	if zeroForOne {
		if limit.Cmp(current) >= 0 || limit.Cmp(tickmath.MinSqrtRatio) < 0 {
			return ErrInvalidPriceLimit
		}
		return nil
	}
	if limit.Cmp(current) <= 0 || limit.Cmp(tickmath.MaxSqrtRatio) > 0 {
		return ErrInvalidPriceLimit
	}
	return nil
}

// swap drives the tick-crossing loop. The specified amount is positive for
// exact-input, negative for exact-output.
func swap(state *swapState, pool *clpool.Pool, sqrtPriceLimitX96 *big.Int, zeroForOne bool) error {
	exactInput := state.amountSpecifiedRemaining.Sign() > 0

	for state.amountSpecifiedRemaining.Sign() != 0 && state.sqrtPriceX96.Cmp(sqrtPriceLimitX96) != 0 {
		state.sqrtPriceStartX96.Set(state.sqrtPriceX96)

		tickNext, initialized := tickbitmap.NextInitializedTick(pool.Ticks, state.tick, zeroForOne)
		if !initialized {
			// No liquidity boundary left in this direction; the loop ends
			// with whatever was accumulated so far.
			break
		}
		if tickNext < tickmath.MinTick {
			tickNext = tickmath.MinTick
		} else if tickNext > tickmath.MaxTick {
			tickNext = tickmath.MaxTick
		}

		if err := tickmath.GetSqrtRatioAtTick(state.sqrtPriceNextX96, tickNext); err != nil {
			return err
		}

		// The step targets whichever comes first in the direction of travel:
		// the next initialized tick or the price limit.
		if (zeroForOne && state.sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) < 0) ||
			(!zeroForOne && state.sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) > 0) {
			state.targetPrice.Set(sqrtPriceLimitX96)
		} else {
			state.targetPrice.Set(state.sqrtPriceNextX96)
		}

		err := swapmath.ComputeSwapStep(
			state.sqrtPriceX96, state.stepAmountIn, state.stepAmountOut, state.stepFeeAmount,
			state.sqrtPriceStartX96,
			state.targetPrice,
			state.liquidity,
			state.amountSpecifiedRemaining,
			state.tempAmount.SetUint64(uint64(pool.Key.Fee)),
		)
		if err != nil {
			// Zero liquidity at the current price; nothing more to swap here.
			break
		}

		if exactInput {
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, state.tempAmount.Add(state.stepAmountIn, state.stepFeeAmount))
			state.amountCalculated.Add(state.amountCalculated, state.stepAmountOut)
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, state.stepAmountOut)
			state.amountCalculated.Add(state.amountCalculated, state.tempAmount.Add(state.stepAmountIn, state.stepFeeAmount))
		}

		if state.sqrtPriceX96.Cmp(state.sqrtPriceNextX96) == 0 {
			// Landed exactly on the boundary: cross it, applying the tick's
			// net liquidity (negated when moving down in price).
			if t, ok := pool.TickAt(tickNext); ok {
				state.liquidityNet.Set(t.LiquidityNet)
				if zeroForOne {
					state.liquidityNet.Neg(state.liquidityNet)
				}
				if err := liquiditymath.AddDelta(state.liquidity, state.liquidity, state.liquidityNet); err != nil {
					if errors.Is(err, liquiditymath.ErrLiquidityUnderflow) {
						break
					}
					return err
				}
			}
			if zeroForOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if state.sqrtPriceX96.Cmp(state.sqrtPriceStartX96) != 0 {
			// Partial step: derive the tick from the price reached.
			tick, err := tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return err
			}
			state.tick = tick
		}
	}
	return nil
}

func prepare(pool *clpool.Pool, c pools.Currency, zeroForOneIfC0 bool) (bool, error) {
	if len(pool.Ticks) == 0 {
		return false, ErrNoTickList
	}
	// Native-wrapped forms are interchangeable: a pool keyed on the native
	// asset quotes trades specified in the wrapped token and vice versa.
	switch {
	case c.Equivalent(pool.Key.Currency0):
		return zeroForOneIfC0, nil
	case c.Equivalent(pool.Key.Currency1):
		return !zeroForOneIfC0, nil
	}
	return false, fmt.Errorf("%w: %s not in (%s, %s)", ErrCurrencyMismatch, c, pool.Key.Currency0, pool.Key.Currency1)
}

// ExactIn quotes the output for a fixed input amount. A nil Result with a nil
// error is the soft "no quote" outcome: the trade cannot move the price or
// would produce nothing.
func ExactIn(pool *clpool.Pool, amountIn pools.CurrencyAmount, sqrtPriceLimitX96 *big.Int) (*Result, error) {
	if amountIn.Raw == nil || amountIn.Raw.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	zeroForOne, err := prepare(pool, amountIn.Currency, true)
	if err != nil {
		return nil, err
	}
	if sqrtPriceLimitX96 == nil {
		sqrtPriceLimitX96 = defaultPriceLimit(zeroForOne)
	}
	if err := checkPriceLimit(pool.SqrtRatioX96, sqrtPriceLimitX96, zeroForOne); err != nil {
		return nil, err
	}

	state := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(state)

	state.amountSpecifiedRemaining.Set(amountIn.Raw)
	state.amountCalculated.SetInt64(0)
	state.sqrtPriceX96.Set(pool.SqrtRatioX96)
	state.tick = pool.Tick
	state.liquidity.Set(pool.Liquidity)

	if err := swap(state, pool, sqrtPriceLimitX96, zeroForOne); err != nil {
		return nil, err
	}

	if state.amountCalculated.Sign() <= 0 {
		return nil, nil
	}
	return &Result{
		Amount: new(big.Int).Set(state.amountCalculated),
		Pool: pool.WithState(
			new(big.Int).Set(state.liquidity),
			new(big.Int).Set(state.sqrtPriceX96),
			state.tick,
		),
	}, nil
}

// ExactOut quotes the minimal input for a fixed output amount (given as a
// positive amount of the output currency). Liquidity running out before the
// output is fully satisfied is fatal, unlike the soft no-quote case.
func ExactOut(pool *clpool.Pool, amountOut pools.CurrencyAmount, sqrtPriceLimitX96 *big.Int) (*Result, error) {
	if amountOut.Raw == nil || amountOut.Raw.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	// Receiving currency1 means currency0 goes in.
	zeroForOne, err := prepare(pool, amountOut.Currency, false)
	if err != nil {
		return nil, err
	}
	if sqrtPriceLimitX96 == nil {
		sqrtPriceLimitX96 = defaultPriceLimit(zeroForOne)
	}
	if err := checkPriceLimit(pool.SqrtRatioX96, sqrtPriceLimitX96, zeroForOne); err != nil {
		return nil, err
	}

	state := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(state)

	// Negative specified amount selects exact-output semantics in the loop.
	state.amountSpecifiedRemaining.Neg(amountOut.Raw)
	state.amountCalculated.SetInt64(0)
	state.sqrtPriceX96.Set(pool.SqrtRatioX96)
	state.tick = pool.Tick
	state.liquidity.Set(pool.Liquidity)

	if err := swap(state, pool, sqrtPriceLimitX96, zeroForOne); err != nil {
		return nil, err
	}

	if state.amountSpecifiedRemaining.Sign() != 0 {
		return nil, ErrInsufficientLiquidity
	}
	if state.amountCalculated.Sign() <= 0 {
		return nil, nil
	}
	return &Result{
		Amount: new(big.Int).Set(state.amountCalculated),
		Pool: pool.WithState(
			new(big.Int).Set(state.liquidity),
			new(big.Int).Set(state.sqrtPriceX96),
			state.tick,
		),
	}, nil
}

// InitializedTicksCrossed counts the initialized ticks strictly between the
// pre- and post-trade ticks, the input to per-tick gas pricing.
func InitializedTicksCrossed(ticks []clpool.Tick, tickBefore, tickAfter int64) int {
	lo, hi := tickBefore, tickAfter
	if lo > hi {
		lo, hi = hi, lo
	}
	// Ticks are sorted; count indexes in (lo, hi].
	first := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > lo })
	last := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > hi })
	return last - first
}
