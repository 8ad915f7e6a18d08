package binpool

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/pools/binpool/binmath"
)

var (
	// ErrNoBinReserves means the pool snapshot was never densified. Quoting a
	// pool without bin reserves is a caller contract violation.
	ErrNoBinReserves = errors.New("pool has no bin reserves")
	// ErrInsufficientLiquidity means an exact-output quote ran out of known
	// bins before satisfying the requested output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for requested output")
	// ErrCurrencyMismatch means the traded currency is not one of the pool's
	// pair.
	ErrCurrencyMismatch = errors.New("currency not in pool")
	// ErrInvalidAmount means the trade amount is nil or non-positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Result is a successful quote: the counterpart amount and the post-trade
// snapshot with debited bin reserves and the final active bin.
type Result struct {
	Amount *big.Int
	Pool   *Pool
}

func (p *Pool) direction(c pools.Currency, inputIfC0 bool) (swapForY bool, err error) {
	// Native-wrapped forms are interchangeable, matching the CL engine.
	switch {
	case c.Equivalent(p.Key.Currency0):
		return inputIfC0, nil
	case c.Equivalent(p.Key.Currency1):
		return !inputIfC0, nil
	}
	return false, fmt.Errorf("%w: %s not in (%s, %s)", ErrCurrencyMismatch, c, p.Key.Currency0, p.Key.Currency1)
}

// debit applies one bin's swap amounts to a working copy of the reserve map.
// The net input stays in the bin; the output leaves it. Fully drained sides
// keep the bin present as long as the other side is non-zero.
func debit(bins map[int64]Reserves, id int64, amounts binmath.SwapAmounts, swapForY bool) {
	r := bins[id]
	net := new(big.Int).Sub(amounts.AmountInWithFees, amounts.Fee)
	var x, y *big.Int
	if swapForY {
		x = add(r.ReserveX, net)
		y = sub(r.ReserveY, amounts.AmountOut)
	} else {
		x = sub(r.ReserveX, amounts.AmountOut)
		y = add(r.ReserveY, net)
	}
	if x.Sign() == 0 && y.Sign() == 0 {
		delete(bins, id)
		return
	}
	bins[id] = Reserves{ReserveX: x, ReserveY: y}
}

func add(a, b *big.Int) *big.Int {
	if a == nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int).Add(a, b)
}

func sub(a, b *big.Int) *big.Int {
	if a == nil {
		return new(big.Int).Neg(b)
	}
	return new(big.Int).Sub(a, b)
}

func zero(v *big.Int) bool { return v == nil || v.Sign() == 0 }

// outReserve returns the output-side reserve of a bin for the direction.
func outReserve(r Reserves, swapForY bool) *big.Int {
	if swapForY {
		return r.ReserveY
	}
	return r.ReserveX
}

// ExactIn quotes the output for a fixed input amount by walking bins from the
// active bin in the direction of travel. A nil Result with nil error is the
// soft "no quote" outcome.
func (p *Pool) ExactIn(amountIn pools.CurrencyAmount) (*Result, error) {
	if amountIn.Raw == nil || amountIn.Raw.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(p.Bins) == 0 {
		return nil, ErrNoBinReserves
	}
	swapForY, err := p.direction(amountIn.Currency, true)
	if err != nil {
		return nil, err
	}

	bins := cloneBins(p.Bins)
	remaining := new(big.Int).Set(amountIn.Raw)
	out := new(big.Int)
	id := p.ActiveID

	for remaining.Sign() > 0 {
		r, known := bins[id]
		if known && !zero(outReserve(r, swapForY)) {
			price, err := binmath.PriceFromID(id, p.BinStep())
			if err != nil {
				return nil, err
			}
			amounts := binmath.GetSwapAmountsIn(orZero(r.ReserveX), orZero(r.ReserveY), remaining, price, p.Key.Fee, swapForY)
			if amounts.AmountOut.Sign() > 0 {
				remaining.Sub(remaining, amounts.AmountInWithFees)
				out.Add(out, amounts.AmountOut)
				debit(bins, id, amounts, swapForY)
			}
		}
		if remaining.Sign() == 0 {
			break
		}
		// Move to the adjacent bin; selling X pushes the price (and id) down.
		nextID := id + 1
		if swapForY {
			nextID = id - 1
		}
		if _, known := bins[nextID]; !known {
			// Past the densified window or out of liquidity.
			break
		}
		id = nextID
	}

	if out.Sign() <= 0 {
		return nil, nil
	}
	return &Result{Amount: out, Pool: p.withState(id, bins)}, nil
}

// ExactOut quotes the gross input required to receive a fixed output amount.
// Running out of known bins before the output is satisfied is fatal.
func (p *Pool) ExactOut(amountOut pools.CurrencyAmount) (*Result, error) {
	if amountOut.Raw == nil || amountOut.Raw.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(p.Bins) == 0 {
		return nil, ErrNoBinReserves
	}
	// Receiving currency1 means currency0 goes in.
	swapForY, err := p.direction(amountOut.Currency, false)
	if err != nil {
		return nil, err
	}

	bins := cloneBins(p.Bins)
	remainingOut := new(big.Int).Set(amountOut.Raw)
	in := new(big.Int)
	id := p.ActiveID

	for remainingOut.Sign() > 0 {
		r, known := bins[id]
		if known && !zero(outReserve(r, swapForY)) {
			price, err := binmath.PriceFromID(id, p.BinStep())
			if err != nil {
				return nil, err
			}
			amounts := binmath.GetSwapAmountsOut(orZero(r.ReserveX), orZero(r.ReserveY), remainingOut, price, p.Key.Fee, swapForY)
			if amounts.AmountOut.Sign() > 0 {
				remainingOut.Sub(remainingOut, amounts.AmountOut)
				in.Add(in, amounts.AmountInWithFees)
				debit(bins, id, amounts, swapForY)
			}
		}
		if remainingOut.Sign() == 0 {
			break
		}
		nextID := id + 1
		if swapForY {
			nextID = id - 1
		}
		if _, known := bins[nextID]; !known {
			break
		}
		id = nextID
	}

	if remainingOut.Sign() != 0 {
		return nil, ErrInsufficientLiquidity
	}
	if in.Sign() <= 0 {
		return nil, nil
	}
	return &Result{Amount: in, Pool: p.withState(id, bins)}, nil
}

func cloneBins(bins map[int64]Reserves) map[int64]Reserves {
	out := make(map[int64]Reserves, len(bins))
	for id, r := range bins {
		out[id] = Reserves{ReserveX: orZero(r.ReserveX), ReserveY: orZero(r.ReserveY)}
	}
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
