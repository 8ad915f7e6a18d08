// Package quote exposes the top-level quoting surface over the pool snapshot
// union: exact-in and exact-out quotes with a marginal gas estimate per hop.
package quote

import (
	"fmt"
	"math/big"

	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/pools/binpool"
	"github.com/infinitypools/quoter-go/pools/clpool"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator"
)

// Result is one successful quote. Pool is the untouched pre-trade snapshot,
// PoolAfter the fresh post-trade snapshot; callers must not alias the two.
type Result struct {
	Pool      pools.Pool
	PoolAfter pools.Pool
	Amount    pools.CurrencyAmount
	Gas       uint64
}

// otherCurrency returns the pool currency on the opposite side of c, with
// native-wrapped forms treated as the same side.
func otherCurrency(key pools.PoolKey, c pools.Currency) pools.Currency {
	if c.Equivalent(key.Currency0) {
		return key.Currency1
	}
	return key.Currency0
}

// ExactIn quotes the output amount for a fixed input against one pool
// snapshot. A nil Result with a nil error means no quote is available from
// this pool; callers should try the next candidate.
func ExactIn(p pools.Pool, amountIn pools.CurrencyAmount) (*Result, error) {
	switch pool := p.(type) {
	case *clpool.Pool:
		res, err := calculator.ExactIn(pool, amountIn, nil)
		if err != nil || res == nil {
			return nil, err
		}
		gas, err := estimateCLGas(pool, res.Pool)
		if err != nil {
			return nil, err
		}
		return &Result{
			Pool:      pool,
			PoolAfter: res.Pool,
			Amount:    pools.NewAmount(otherCurrency(pool.Key, amountIn.Currency), res.Amount),
			Gas:       gas,
		}, nil

	case *binpool.Pool:
		res, err := pool.ExactIn(amountIn)
		if err != nil || res == nil {
			return nil, err
		}
		return &Result{
			Pool:      pool,
			PoolAfter: res.Pool,
			Amount:    pools.NewAmount(otherCurrency(pool.Key, amountIn.Currency), res.Amount),
			Gas:       estimateBinGas(pool),
		}, nil
	}
	return nil, fmt.Errorf("unknown pool variant %T", p)
}

// ExactOut quotes the minimal input amount for a fixed output against one
// pool snapshot. Insufficient liquidity is a fatal error, not a soft miss.
func ExactOut(p pools.Pool, amountOut pools.CurrencyAmount) (*Result, error) {
	switch pool := p.(type) {
	case *clpool.Pool:
		res, err := calculator.ExactOut(pool, amountOut, nil)
		if err != nil || res == nil {
			return nil, err
		}
		gas, err := estimateCLGas(pool, res.Pool)
		if err != nil {
			return nil, err
		}
		return &Result{
			Pool:      pool,
			PoolAfter: res.Pool,
			Amount:    pools.NewAmount(otherCurrency(pool.Key, amountOut.Currency), res.Amount),
			Gas:       gas,
		}, nil

	case *binpool.Pool:
		res, err := pool.ExactOut(amountOut)
		if err != nil || res == nil {
			return nil, err
		}
		return &Result{
			Pool:      pool,
			PoolAfter: res.Pool,
			Amount:    pools.NewAmount(otherCurrency(pool.Key, amountOut.Currency), res.Amount),
			Gas:       estimateBinGas(pool),
		}, nil
	}
	return nil, fmt.Errorf("unknown pool variant %T", p)
}

// Best returns the most favorable quote from a set: the largest output for
// exact-in, the smallest input for exact-out. Nil when the set is empty.
func Best(results []*Result, exactIn bool) *Result {
	var best *Result
	var bestRaw *big.Int
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil ||
			(exactIn && r.Amount.Raw.Cmp(bestRaw) > 0) ||
			(!exactIn && r.Amount.Raw.Cmp(bestRaw) < 0) {
			best, bestRaw = r, r.Amount.Raw
		}
	}
	return best
}
