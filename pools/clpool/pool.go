// Package clpool holds the immutable snapshot model of a concentrated
// liquidity pool: headline state from a single on-chain read plus an optional
// densified list of initialized ticks.
package clpool

import (
	"math/big"
	"sort"

	"github.com/infinitypools/quoter-go/pools"
)

// Tick is one initialized tick record. Presence of a record implies the tick
// is initialized; gross liquidity is non-zero.
type Tick struct {
	Index          int64
	LiquidityGross *big.Int
	LiquidityNet   *big.Int
}

// Pool is a point-in-time snapshot of a CL pool. Snapshots are never mutated
// after construction; a simulated swap produces a fresh snapshot.
type Pool struct {
	Key         pools.PoolKey
	ProtocolFee uint32

	Liquidity    *big.Int
	SqrtRatioX96 *big.Int
	Tick         int64

	// Ticks is the densified, sorted list of initialized ticks. Nil until the
	// pool has been filled; required by the quote engine.
	Ticks []Tick

	Reserve0 *big.Int
	Reserve1 *big.Int

	id pools.ID
}

// New builds a snapshot from headline on-chain state. The tick list may be
// nil and attached later via WithTicks.
func New(key pools.PoolKey, protocolFee uint32, liquidity, sqrtRatioX96 *big.Int, tick int64) *Pool {
	return &Pool{
		Key:          key,
		ProtocolFee:  protocolFee,
		Liquidity:    liquidity,
		SqrtRatioX96: sqrtRatioX96,
		Tick:         tick,
		id:           key.ID(),
	}
}

func (p *Pool) PoolKind() pools.Kind   { return pools.KindCL }
func (p *Pool) PoolKey() pools.PoolKey { return p.Key }
func (p *Pool) PoolID() pools.ID       { return p.id }

// TickSpacing is the spacing of the pool's fee tier.
func (p *Pool) TickSpacing() int64 { return int64(p.Key.Parameters.TickSpacing) }

// Involves reports whether the currency is one side of the pool.
func (p *Pool) Involves(c pools.Currency) bool {
	return c.Equal(p.Key.Currency0) || c.Equal(p.Key.Currency1)
}

// WithTicks returns a copy of the snapshot carrying the given ticks, sorted
// by index. Ticks are always re-sorted here so downstream binary searches
// never depend on fetch order.
func (p *Pool) WithTicks(ticks []Tick) *Pool {
	sorted := make([]Tick, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	next := *p
	next.Ticks = sorted
	return &next
}

// WithState returns a copy of the snapshot with post-trade headline state.
// The tick list is shared: simulated swaps do not change which ticks are
// initialized.
func (p *Pool) WithState(liquidity, sqrtRatioX96 *big.Int, tick int64) *Pool {
	next := *p
	next.Liquidity = liquidity
	next.SqrtRatioX96 = sqrtRatioX96
	next.Tick = tick
	return &next
}

// TickAt returns the initialized tick record at the given index, if present.
func (p *Pool) TickAt(index int64) (Tick, bool) {
	i := sort.Search(len(p.Ticks), func(i int) bool { return p.Ticks[i].Index >= index })
	if i < len(p.Ticks) && p.Ticks[i].Index == index {
		return p.Ticks[i], true
	}
	return Tick{}, false
}

// LiquidityFromTicks sums the net liquidity deltas of all initialized ticks
// at or below the snapshot's current tick, starting from zero below the
// minimum tick. For a consistent snapshot it equals Liquidity.
func (p *Pool) LiquidityFromTicks() *big.Int {
	sum := new(big.Int)
	for _, t := range p.Ticks {
		if t.Index > p.Tick {
			break
		}
		sum.Add(sum, t.LiquidityNet)
	}
	return sum
}
