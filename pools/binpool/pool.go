// Package binpool holds the immutable snapshot model and quote engine of a
// liquidity-book (bin) pool: discretized price bins, each holding reserves of
// both currencies, with the active bin carrying the current price.
package binpool

import (
	"math/big"

	"github.com/infinitypools/quoter-go/pools"
)

// Reserves holds one bin's reserves. A bin's X reserve is currency0, Y is
// currency1.
type Reserves struct {
	ReserveX *big.Int
	ReserveY *big.Int
}

// Pool is a point-in-time snapshot of a bin pool. The bin map is sparse:
// absence of an id means the bin was not queried, not that it is empty.
// Zero-reserve bins are never stored. Snapshots are immutable; quoting
// produces a fresh snapshot.
type Pool struct {
	Key         pools.PoolKey
	ProtocolFee uint32

	// ActiveID is the bin holding the current price.
	ActiveID int64

	// Bins is the densified sparse reserve map. Nil until filled; required by
	// the quote engine.
	Bins map[int64]Reserves

	id pools.ID
}

// New builds a snapshot from headline on-chain state. Bin reserves may be
// attached later via WithBins.
func New(key pools.PoolKey, protocolFee uint32, activeID int64) *Pool {
	return &Pool{
		Key:         key,
		ProtocolFee: protocolFee,
		ActiveID:    activeID,
		id:          key.ID(),
	}
}

func (p *Pool) PoolKind() pools.Kind   { return pools.KindBin }
func (p *Pool) PoolKey() pools.PoolKey { return p.Key }
func (p *Pool) PoolID() pools.ID       { return p.id }

// BinStep is the basis-point price step between adjacent bins.
func (p *Pool) BinStep() uint16 { return p.Key.Parameters.BinStep }

// Involves reports whether the currency is one side of the pool.
func (p *Pool) Involves(c pools.Currency) bool {
	return c.Equal(p.Key.Currency0) || c.Equal(p.Key.Currency1)
}

// WithBins returns a copy of the snapshot carrying the given reserve map.
// Zero-reserve entries are dropped rather than stored.
func (p *Pool) WithBins(bins map[int64]Reserves) *Pool {
	kept := make(map[int64]Reserves, len(bins))
	for id, r := range bins {
		if (r.ReserveX == nil || r.ReserveX.Sign() == 0) && (r.ReserveY == nil || r.ReserveY.Sign() == 0) {
			continue
		}
		kept[id] = r
	}
	next := *p
	next.Bins = kept
	return &next
}

// withState returns a post-trade copy with a new active bin and reserve map.
func (p *Pool) withState(activeID int64, bins map[int64]Reserves) *Pool {
	next := *p
	next.ActiveID = activeID
	next.Bins = bins
	return &next
}

// binAt returns the reserves of a bin, if known.
func (p *Pool) binAt(id int64) (Reserves, bool) {
	r, ok := p.Bins[id]
	return r, ok
}
