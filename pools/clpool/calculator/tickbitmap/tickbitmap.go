// Package tickbitmap provides next-initialized-tick lookups over a densified
// tick list. The on-chain pool organizes ticks in 256-entry bitmap words; here
// the already-fetched initialized ticks live in a sorted slice, so the word
// semantics reduce to a binary search.
package tickbitmap

import (
	"sort"

	"github.com/infinitypools/quoter-go/pools/clpool"
)

// NextInitializedTick finds the initialized tick adjacent to tick in the
// direction of travel.
//
// With lte true it returns the largest initialized tick at or below tick
// (price moving down); otherwise the smallest initialized tick strictly above
// it. initialized is false when no tick exists in that direction.
//
// The tick slice must be sorted by index; clpool.Pool.WithTicks guarantees
// this for densified snapshots.
func NextInitializedTick(ticks []clpool.Tick, tick int64, lte bool) (next int64, initialized bool) {
	if len(ticks) == 0 {
		return 0, false
	}

	if lte {
		i := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index >= tick })
		if i < len(ticks) && ticks[i].Index == tick {
			return tick, true
		}
		if i == 0 {
			// tick is below every initialized tick.
			return 0, false
		}
		return ticks[i-1].Index, true
	}

	i := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > tick })
	if i >= len(ticks) {
		return 0, false
	}
	return ticks[i].Index, true
}
