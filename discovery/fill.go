package discovery

import (
	"context"
	"math"

	"github.com/infinitypools/quoter-go/bitset"
	"github.com/infinitypools/quoter-go/onchain"
	"github.com/infinitypools/quoter-go/pools/binpool"
	"github.com/infinitypools/quoter-go/pools/clpool"
)

const (
	// clPriceWindow is the price tolerance the tick window covers around the
	// current tick.
	clPriceWindow = 0.10
	// binPriceWindow is the price tolerance the bin window covers around the
	// active bin.
	binPriceWindow = 0.05

	// ticksPerWord is the number of tick-spacing slots per bitmap word.
	ticksPerWord = 256

	maxBinID = (int64(1) << 24) - 1
)

// clTickWindow is the half-width, in ticks, of the densification window.
var clTickWindow = int64(math.Round(math.Log(1+clPriceWindow) / math.Log(1.0001)))

// floorDiv divides rounding toward negative infinity, matching the on-chain
// compressed-tick arithmetic.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// wordRange returns the bitmap word indexes covering the densification window
// around the current tick.
func wordRange(tick, tickSpacing int64) (minWord, maxWord int64) {
	minWord = floorDiv(floorDiv(tick-clTickWindow, tickSpacing), ticksPerWord)
	maxWord = floorDiv(floorDiv(tick+clTickWindow, tickSpacing), ticksPerWord)
	return minWord, maxWord
}

// binIDRange returns the bin window around the active bin covering the price
// tolerance, clamped to valid bin ids.
func binIDRange(activeID int64, binStep uint16) (minID, maxID int64) {
	half := int64(math.Floor(math.Log(1+binPriceWindow) / math.Log(1+float64(binStep)/10_000)))
	if half < 1 {
		half = 1
	}
	minID, maxID = activeID-half, activeID+half
	if minID < 1 {
		minID = 1
	}
	if maxID > maxBinID {
		maxID = maxBinID
	}
	return minID, maxID
}

// wordRequest pairs a batched bitmap read with its originating pool and word
// position, so decoding never relies on response ordering alone.
type wordRequest struct {
	poolIdx int
	wordPos int64
}

type tickRequest struct {
	poolIdx int
	tick    int64
}

// FillTicks densifies CL snapshots with the initialized ticks inside the
// window around each pool's current tick. Existing ticks are preserved; the
// merged list is sorted before it is attached. Slices whose reads fail after
// retry contribute no ticks; the pool is still returned.
func (d *Discoverer) FillTicks(ctx context.Context, discovered []*clpool.Pool) ([]*clpool.Pool, error) {
	if len(discovered) == 0 {
		return nil, nil
	}

	var wordReqs []wordRequest
	var wordCalls []onchain.Call
	for i, p := range discovered {
		minWord, maxWord := wordRange(p.Tick, p.TickSpacing())
		for w := minWord; w <= maxWord; w++ {
			wordReqs = append(wordReqs, wordRequest{poolIdx: i, wordPos: w})
			wordCalls = append(wordCalls, onchain.Call{
				Target:   d.cfg.CLPoolManager,
				CallData: packTickBitmap(p.PoolID(), int16(w)),
			})
		}
	}

	wordResults, err := d.batcher.Aggregate(ctx, wordCalls)
	if err != nil {
		return nil, err
	}

	// Decode bitmap words into tick indexes, then fetch each tick's
	// liquidity in a second batch.
	var tickReqs []tickRequest
	var tickCalls []onchain.Call
	for _, res := range wordResults {
		if !res.Success {
			continue
		}
		req := wordReqs[res.Index]
		word, err := unpackTickBitmap(res.ReturnData)
		if err != nil || word.Sign() == 0 {
			continue
		}
		p := discovered[req.poolIdx]
		for _, bit := range bitset.FromWord(word).Ones() {
			compressed := req.wordPos*ticksPerWord + int64(bit)
			tick := compressed * p.TickSpacing()
			if _, known := p.TickAt(tick); known {
				continue
			}
			tickReqs = append(tickReqs, tickRequest{poolIdx: req.poolIdx, tick: tick})
			tickCalls = append(tickCalls, onchain.Call{
				Target:   d.cfg.CLPoolManager,
				CallData: packTickLiquidity(p.PoolID(), tick),
			})
		}
	}

	merged := make(map[int][]clpool.Tick, len(discovered))
	if len(tickCalls) > 0 {
		tickResults, err := d.batcher.Aggregate(ctx, tickCalls)
		if err != nil {
			return nil, err
		}
		for _, res := range tickResults {
			if !res.Success {
				continue
			}
			req := tickReqs[res.Index]
			gross, net, err := unpackTickLiquidity(res.ReturnData)
			if err != nil || gross.Sign() == 0 {
				continue
			}
			merged[req.poolIdx] = append(merged[req.poolIdx], clpool.Tick{
				Index:          req.tick,
				LiquidityGross: gross,
				LiquidityNet:   net,
			})
		}
	}

	filled := make([]*clpool.Pool, len(discovered))
	for i, p := range discovered {
		ticks := append(append([]clpool.Tick(nil), p.Ticks...), merged[i]...)
		filled[i] = p.WithTicks(ticks)
	}
	return filled, nil
}

type binRequest struct {
	poolIdx int
	binID   int64
}

// FillBins densifies bin snapshots with the reserves of every bin inside the
// window around the active bin. Zero-reserve bins are dropped, and pools with
// no non-zero bin in range are filtered out of the result entirely.
func (d *Discoverer) FillBins(ctx context.Context, discovered []*binpool.Pool) ([]*binpool.Pool, error) {
	if len(discovered) == 0 {
		return nil, nil
	}

	var reqs []binRequest
	var calls []onchain.Call
	for i, p := range discovered {
		minID, maxID := binIDRange(p.ActiveID, p.BinStep())
		for id := minID; id <= maxID; id++ {
			reqs = append(reqs, binRequest{poolIdx: i, binID: id})
			calls = append(calls, onchain.Call{
				Target:   d.cfg.BinPoolManager,
				CallData: packBin(p.PoolID(), id),
			})
		}
	}

	results, err := d.batcher.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	reserves := make(map[int]map[int64]binpool.Reserves, len(discovered))
	for _, res := range results {
		if !res.Success {
			continue
		}
		req := reqs[res.Index]
		x, y, err := unpackBin(res.ReturnData)
		if err != nil {
			continue
		}
		if x.Sign() == 0 && y.Sign() == 0 {
			// Absent means unknown-or-empty; empty bins are never stored.
			continue
		}
		if reserves[req.poolIdx] == nil {
			reserves[req.poolIdx] = make(map[int64]binpool.Reserves)
		}
		reserves[req.poolIdx][req.binID] = binpool.Reserves{ReserveX: x, ReserveY: y}
	}

	var filled []*binpool.Pool
	for i, p := range discovered {
		bins := reserves[i]
		if len(bins) == 0 {
			// No discoverable liquidity in range.
			continue
		}
		filled = append(filled, p.WithBins(bins))
	}
	return filled, nil
}
