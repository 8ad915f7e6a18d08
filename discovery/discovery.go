// Package discovery enumerates candidate pool configurations for a currency
// pair, batch-fetches live headline state to build pool snapshots, and
// densifies those snapshots with tick or bin liquidity data.
package discovery

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/infinitypools/quoter-go/onchain"
	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/pools/binpool"
	"github.com/infinitypools/quoter-go/pools/clpool"
)

var (
	// ErrUnsupportedChain means the chain has no registry entry or lacks the
	// requested pool kind.
	ErrUnsupportedChain = errors.New("unsupported chain")
	// ErrChainMismatch means the two currencies live on different chains.
	ErrChainMismatch = errors.New("currencies on different chains")
)

// candidateCacheSize bounds the per-discoverer memo of enumerated candidate
// keys. Enumeration is pure given the chain config, so entries never expire.
const candidateCacheSize = 512

// candidateKey is the structural cache key for one pair's candidate set.
type candidateKey struct {
	ChainID uint64
	A, B    common.Address
	Kind    pools.Kind
}

// Discoverer drives the two-pass discovery pipeline for one chain.
type Discoverer struct {
	cfg     ChainConfig
	batcher onchain.Batcher

	candidates *lru.Cache[candidateKey, []pools.PoolKey]
}

// New builds a discoverer for the chain. Fails with ErrUnsupportedChain when
// the chain is not in the registry.
func New(chainID uint64, batcher onchain.Batcher) (*Discoverer, error) {
	cfg, ok := ConfigForChain(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d", ErrUnsupportedChain, chainID)
	}
	cache, err := lru.New[candidateKey, []pools.PoolKey](candidateCacheSize)
	if err != nil {
		return nil, err
	}
	return &Discoverer{cfg: cfg, batcher: batcher, candidates: cache}, nil
}

// pairVariants expands a currency pair with its native-asset variant: when
// one side is the wrapped native token, pools keyed on the native asset are
// candidates too.
func pairVariants(a, b pools.Currency) [][2]pools.Currency {
	variants := [][2]pools.Currency{{a, b}}

	wrapped, ok := pools.WrappedNative(a.ChainID)
	if !ok {
		return variants
	}
	native := pools.NewNative(a.ChainID, 18, "NATIVE")
	switch {
	case !a.Native && a.Address == wrapped:
		variants = append(variants, [2]pools.Currency{native, b})
	case !b.Native && b.Address == wrapped:
		variants = append(variants, [2]pools.Currency{a, native})
	case a.Native:
		variants = append(variants, [2]pools.Currency{a.Wrapped(), b})
	case b.Native:
		variants = append(variants, [2]pools.Currency{a, b.Wrapped()})
	}
	return variants
}

func (d *Discoverer) checkPair(a, b pools.Currency) error {
	if a.ChainID != b.ChainID {
		return fmt.Errorf("%w: %d vs %d", ErrChainMismatch, a.ChainID, b.ChainID)
	}
	if a.ChainID != d.cfg.ChainID {
		return fmt.Errorf("%w: discoverer bound to chain %d, got %d", ErrUnsupportedChain, d.cfg.ChainID, a.ChainID)
	}
	return nil
}

// clCandidates enumerates deduplicated CL candidate keys for the pair.
func (d *Discoverer) clCandidates(a, b pools.Currency) []pools.PoolKey {
	ck := candidateKey{ChainID: d.cfg.ChainID, A: a.Address, B: b.Address, Kind: pools.KindCL}
	if keys, ok := d.candidates.Get(ck); ok {
		return keys
	}

	seen := mapset.NewThreadUnsafeSet[pools.ID]()
	var keys []pools.PoolKey
	for _, pair := range pairVariants(a, b) {
		for _, preset := range d.cfg.CLPresets {
			for _, hook := range d.cfg.HookPresets {
				key := d.cfg.clKey(pair[0], pair[1], preset.Fee, preset.TickSpacing, hook.Hooks)
				if seen.Add(key.ID()) {
					keys = append(keys, key)
				}
			}
		}
	}
	d.candidates.Add(ck, keys)
	return keys
}

// binCandidates enumerates deduplicated bin candidate keys for the pair.
func (d *Discoverer) binCandidates(a, b pools.Currency) []pools.PoolKey {
	ck := candidateKey{ChainID: d.cfg.ChainID, A: a.Address, B: b.Address, Kind: pools.KindBin}
	if keys, ok := d.candidates.Get(ck); ok {
		return keys
	}

	seen := mapset.NewThreadUnsafeSet[pools.ID]()
	var keys []pools.PoolKey
	for _, pair := range pairVariants(a, b) {
		for _, preset := range d.cfg.BinPresets {
			for _, hook := range d.cfg.HookPresets {
				key := d.cfg.binKey(pair[0], pair[1], preset.Fee, preset.BinStep, hook.Hooks)
				if seen.Add(key.ID()) {
					keys = append(keys, key)
				}
			}
		}
	}
	d.candidates.Add(ck, keys)
	return keys
}

// CLPools discovers live CL pools for the pair. Candidates whose reads fail
// or return zero state are skipped; the result carries headline state only
// (no ticks).
func (d *Discoverer) CLPools(ctx context.Context, a, b pools.Currency) ([]*clpool.Pool, error) {
	if err := d.checkPair(a, b); err != nil {
		return nil, err
	}
	if !d.cfg.SupportsCL() {
		return nil, fmt.Errorf("%w: chain %d has no CL pool manager", ErrUnsupportedChain, d.cfg.ChainID)
	}

	keys := d.clCandidates(a, b)
	if len(keys) == 0 {
		return nil, nil
	}

	// Two calls per candidate: slot0 then liquidity, paired by index.
	calls := make([]onchain.Call, 0, 2*len(keys))
	for _, key := range keys {
		id := key.ID()
		calls = append(calls,
			onchain.Call{Target: d.cfg.CLPoolManager, CallData: packCLSlot0(id)},
			onchain.Call{Target: d.cfg.CLPoolManager, CallData: packCLLiquidity(id)},
		)
	}

	results, err := d.batcher.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	var found []*clpool.Pool
	for i, key := range keys {
		slotRes, liqRes := results[2*i], results[2*i+1]
		if !slotRes.Success || !liqRes.Success {
			continue
		}
		slot, err := unpackCLSlot0(slotRes.ReturnData)
		if err != nil {
			continue
		}
		if slot.SqrtPriceX96.Sign() == 0 {
			// Uninitialized pool.
			continue
		}
		liquidity, err := unpackCLLiquidity(liqRes.ReturnData)
		if err != nil {
			continue
		}
		found = append(found, clpool.New(key, slot.ProtocolFee, liquidity, slot.SqrtPriceX96, slot.Tick))
	}
	return found, nil
}

// BinPools discovers live bin pools for the pair. The result carries the
// active bin only (no reserves).
func (d *Discoverer) BinPools(ctx context.Context, a, b pools.Currency) ([]*binpool.Pool, error) {
	if err := d.checkPair(a, b); err != nil {
		return nil, err
	}
	if !d.cfg.SupportsBin() {
		return nil, fmt.Errorf("%w: chain %d has no bin pool manager", ErrUnsupportedChain, d.cfg.ChainID)
	}

	keys := d.binCandidates(a, b)
	if len(keys) == 0 {
		return nil, nil
	}

	calls := make([]onchain.Call, 0, len(keys))
	for _, key := range keys {
		calls = append(calls, onchain.Call{Target: d.cfg.BinPoolManager, CallData: packBinSlot0(key.ID())})
	}

	results, err := d.batcher.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	var found []*binpool.Pool
	for i, key := range keys {
		if !results[i].Success {
			continue
		}
		slot, err := unpackBinSlot0(results[i].ReturnData)
		if err != nil {
			continue
		}
		if slot.ActiveID == 0 {
			// Uninitialized pool.
			continue
		}
		found = append(found, binpool.New(key, slot.ProtocolFee, slot.ActiveID))
	}
	return found, nil
}
