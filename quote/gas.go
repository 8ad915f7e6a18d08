package quote

import (
	"github.com/infinitypools/quoter-go/pools/binpool"
	"github.com/infinitypools/quoter-go/pools/clpool"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator"
)

// gasCosts are the chain-level constants of the CL gas model.
type gasCosts struct {
	baseSwap    uint64
	perHop      uint64
	perInitTick uint64
}

var defaultGasCosts = gasCosts{
	baseSwap:    100_000,
	perHop:      60_000,
	perInitTick: 31_000,
}

// chainGasCosts overrides the defaults for chains with different execution
// pricing. Unlisted chains use the defaults.
var chainGasCosts = map[uint64]gasCosts{
	56: {baseSwap: 90_000, perHop: 50_000, perInitTick: 31_000},
}

func costsForChain(chainID uint64) gasCosts {
	if c, ok := chainGasCosts[chainID]; ok {
		return c
	}
	return defaultGasCosts
}

// estimateCLGas prices one CL hop: base plus per-hop cost plus a per-tick
// cost for every initialized tick crossed by the simulated trade. The
// pre-trade snapshot must carry its tick list.
func estimateCLGas(before, after *clpool.Pool) (uint64, error) {
	if len(before.Ticks) == 0 {
		return 0, calculator.ErrNoTickList
	}
	costs := costsForChain(before.Key.Currency0.ChainID)
	crossed := calculator.InitializedTicksCrossed(before.Ticks, before.Tick, after.Tick)
	return costs.baseSwap + costs.perHop + costs.perInitTick*uint64(crossed), nil
}

// binSwapGas is the flat bin-hop estimate. Bin swaps do not cross tick
// boundaries, and no per-bin pricing model has been established yet.
const binSwapGas = uint64(0)

func estimateBinGas(_ *binpool.Pool) uint64 {
	return binSwapGas
}
