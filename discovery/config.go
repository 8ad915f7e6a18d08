package discovery

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/infinitypools/quoter-go/pools"
)

// CLPreset is one candidate CL fee tier.
type CLPreset struct {
	Fee         uint32
	TickSpacing int32
}

// BinPreset is one candidate bin fee/step pairing.
type BinPreset struct {
	Fee     uint32
	BinStep uint16
}

// HookPreset is a hook configuration candidate pools may be deployed with.
// The zero address is the hookless default.
type HookPreset struct {
	Name  string
	Hooks common.Address
}

// ChainConfig describes one supported chain: the pool-manager deployments and
// the candidate key space enumerated during discovery.
type ChainConfig struct {
	ChainID        uint64
	CLPoolManager  common.Address
	BinPoolManager common.Address
	Multicall      common.Address

	CLPresets   []CLPreset
	BinPresets  []BinPreset
	HookPresets []HookPreset
}

// SupportsCL reports whether the chain has a CL pool manager deployment.
func (c ChainConfig) SupportsCL() bool { return c.CLPoolManager != (common.Address{}) }

// SupportsBin reports whether the chain has a bin pool manager deployment.
func (c ChainConfig) SupportsBin() bool { return c.BinPoolManager != (common.Address{}) }

var defaultCLPresets = []CLPreset{
	{Fee: 100, TickSpacing: 1},
	{Fee: 500, TickSpacing: 10},
	{Fee: 2500, TickSpacing: 50},
	{Fee: 3000, TickSpacing: 60},
	{Fee: 10000, TickSpacing: 200},
}

var defaultBinPresets = []BinPreset{
	{Fee: 100, BinStep: 1},
	{Fee: 500, BinStep: 10},
	{Fee: 2500, BinStep: 25},
	{Fee: 10000, BinStep: 100},
}

var defaultHookPresets = []HookPreset{
	{Name: "hookless", Hooks: common.Address{}},
}

// chainConfigs is the registry of supported chains.
var chainConfigs = map[uint64]ChainConfig{
	1: {
		ChainID:        1,
		CLPoolManager:  common.HexToAddress("0x6A1b6fD554493D9C9fC9e3D5BEE0a9a2Ec3f0f0B"),
		BinPoolManager: common.HexToAddress("0x3E1b5E4D8A6F5b6A57d0475C6750B6C51D0C7D7e"),
		Multicall:      common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
		CLPresets:      defaultCLPresets,
		BinPresets:     defaultBinPresets,
		HookPresets:    defaultHookPresets,
	},
	56: {
		ChainID:        56,
		CLPoolManager:  common.HexToAddress("0xa0FfB9c1CE1Fe56963B0321B32E7A0302114058b"),
		BinPoolManager: common.HexToAddress("0xC697d2898e0D09264376196696c51D7aBbbAA4a9"),
		Multicall:      common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
		CLPresets:      defaultCLPresets,
		BinPresets:     defaultBinPresets,
		HookPresets:    defaultHookPresets,
	},
	97: {
		ChainID:        97,
		CLPoolManager:  common.HexToAddress("0x70890E308DCE091356F52141736F1A1a9Da95Aa4"),
		BinPoolManager: common.HexToAddress("0x68554d088F3640Bd2A7B38b43AE70FDcc16ef197"),
		Multicall:      common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
		CLPresets:      defaultCLPresets,
		BinPresets:     defaultBinPresets,
		HookPresets:    defaultHookPresets,
	},
}

// ConfigForChain resolves the chain registry entry.
func ConfigForChain(chainID uint64) (ChainConfig, bool) {
	cfg, ok := chainConfigs[chainID]
	return cfg, ok
}

// clKey builds a canonical CL candidate key for the chain.
func (c ChainConfig) clKey(a, b pools.Currency, fee uint32, spacing int32, hooks common.Address) pools.PoolKey {
	return pools.NewPoolKey(a, b, hooks, c.CLPoolManager, fee, pools.Parameters{
		Kind:        pools.KindCL,
		TickSpacing: spacing,
	})
}

// binKey builds a canonical bin candidate key for the chain.
func (c ChainConfig) binKey(a, b pools.Currency, fee uint32, step uint16, hooks common.Address) pools.PoolKey {
	return pools.NewPoolKey(a, b, hooks, c.BinPoolManager, fee, pools.Parameters{
		Kind:    pools.KindBin,
		BinStep: step,
	})
}
