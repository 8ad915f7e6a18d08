// Package wire converts pool snapshots to and from a JSON-safe
// representation: big integers as decimal strings, bins as a string-keyed
// map, currencies reduced to chain id, address, decimals and symbol. The
// round trip is lossless; a parsed snapshot quotes identically to the
// original.
package wire

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/pools/binpool"
	"github.com/infinitypools/quoter-go/pools/clpool"
)

var ErrUnknownKind = errors.New("unknown pool kind")

// Currency is the wire form of a currency reference. Native currencies omit
// the address and set the native flag.
type Currency struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address,omitempty"`
	Native   bool   `json:"native,omitempty"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// Tick is the wire form of one initialized tick.
type Tick struct {
	Index          int64  `json:"index"`
	LiquidityNet   string `json:"liquidityNet"`
	LiquidityGross string `json:"liquidityGross"`
}

// CLPool is the wire form of a CL pool snapshot.
type CLPool struct {
	Currency0    Currency `json:"currency0"`
	Currency1    Currency `json:"currency1"`
	Fee          uint32   `json:"fee"`
	ProtocolFee  uint32   `json:"protocolFee,omitempty"`
	TickSpacing  int32    `json:"tickSpacing"`
	Hooks        string   `json:"hooks"`
	PoolManager  string   `json:"poolManager"`
	Liquidity    string   `json:"liquidity"`
	SqrtRatioX96 string   `json:"sqrtRatioX96"`
	Tick         int64    `json:"tick"`
	Ticks        []Tick   `json:"ticks,omitempty"`
	Reserve0     string   `json:"reserve0,omitempty"`
	Reserve1     string   `json:"reserve1,omitempty"`
}

// BinReserves is the wire form of one bin's reserves.
type BinReserves struct {
	ReserveX string `json:"reserveX"`
	ReserveY string `json:"reserveY"`
}

// BinPool is the wire form of a bin pool snapshot. Bin ids are decimal
// strings because JSON object keys are strings.
type BinPool struct {
	Currency0   Currency               `json:"currency0"`
	Currency1   Currency               `json:"currency1"`
	Fee         uint32                 `json:"fee"`
	ProtocolFee uint32                 `json:"protocolFee,omitempty"`
	BinStep     uint16                 `json:"binStep"`
	Hooks       string                 `json:"hooks"`
	PoolManager string                 `json:"poolManager"`
	ActiveID    int64                  `json:"activeId"`
	Bins        map[string]BinReserves `json:"reserveOfBin,omitempty"`
}

// Pool is the kind-tagged envelope carrying either snapshot form.
type Pool struct {
	Kind string   `json:"kind"`
	CL   *CLPool  `json:"cl,omitempty"`
	Bin  *BinPool `json:"bin,omitempty"`
}

func serializeCurrency(c pools.Currency) Currency {
	out := Currency{ChainID: c.ChainID, Decimals: c.Decimals, Symbol: c.Symbol}
	if c.Native {
		out.Native = true
	} else {
		out.Address = c.Address.Hex()
	}
	return out
}

func parseCurrency(w Currency) pools.Currency {
	if w.Native {
		return pools.NewNative(w.ChainID, w.Decimals, w.Symbol)
	}
	return pools.NewToken(w.ChainID, common.HexToAddress(w.Address), w.Decimals, w.Symbol)
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func parseBig(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("wire: invalid %s %q", field, s)
	}
	return v, nil
}

// SerializeCL converts a CL snapshot to wire form.
func SerializeCL(p *clpool.Pool) *CLPool {
	out := &CLPool{
		Currency0:    serializeCurrency(p.Key.Currency0),
		Currency1:    serializeCurrency(p.Key.Currency1),
		Fee:          p.Key.Fee,
		ProtocolFee:  p.ProtocolFee,
		TickSpacing:  p.Key.Parameters.TickSpacing,
		Hooks:        p.Key.Hooks.Hex(),
		PoolManager:  p.Key.PoolManager.Hex(),
		Liquidity:    bigString(p.Liquidity),
		SqrtRatioX96: bigString(p.SqrtRatioX96),
		Tick:         p.Tick,
		Reserve0:     bigString(p.Reserve0),
		Reserve1:     bigString(p.Reserve1),
	}
	for _, t := range p.Ticks {
		out.Ticks = append(out.Ticks, Tick{
			Index:          t.Index,
			LiquidityNet:   bigString(t.LiquidityNet),
			LiquidityGross: bigString(t.LiquidityGross),
		})
	}
	return out
}

// ParseCL reconstructs a CL snapshot from wire form.
func ParseCL(w *CLPool) (*clpool.Pool, error) {
	liquidity, err := parseBig("liquidity", w.Liquidity)
	if err != nil {
		return nil, err
	}
	sqrtRatio, err := parseBig("sqrtRatioX96", w.SqrtRatioX96)
	if err != nil {
		return nil, err
	}

	key := pools.NewPoolKey(
		parseCurrency(w.Currency0),
		parseCurrency(w.Currency1),
		common.HexToAddress(w.Hooks),
		common.HexToAddress(w.PoolManager),
		w.Fee,
		pools.Parameters{Kind: pools.KindCL, TickSpacing: w.TickSpacing},
	)

	p := clpool.New(key, w.ProtocolFee, liquidity, sqrtRatio, w.Tick)
	if w.Reserve0 != "" {
		if p.Reserve0, err = parseBig("reserve0", w.Reserve0); err != nil {
			return nil, err
		}
	}
	if w.Reserve1 != "" {
		if p.Reserve1, err = parseBig("reserve1", w.Reserve1); err != nil {
			return nil, err
		}
	}
	if len(w.Ticks) > 0 {
		ticks := make([]clpool.Tick, 0, len(w.Ticks))
		for _, t := range w.Ticks {
			net, err := parseBig("liquidityNet", t.LiquidityNet)
			if err != nil {
				return nil, err
			}
			gross, err := parseBig("liquidityGross", t.LiquidityGross)
			if err != nil {
				return nil, err
			}
			ticks = append(ticks, clpool.Tick{Index: t.Index, LiquidityNet: net, LiquidityGross: gross})
		}
		p = p.WithTicks(ticks)
	}
	return p, nil
}

// SerializeBin converts a bin snapshot to wire form.
func SerializeBin(p *binpool.Pool) *BinPool {
	out := &BinPool{
		Currency0:   serializeCurrency(p.Key.Currency0),
		Currency1:   serializeCurrency(p.Key.Currency1),
		Fee:         p.Key.Fee,
		ProtocolFee: p.ProtocolFee,
		BinStep:     p.Key.Parameters.BinStep,
		Hooks:       p.Key.Hooks.Hex(),
		PoolManager: p.Key.PoolManager.Hex(),
		ActiveID:    p.ActiveID,
	}
	if len(p.Bins) > 0 {
		out.Bins = make(map[string]BinReserves, len(p.Bins))
		for id, r := range p.Bins {
			out.Bins[strconv.FormatInt(id, 10)] = BinReserves{
				ReserveX: bigString(r.ReserveX),
				ReserveY: bigString(r.ReserveY),
			}
		}
	}
	return out
}

// ParseBin reconstructs a bin snapshot from wire form.
func ParseBin(w *BinPool) (*binpool.Pool, error) {
	key := pools.NewPoolKey(
		parseCurrency(w.Currency0),
		parseCurrency(w.Currency1),
		common.HexToAddress(w.Hooks),
		common.HexToAddress(w.PoolManager),
		w.Fee,
		pools.Parameters{Kind: pools.KindBin, BinStep: w.BinStep},
	)

	p := binpool.New(key, w.ProtocolFee, w.ActiveID)
	if len(w.Bins) > 0 {
		bins := make(map[int64]binpool.Reserves, len(w.Bins))
		for rawID, r := range w.Bins {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("wire: invalid bin id %q: %w", rawID, err)
			}
			x, err := parseBig("reserveX", r.ReserveX)
			if err != nil {
				return nil, err
			}
			y, err := parseBig("reserveY", r.ReserveY)
			if err != nil {
				return nil, err
			}
			bins[id] = binpool.Reserves{ReserveX: x, ReserveY: y}
		}
		p = p.WithBins(bins)
	}
	return p, nil
}

// Serialize wraps either snapshot variant in the kind-tagged envelope.
func Serialize(p pools.Pool) (*Pool, error) {
	switch pool := p.(type) {
	case *clpool.Pool:
		return &Pool{Kind: pools.KindCL.String(), CL: SerializeCL(pool)}, nil
	case *binpool.Pool:
		return &Pool{Kind: pools.KindBin.String(), Bin: SerializeBin(pool)}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownKind, p)
}

// Parse reconstructs a snapshot from the kind-tagged envelope.
func Parse(w *Pool) (pools.Pool, error) {
	switch {
	case w.Kind == pools.KindCL.String() && w.CL != nil:
		return ParseCL(w.CL)
	case w.Kind == pools.KindBin.String() && w.Bin != nil:
		return ParseBin(w.Bin)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.Kind)
}
