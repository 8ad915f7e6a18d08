package pools

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel address used for the chain-native asset in
// pool keys. Pools quoted in the native asset store it as the zero address.
var NativeAddress = common.Address{}

// wrappedNative maps a chain id to its canonical wrapped-native token.
var wrappedNative = map[uint64]common.Address{
	1:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH
	56: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"), // WBNB
	97: common.HexToAddress("0xae13d989daC2f0dEbFf460aC112a837C89BAa7cd"), // WBNB testnet
}

// Currency identifies a fungible asset on a single chain: either the
// chain-native asset or an ERC-20-like token. Values are cheap to copy and
// are never mutated after construction.
type Currency struct {
	ChainID  uint64
	Address  common.Address
	Decimals uint8
	Symbol   string
	Native   bool
}

// NewToken builds an ERC-20 currency reference.
func NewToken(chainID uint64, address common.Address, decimals uint8, symbol string) Currency {
	return Currency{ChainID: chainID, Address: address, Decimals: decimals, Symbol: symbol}
}

// NewNative builds the native currency of a chain. Its pool-key address is
// the zero address; Wrapped resolves the canonical wrapped token.
func NewNative(chainID uint64, decimals uint8, symbol string) Currency {
	return Currency{ChainID: chainID, Address: NativeAddress, Decimals: decimals, Symbol: symbol, Native: true}
}

// WrappedNative returns the wrapped form of the chain's native asset, if the
// chain is known.
func WrappedNative(chainID uint64) (common.Address, bool) {
	addr, ok := wrappedNative[chainID]
	return addr, ok
}

// Wrapped returns the currency itself for tokens, or the wrapped-native token
// for the native asset. Unknown chains return the currency unchanged.
func (c Currency) Wrapped() Currency {
	if !c.Native {
		return c
	}
	addr, ok := wrappedNative[c.ChainID]
	if !ok {
		return c
	}
	w := c
	w.Native = false
	w.Address = addr
	w.Symbol = "W" + c.Symbol
	return w
}

// Equal reports strict identity: same chain, same native flag, same address.
func (c Currency) Equal(o Currency) bool {
	return c.ChainID == o.ChainID && c.Native == o.Native && c.Address == o.Address
}

// Equivalent reports equality after normalizing native-wrapped forms, so the
// native asset and its wrapped token compare equal.
func (c Currency) Equivalent(o Currency) bool {
	if c.ChainID != o.ChainID {
		return false
	}
	return c.Wrapped().Address == o.Wrapped().Address
}

// SortsBefore reports whether c precedes o in the canonical pool ordering.
// The native asset (zero address) always sorts first.
func (c Currency) SortsBefore(o Currency) bool {
	return bytes.Compare(c.Address.Bytes(), o.Address.Bytes()) < 0
}

func (c Currency) String() string {
	if c.Native {
		return fmt.Sprintf("%s(native/%d)", c.Symbol, c.ChainID)
	}
	return fmt.Sprintf("%s(%s/%d)", c.Symbol, c.Address.Hex(), c.ChainID)
}

// CurrencyAmount pairs a currency with a raw (smallest-unit) amount.
type CurrencyAmount struct {
	Currency Currency
	Raw      *big.Int
}

// NewAmount builds a currency amount. The raw value is copied so callers may
// reuse their big.Int.
func NewAmount(c Currency, raw *big.Int) CurrencyAmount {
	return CurrencyAmount{Currency: c, Raw: new(big.Int).Set(raw)}
}

func (a CurrencyAmount) String() string {
	return fmt.Sprintf("%s %s", a.Raw.String(), a.Currency.Symbol)
}
