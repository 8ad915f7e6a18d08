package pools

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind discriminates the two pool variants handled by this module.
type Kind uint8

const (
	KindCL Kind = iota
	KindBin
)

func (k Kind) String() string {
	switch k {
	case KindCL:
		return "cl"
	case KindBin:
		return "bin"
	}
	return "unknown"
}

// ID is the 32-byte pool identifier, keccak256 of the ABI-encoded pool key.
type ID [32]byte

func (id ID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

// Parameters carries the kind-specific pool-key parameters. Exactly one of
// TickSpacing (CL) or BinStep (Bin) is meaningful, selected by Kind.
type Parameters struct {
	Kind        Kind
	TickSpacing int32
	BinStep     uint16
}

// Pack encodes the parameters into the 32-byte word used in the on-chain pool
// key. The kind-specific value occupies bits 16..39 (tick spacing, signed
// int24) or 16..31 (bin step), matching the pool-manager layout.
func (p Parameters) Pack() [32]byte {
	var out [32]byte
	switch p.Kind {
	case KindCL:
		v := uint32(p.TickSpacing) & 0xFFFFFF
		out[29] = byte(v >> 16)
		out[30] = byte(v >> 8)
		out[31] = byte(v)
		// shift into bits 16..39
		var shifted [32]byte
		copy(shifted[:30], out[2:])
		return shifted
	case KindBin:
		binary.BigEndian.PutUint16(out[28:30], p.BinStep)
	}
	return out
}

// PoolKey is the candidate key space of a pool before any on-chain state is
// fetched: the ordered currency pair plus the fee tier, hook and manager
// addresses, and the kind-specific parameters.
type PoolKey struct {
	Currency0   Currency
	Currency1   Currency
	Hooks       common.Address
	PoolManager common.Address
	Fee         uint32 // ppm
	Parameters  Parameters
}

// NewPoolKey builds a pool key with the currencies in canonical order
// (lower address first; the native asset sorts first).
func NewPoolKey(a, b Currency, hooks, manager common.Address, fee uint32, params Parameters) PoolKey {
	if b.SortsBefore(a) {
		a, b = b, a
	}
	return PoolKey{
		Currency0:   a,
		Currency1:   b,
		Hooks:       hooks,
		PoolManager: manager,
		Fee:         fee,
		Parameters:  params,
	}
}

// keyArguments is the ABI tuple layout of the on-chain PoolKey struct.
var keyArguments = func() abi.Arguments {
	addressT, _ := abi.NewType("address", "", nil)
	uint24T, _ := abi.NewType("uint24", "", nil)
	bytes32T, _ := abi.NewType("bytes32", "", nil)
	return abi.Arguments{
		{Type: addressT}, // currency0
		{Type: addressT}, // currency1
		{Type: addressT}, // hooks
		{Type: addressT}, // poolManager
		{Type: uint24T},  // fee
		{Type: bytes32T}, // parameters
	}
}()

// ID derives the pool identifier from the key.
func (k PoolKey) ID() ID {
	packed, err := keyArguments.Pack(
		k.Currency0.Address,
		k.Currency1.Address,
		k.Hooks,
		k.PoolManager,
		new(big.Int).SetUint64(uint64(k.Fee)),
		k.Parameters.Pack(),
	)
	if err != nil {
		// The tuple is fixed-shape; packing only fails on a programming error.
		panic(err)
	}
	var id ID
	copy(id[:], crypto.Keccak256(packed))
	return id
}

// Kind returns the pool variant the key describes.
func (k PoolKey) Kind() Kind { return k.Parameters.Kind }

// Pool is the closed union over the two snapshot variants. The only
// implementations are *clpool.Pool and *binpool.Pool; call sites dispatch
// with an exhaustive type switch.
type Pool interface {
	PoolKind() Kind
	PoolKey() PoolKey
	PoolID() ID
}
