package discovery

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/infinitypools/quoter-go/pools"
)

// clStateABI is the read surface of the CL pool manager's state view:
// headline slot0/liquidity plus the tick bitmap and per-tick liquidity used
// for densification.
const clStateABI = `[
  {
    "inputs": [{"internalType": "bytes32", "name": "id", "type": "bytes32"}],
    "name": "getSlot0",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "uint24", "name": "protocolFee", "type": "uint24"},
      {"internalType": "uint24", "name": "lpFee", "type": "uint24"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "id", "type": "bytes32"}],
    "name": "getLiquidity",
    "outputs": [{"internalType": "uint128", "name": "liquidity", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "id", "type": "bytes32"},
      {"internalType": "int16", "name": "wordPos", "type": "int16"}
    ],
    "name": "getTickBitmap",
    "outputs": [{"internalType": "uint256", "name": "bitmap", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "id", "type": "bytes32"},
      {"internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "getTickLiquidity",
    "outputs": [
      {"internalType": "uint128", "name": "liquidityGross", "type": "uint128"},
      {"internalType": "int128", "name": "liquidityNet", "type": "int128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// binStateABI is the read surface of the bin pool manager: the active bin and
// fees, plus per-bin reserves.
const binStateABI = `[
  {
    "inputs": [{"internalType": "bytes32", "name": "id", "type": "bytes32"}],
    "name": "getSlot0",
    "outputs": [
      {"internalType": "uint24", "name": "activeId", "type": "uint24"},
      {"internalType": "uint24", "name": "protocolFee", "type": "uint24"},
      {"internalType": "uint24", "name": "lpFee", "type": "uint24"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "id", "type": "bytes32"},
      {"internalType": "uint24", "name": "binId", "type": "uint24"}
    ],
    "name": "getBin",
    "outputs": [
      {"internalType": "uint128", "name": "binReserveX", "type": "uint128"},
      {"internalType": "uint128", "name": "binReserveY", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	clContract  = mustABI(clStateABI)
	binContract = mustABI(binStateABI)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func packCLSlot0(id pools.ID) []byte {
	data, err := clContract.Pack("getSlot0", [32]byte(id))
	if err != nil {
		panic(err)
	}
	return data
}

func packCLLiquidity(id pools.ID) []byte {
	data, err := clContract.Pack("getLiquidity", [32]byte(id))
	if err != nil {
		panic(err)
	}
	return data
}

func packTickBitmap(id pools.ID, wordPos int16) []byte {
	data, err := clContract.Pack("getTickBitmap", [32]byte(id), wordPos)
	if err != nil {
		panic(err)
	}
	return data
}

func packTickLiquidity(id pools.ID, tick int64) []byte {
	data, err := clContract.Pack("getTickLiquidity", [32]byte(id), big.NewInt(tick))
	if err != nil {
		panic(err)
	}
	return data
}

func packBinSlot0(id pools.ID) []byte {
	data, err := binContract.Pack("getSlot0", [32]byte(id))
	if err != nil {
		panic(err)
	}
	return data
}

func packBin(id pools.ID, binID int64) []byte {
	data, err := binContract.Pack("getBin", [32]byte(id), big.NewInt(binID))
	if err != nil {
		panic(err)
	}
	return data
}

type clSlot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int64
	ProtocolFee  uint32
	LpFee        uint32
}

func unpackCLSlot0(data []byte) (clSlot0, error) {
	vals, err := clContract.Unpack("getSlot0", data)
	if err != nil {
		return clSlot0{}, fmt.Errorf("unpack getSlot0: %w", err)
	}
	return clSlot0{
		SqrtPriceX96: vals[0].(*big.Int),
		Tick:         vals[1].(*big.Int).Int64(),
		ProtocolFee:  uint32(vals[2].(*big.Int).Uint64()),
		LpFee:        uint32(vals[3].(*big.Int).Uint64()),
	}, nil
}

func unpackCLLiquidity(data []byte) (*big.Int, error) {
	vals, err := clContract.Unpack("getLiquidity", data)
	if err != nil {
		return nil, fmt.Errorf("unpack getLiquidity: %w", err)
	}
	return vals[0].(*big.Int), nil
}

func unpackTickBitmap(data []byte) (*big.Int, error) {
	vals, err := clContract.Unpack("getTickBitmap", data)
	if err != nil {
		return nil, fmt.Errorf("unpack getTickBitmap: %w", err)
	}
	return vals[0].(*big.Int), nil
}

func unpackTickLiquidity(data []byte) (gross, net *big.Int, err error) {
	vals, err := clContract.Unpack("getTickLiquidity", data)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getTickLiquidity: %w", err)
	}
	return vals[0].(*big.Int), vals[1].(*big.Int), nil
}

type binSlot0 struct {
	ActiveID    int64
	ProtocolFee uint32
	LpFee       uint32
}

func unpackBinSlot0(data []byte) (binSlot0, error) {
	vals, err := binContract.Unpack("getSlot0", data)
	if err != nil {
		return binSlot0{}, fmt.Errorf("unpack getSlot0: %w", err)
	}
	return binSlot0{
		ActiveID:    vals[0].(*big.Int).Int64(),
		ProtocolFee: uint32(vals[1].(*big.Int).Uint64()),
		LpFee:       uint32(vals[2].(*big.Int).Uint64()),
	}, nil
}

func unpackBin(data []byte) (reserveX, reserveY *big.Int, err error) {
	vals, err := binContract.Unpack("getBin", data)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getBin: %w", err)
	}
	return vals[0].(*big.Int), vals[1].(*big.Int), nil
}
