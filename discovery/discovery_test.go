package discovery

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinitypools/quoter-go/onchain"
	"github.com/infinitypools/quoter-go/pools"
)

var (
	cake = pools.NewToken(56, common.HexToAddress("0x1111111111111111111111111111111111111111"), 18, "CAKE")
	busd = pools.NewToken(56, common.HexToAddress("0x2222222222222222222222222222222222222222"), 18, "BUSD")
	wbnb = pools.NewToken(56, common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"), 18, "WBNB")
)

// q96 is 1.0 as a sqrt price.
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// fakeBatcher answers each call through handle and records every batch. A
// nil data return marks the call failed.
type fakeBatcher struct {
	batches [][]onchain.Call
	handle  func(c onchain.Call) []byte
}

func (f *fakeBatcher) Aggregate(_ context.Context, calls []onchain.Call) ([]onchain.Result, error) {
	f.batches = append(f.batches, calls)
	results := make([]onchain.Result, len(calls))
	for i, c := range calls {
		data := f.handle(c)
		results[i] = onchain.Result{Index: i, Success: data != nil, ReturnData: data}
	}
	return results, nil
}

func packOutputs(t *testing.T, contract string, method string, vals ...any) []byte {
	t.Helper()
	var m = clContract.Methods
	if contract == "bin" {
		m = binContract.Methods
	}
	out, err := m[method].Outputs.Pack(vals...)
	require.NoError(t, err)
	return out
}

// callTo decodes which method a call invokes and its pool id.
func callTo(t *testing.T, c onchain.Call, clManager bool) (method string, id pools.ID) {
	t.Helper()
	contract := clContract
	if !clManager {
		contract = binContract
	}
	m, err := contract.MethodById(c.CallData[:4])
	require.NoError(t, err)
	args, err := m.Inputs.Unpack(c.CallData[4:])
	require.NoError(t, err)
	return m.Name, pools.ID(args[0].([32]byte))
}

func TestCLPools(t *testing.T) {
	cfg, ok := ConfigForChain(56)
	require.True(t, ok)
	liveKey := cfg.clKey(cake, busd, 3000, 60, common.Address{})
	liveID := liveKey.ID()

	batcher := &fakeBatcher{handle: func(c onchain.Call) []byte {
		method, id := callTo(t, c, true)
		switch method {
		case "getSlot0":
			if id == liveID {
				return packOutputs(t, "cl", "getSlot0", q96, big.NewInt(0), big.NewInt(0), big.NewInt(3000))
			}
			// Every other candidate is uninitialized.
			return packOutputs(t, "cl", "getSlot0", big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0))
		case "getLiquidity":
			return packOutputs(t, "cl", "getLiquidity", big.NewInt(1_000_000))
		}
		return nil
	}}

	d, err := New(56, batcher)
	require.NoError(t, err)

	found, err := d.CLPools(context.Background(), cake, busd)
	require.NoError(t, err)
	require.Len(t, found, 1)

	p := found[0]
	assert.Equal(t, liveID, p.PoolID())
	assert.Equal(t, uint32(3000), p.Key.Fee)
	assert.Equal(t, int64(60), p.TickSpacing())
	assert.Zero(t, p.Liquidity.Cmp(big.NewInt(1_000_000)))
	assert.Zero(t, p.SqrtRatioX96.Cmp(q96))
	assert.Empty(t, p.Ticks)

	// Two calls per candidate, paired by position.
	require.Len(t, batcher.batches, 1)
	assert.Equal(t, 0, len(batcher.batches[0])%2)
}

func TestCLPools_SkipsFailedReads(t *testing.T) {
	batcher := &fakeBatcher{handle: func(onchain.Call) []byte { return nil }}
	d, err := New(56, batcher)
	require.NoError(t, err)

	found, err := d.CLPools(context.Background(), cake, busd)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCLPools_Validation(t *testing.T) {
	d, err := New(56, &fakeBatcher{handle: func(onchain.Call) []byte { return nil }})
	require.NoError(t, err)

	t.Run("cross-chain pair", func(t *testing.T) {
		ethToken := pools.NewToken(1, common.HexToAddress("0x3333333333333333333333333333333333333333"), 18, "UNI")
		_, err := d.CLPools(context.Background(), cake, ethToken)
		assert.ErrorIs(t, err, ErrChainMismatch)
	})

	t.Run("wrong chain for discoverer", func(t *testing.T) {
		a := pools.NewToken(1, common.HexToAddress("0x3333333333333333333333333333333333333333"), 18, "UNI")
		b := pools.NewToken(1, common.HexToAddress("0x4444444444444444444444444444444444444444"), 18, "DAI")
		_, err := d.CLPools(context.Background(), a, b)
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})

	t.Run("unknown chain rejected at construction", func(t *testing.T) {
		_, err := New(424242, &fakeBatcher{})
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})
}

func TestBinPools(t *testing.T) {
	cfg, _ := ConfigForChain(56)
	liveKey := cfg.binKey(cake, busd, 2500, 25, common.Address{})
	liveID := liveKey.ID()
	activeID := int64(1) << 23

	batcher := &fakeBatcher{handle: func(c onchain.Call) []byte {
		method, id := callTo(t, c, false)
		if method != "getSlot0" {
			return nil
		}
		if id == liveID {
			return packOutputs(t, "bin", "getSlot0", big.NewInt(activeID), big.NewInt(0), big.NewInt(2500))
		}
		return packOutputs(t, "bin", "getSlot0", big.NewInt(0), big.NewInt(0), big.NewInt(0))
	}}

	d, err := New(56, batcher)
	require.NoError(t, err)

	found, err := d.BinPools(context.Background(), cake, busd)
	require.NoError(t, err)
	require.Len(t, found, 1)

	p := found[0]
	assert.Equal(t, liveID, p.PoolID())
	assert.Equal(t, activeID, p.ActiveID)
	assert.Equal(t, uint16(25), p.BinStep())
	assert.Empty(t, p.Bins)
}

func TestCandidateEnumeration(t *testing.T) {
	d, err := New(56, &fakeBatcher{handle: func(onchain.Call) []byte { return nil }})
	require.NoError(t, err)

	t.Run("plain pair", func(t *testing.T) {
		keys := d.clCandidates(cake, busd)
		// One pair variant, five fee tiers, one hook preset.
		assert.Len(t, keys, 5)
	})

	t.Run("wrapped native expands to the native variant", func(t *testing.T) {
		keys := d.clCandidates(wbnb, busd)
		// The (native, BUSD) variant doubles the candidate space.
		assert.Len(t, keys, 10)
	})

	t.Run("native expands to the wrapped variant", func(t *testing.T) {
		bnb := pools.NewNative(56, 18, "BNB")
		keys := d.clCandidates(bnb, busd)
		assert.Len(t, keys, 10)
	})

	t.Run("no duplicate ids", func(t *testing.T) {
		keys := d.clCandidates(wbnb, busd)
		seen := make(map[pools.ID]bool)
		for _, k := range keys {
			assert.False(t, seen[k.ID()], "duplicate candidate %s", k.ID().Hex())
			seen[k.ID()] = true
		}
	})

	t.Run("enumeration is memoized", func(t *testing.T) {
		first := d.clCandidates(cake, busd)
		second := d.clCandidates(cake, busd)
		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].ID(), second[i].ID())
		}
	})
}
