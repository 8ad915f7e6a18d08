package wire

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinitypools/quoter-go/pools"
	"github.com/infinitypools/quoter-go/pools/binpool"
	"github.com/infinitypools/quoter-go/pools/binpool/binmath"
	"github.com/infinitypools/quoter-go/pools/clpool"
	"github.com/infinitypools/quoter-go/pools/clpool/calculator"
)

var (
	token0 = pools.NewToken(1, common.HexToAddress("0x1000000000000000000000000000000000000001"), 18, "AAA")
	token1 = pools.NewToken(1, common.HexToAddress("0x2000000000000000000000000000000000000002"), 6, "BBB")
	native = pools.NewNative(56, 18, "BNB")
)

func e18(x int64) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return unit.Mul(unit, big.NewInt(x))
}

func newCLFixture() *clpool.Pool {
	key := pools.NewPoolKey(
		token0, token1,
		common.Address{}, common.HexToAddress("0x4000000000000000000000000000000000000004"),
		3000,
		pools.Parameters{Kind: pools.KindCL, TickSpacing: 60},
	)
	p := clpool.New(key, 100, e18(7), new(big.Int).Lsh(big.NewInt(1), 96), -3)
	p.Reserve0 = e18(12)
	p.Reserve1 = e18(34)
	return p.WithTicks([]clpool.Tick{
		{Index: -120, LiquidityNet: e18(7), LiquidityGross: e18(7)},
		{Index: 120, LiquidityNet: e18(-7), LiquidityGross: e18(7)},
	})
}

func newBinFixture() *binpool.Pool {
	key := pools.NewPoolKey(
		native, token0,
		common.Address{}, common.HexToAddress("0x5000000000000000000000000000000000000005"),
		2500,
		pools.Parameters{Kind: pools.KindBin, BinStep: 25},
	)
	active := binmath.IDOffset
	p := binpool.New(key, 50, active)
	return p.WithBins(map[int64]binpool.Reserves{
		active - 1: {ReserveX: new(big.Int), ReserveY: e18(2)},
		active:     {ReserveX: e18(1), ReserveY: e18(1)},
		active + 1: {ReserveX: e18(3), ReserveY: new(big.Int)},
	})
}

func TestRoundTrip_CL(t *testing.T) {
	orig := newCLFixture()

	env, err := Serialize(orig)
	require.NoError(t, err)
	require.Equal(t, "cl", env.Kind)
	require.NotNil(t, env.CL)
	require.Nil(t, env.Bin)

	// Through JSON and back, as a stored snapshot would travel.
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded Pool
	require.NoError(t, json.Unmarshal(raw, &decoded))

	parsed, err := Parse(&decoded)
	require.NoError(t, err)

	again, err := Serialize(parsed)
	require.NoError(t, err)
	assert.Equal(t, env, again)

	back, ok := parsed.(*clpool.Pool)
	require.True(t, ok)
	assert.Equal(t, orig.PoolID(), back.PoolID())
	assert.Equal(t, orig.Tick, back.Tick)
	assert.Zero(t, orig.Liquidity.Cmp(back.Liquidity))
	assert.Zero(t, orig.SqrtRatioX96.Cmp(back.SqrtRatioX96))
	require.Len(t, back.Ticks, len(orig.Ticks))
	for i, tk := range orig.Ticks {
		assert.Equal(t, tk.Index, back.Ticks[i].Index)
		assert.Zero(t, tk.LiquidityNet.Cmp(back.Ticks[i].LiquidityNet))
		assert.Zero(t, tk.LiquidityGross.Cmp(back.Ticks[i].LiquidityGross))
	}
}

func TestRoundTrip_Bin(t *testing.T) {
	orig := newBinFixture()

	env, err := Serialize(orig)
	require.NoError(t, err)
	require.Equal(t, "bin", env.Kind)
	require.NotNil(t, env.Bin)
	require.Nil(t, env.CL)
	assert.True(t, env.Bin.Currency0.Native)
	assert.Empty(t, env.Bin.Currency0.Address)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded Pool
	require.NoError(t, json.Unmarshal(raw, &decoded))

	parsed, err := Parse(&decoded)
	require.NoError(t, err)

	again, err := Serialize(parsed)
	require.NoError(t, err)
	assert.Equal(t, env, again)

	back, ok := parsed.(*binpool.Pool)
	require.True(t, ok)
	assert.Equal(t, orig.PoolID(), back.PoolID())
	assert.Equal(t, orig.ActiveID, back.ActiveID)
	assert.True(t, back.Key.Currency0.Native)
	require.Len(t, back.Bins, len(orig.Bins))
	for id, r := range orig.Bins {
		got, ok := back.Bins[id]
		require.True(t, ok, "bin %d missing after round trip", id)
		assert.Zero(t, r.ReserveX.Cmp(got.ReserveX))
		assert.Zero(t, r.ReserveY.Cmp(got.ReserveY))
	}
}

func TestRoundTrip_QuotesIdentically(t *testing.T) {
	t.Run("cl", func(t *testing.T) {
		orig := newCLFixture()
		env, err := Serialize(orig)
		require.NoError(t, err)
		parsed, err := Parse(env)
		require.NoError(t, err)

		in := pools.NewAmount(token0, big.NewInt(5_000_000))
		want, err := calculator.ExactIn(orig, in, nil)
		require.NoError(t, err)
		require.NotNil(t, want)
		got, err := calculator.ExactIn(parsed.(*clpool.Pool), in, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Zero(t, want.Amount.Cmp(got.Amount))
	})

	t.Run("bin", func(t *testing.T) {
		orig := newBinFixture()
		env, err := Serialize(orig)
		require.NoError(t, err)
		parsed, err := Parse(env)
		require.NoError(t, err)

		in := pools.NewAmount(native, big.NewInt(5_000_000))
		want, err := orig.ExactIn(in)
		require.NoError(t, err)
		require.NotNil(t, want)
		got, err := parsed.(*binpool.Pool).ExactIn(in)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Zero(t, want.Amount.Cmp(got.Amount))
	})
}

func TestParse_Errors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := Parse(&Pool{Kind: "stable"})
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("kind without payload", func(t *testing.T) {
		_, err := Parse(&Pool{Kind: "cl"})
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("bad liquidity string", func(t *testing.T) {
		env, err := Serialize(newCLFixture())
		require.NoError(t, err)
		env.CL.Liquidity = "not-a-number"
		_, err = Parse(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "liquidity")
	})

	t.Run("bad tick net string", func(t *testing.T) {
		env, err := Serialize(newCLFixture())
		require.NoError(t, err)
		env.CL.Ticks[0].LiquidityNet = "0x10"
		_, err = Parse(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "liquidityNet")
	})

	t.Run("bad bin id", func(t *testing.T) {
		env, err := Serialize(newBinFixture())
		require.NoError(t, err)
		env.Bin.Bins["abc"] = BinReserves{ReserveX: "1", ReserveY: "1"}
		_, err = Parse(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid bin id")
	})

	t.Run("bad reserve string", func(t *testing.T) {
		env, err := Serialize(newBinFixture())
		require.NoError(t, err)
		env.Bin.Bins["8388608"] = BinReserves{ReserveX: "", ReserveY: "1"}
		_, err = Parse(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserveX")
	})

	t.Run("serialize rejects unknown variant", func(t *testing.T) {
		_, err := Serialize(nil)
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}
