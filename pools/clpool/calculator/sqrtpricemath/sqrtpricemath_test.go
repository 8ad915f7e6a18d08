package sqrtpricemath

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRandInt(bits int) *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return n
}

func TestGetAmount0Delta_Invariants(t *testing.T) {
	for i := 0; i < 1000; i++ {
		sqrtP := newRandInt(160)
		sqrtQ := newRandInt(160)
		liquidity := newRandInt(128)

		if sqrtP.Sign() == 0 {
			sqrtP.SetInt64(1)
		}
		if sqrtQ.Sign() == 0 {
			sqrtQ.SetInt64(1)
		}

		amount0Down := new(big.Int)
		err := GetAmount0Delta(amount0Down, sqrtP, sqrtQ, liquidity, false)
		require.NoError(t, err)

		amount0Up := new(big.Int)
		err = GetAmount0Delta(amount0Up, sqrtP, sqrtQ, liquidity, true)
		require.NoError(t, err)

		assert.True(t, amount0Down.Cmp(amount0Up) <= 0)

		diff := new(big.Int).Sub(amount0Up, amount0Down)
		assert.True(t, diff.Cmp(big.NewInt(2)) < 0)
	}
}

func TestGetAmount1Delta_Invariants(t *testing.T) {
	for i := 0; i < 1000; i++ {
		sqrtP := newRandInt(160)
		sqrtQ := newRandInt(160)
		liquidity := newRandInt(128)

		if sqrtP.Sign() == 0 {
			sqrtP.SetInt64(1)
		}
		if sqrtQ.Sign() == 0 {
			sqrtQ.SetInt64(1)
		}

		amount1Down := new(big.Int)
		GetAmount1Delta(amount1Down, sqrtP, sqrtQ, liquidity, false)

		amount1Up := new(big.Int)
		GetAmount1Delta(amount1Up, sqrtP, sqrtQ, liquidity, true)

		assert.True(t, amount1Down.Cmp(amount1Up) <= 0)

		diff := new(big.Int).Sub(amount1Up, amount1Down)
		assert.True(t, diff.Cmp(big.NewInt(2)) < 0)
	}
}

func TestGetNextSqrtPriceFromInput_Invariants(t *testing.T) {
	for i := 0; i < 100; i++ {
		sqrtP := newRandInt(160)
		liquidity := newRandInt(128)
		amountIn := newRandInt(256)
		zeroForOne := i%2 == 0

		if sqrtP.Sign() == 0 {
			sqrtP.SetInt64(1)
		}
		if liquidity.Sign() == 0 {
			liquidity.SetInt64(1)
		}

		sqrtQ := new(big.Int)
		err := GetNextSqrtPriceFromInput(sqrtQ, sqrtP, liquidity, amountIn, zeroForOne)
		if err != nil {
			continue
		}

		if zeroForOne {
			assert.True(t, sqrtQ.Cmp(sqrtP) <= 0)
			delta := new(big.Int)
			if err := GetAmount0Delta(delta, sqrtQ, sqrtP, liquidity, true); err == nil {
				assert.True(t, amountIn.Cmp(delta) >= 0)
			}
		} else {
			assert.True(t, sqrtQ.Cmp(sqrtP) >= 0)
			delta := new(big.Int)
			GetAmount1Delta(delta, sqrtP, sqrtQ, liquidity, true)
			assert.True(t, amountIn.Cmp(delta) >= 0)
		}
	}
}

func TestGetNextSqrtPriceFromOutput_Invariants(t *testing.T) {
	for i := 0; i < 100; i++ {
		sqrtP := newRandInt(160)
		liquidity := newRandInt(128)
		amountOut := newRandInt(128)
		zeroForOne := i%2 == 0

		if sqrtP.Sign() == 0 {
			sqrtP.SetInt64(1)
		}
		if liquidity.Sign() == 0 {
			liquidity.SetInt64(1)
		}

		sqrtQ := new(big.Int)
		err := GetNextSqrtPriceFromOutput(sqrtQ, sqrtP, liquidity, amountOut, zeroForOne)
		if err != nil {
			continue
		}

		if zeroForOne {
			// selling currency0 pushes the price down
			assert.True(t, sqrtQ.Cmp(sqrtP) <= 0)
		} else {
			assert.True(t, sqrtQ.Cmp(sqrtP) >= 0)
		}
	}
}

func TestGetNextSqrtPriceFromInput_InputValidation(t *testing.T) {
	t.Run("zero price", func(t *testing.T) {
		err := GetNextSqrtPriceFromInput(new(big.Int), big.NewInt(0), big.NewInt(1), big.NewInt(1), true)
		assert.ErrorIs(t, err, ErrSqrtPriceZero)
	})

	t.Run("zero liquidity", func(t *testing.T) {
		err := GetNextSqrtPriceFromInput(new(big.Int), big.NewInt(1), big.NewInt(0), big.NewInt(1), true)
		assert.ErrorIs(t, err, ErrLiquidityZero)
	})

	t.Run("zero amount is identity", func(t *testing.T) {
		sqrtP := new(big.Int).Lsh(big.NewInt(1), 96)
		sqrtQ := new(big.Int)
		require.NoError(t, GetNextSqrtPriceFromInput(sqrtQ, sqrtP, big.NewInt(1000), big.NewInt(0), true))
		assert.Zero(t, sqrtP.Cmp(sqrtQ))
	})
}
