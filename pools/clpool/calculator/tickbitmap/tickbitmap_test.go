package tickbitmap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/infinitypools/quoter-go/pools/clpool"
)

func makeTicks(indexes ...int64) []clpool.Tick {
	ticks := make([]clpool.Tick, 0, len(indexes))
	for _, idx := range indexes {
		ticks = append(ticks, clpool.Tick{
			Index:          idx,
			LiquidityNet:   big.NewInt(1),
			LiquidityGross: big.NewInt(1),
		})
	}
	return ticks
}

func TestNextInitializedTick(t *testing.T) {
	ticks := makeTicks(-200, -55, -4, 70, 78, 84, 139, 240, 535)

	t.Run("lte true, exact hit", func(t *testing.T) {
		next, initialized := NextInitializedTick(ticks, 78, true)
		assert.True(t, initialized)
		assert.Equal(t, int64(78), next)
	})

	t.Run("lte true, between ticks", func(t *testing.T) {
		next, initialized := NextInitializedTick(ticks, 79, true)
		assert.True(t, initialized)
		assert.Equal(t, int64(78), next)
	})

	t.Run("lte true, below all ticks", func(t *testing.T) {
		_, initialized := NextInitializedTick(ticks, -201, true)
		assert.False(t, initialized)
	})

	t.Run("lte true, at lowest tick", func(t *testing.T) {
		next, initialized := NextInitializedTick(ticks, -200, true)
		assert.True(t, initialized)
		assert.Equal(t, int64(-200), next)
	})

	t.Run("lte false, strictly above", func(t *testing.T) {
		next, initialized := NextInitializedTick(ticks, 78, false)
		assert.True(t, initialized)
		assert.Equal(t, int64(84), next)
	})

	t.Run("lte false, between ticks", func(t *testing.T) {
		next, initialized := NextInitializedTick(ticks, -56, false)
		assert.True(t, initialized)
		assert.Equal(t, int64(-55), next)
	})

	t.Run("lte false, above all ticks", func(t *testing.T) {
		_, initialized := NextInitializedTick(ticks, 535, false)
		assert.False(t, initialized)
	})

	t.Run("empty tick list", func(t *testing.T) {
		_, initialized := NextInitializedTick(nil, 0, true)
		assert.False(t, initialized)
		_, initialized = NextInitializedTick(nil, 0, false)
		assert.False(t, initialized)
	})
}
