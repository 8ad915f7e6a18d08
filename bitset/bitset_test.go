package bitset

import (
	"math/big"
	"testing"
)

func TestBitSet_SetUnsetIsSet(t *testing.T) {
	bs := NewBitSet(256)

	for _, bit := range []uint64{0, 63, 64, 255} {
		bs.Set(bit)
		if !bs.IsSet(bit) {
			t.Errorf("expected bit %d to be set", bit)
		}
	}
	if bs.IsSet(1) {
		t.Error("expected bit 1 to be not set")
	}

	bs.Unset(64)
	if bs.IsSet(64) {
		t.Error("expected bit 64 to be unset")
	}
	if !bs.IsSet(63) || !bs.IsSet(255) {
		t.Error("expected neighboring bits to remain set")
	}
}

func TestBitSet_FromWord(t *testing.T) {
	t.Run("low bits", func(t *testing.T) {
		bs := FromWord(big.NewInt(0b1011))
		for _, bit := range []uint64{0, 1, 3} {
			if !bs.IsSet(bit) {
				t.Errorf("expected bit %d set", bit)
			}
		}
		if bs.IsSet(2) {
			t.Error("expected bit 2 unset")
		}
	})

	t.Run("high bit of a 256-bit word", func(t *testing.T) {
		word := new(big.Int).Lsh(big.NewInt(1), 255)
		bs := FromWord(word)
		if !bs.IsSet(255) {
			t.Error("expected bit 255 set")
		}
	})

	t.Run("zero word", func(t *testing.T) {
		bs := FromWord(new(big.Int))
		if got := bs.Ones(); len(got) != 0 {
			t.Errorf("expected no set bits, got %v", got)
		}
	})
}

func TestBitSet_Ones(t *testing.T) {
	bs := NewBitSet(256)
	want := []uint64{0, 2, 63, 64, 130, 255}
	for _, bit := range want {
		bs.Set(bit)
	}

	got := bs.Ones()
	if len(got) != len(want) {
		t.Fatalf("Ones() returned %d bits, want %d", len(got), len(want))
	}
	for i, bit := range want {
		if got[i] != bit {
			t.Errorf("Ones()[%d] = %d, want %d (ascending order)", i, got[i], bit)
		}
	}
}

func TestBitSet_SetFrom(t *testing.T) {
	src := BitSet{0b1010, 0b1111}
	dst := BitSet{0, 0}

	dst.SetFrom(src)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("SetFrom: dst[%d]=%b, want %b", i, dst[i], src[i])
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("SetFrom did not panic on mismatched lengths")
		}
	}()
	short := BitSet{0}
	short.SetFrom(src)
}

func TestBitSet_Clear(t *testing.T) {
	bs := NewBitSet(128)
	bs.Set(5)
	bs.Set(100)
	bs.Clear()
	if len(bs.Ones()) != 0 {
		t.Error("expected all bits cleared")
	}
}
