// Package bitset provides a fixed-size bit set over 64-bit words, used to
// decode the 256-bit tick bitmap words fetched during pool densification.
package bitset

import (
	"fmt"
	"math/big"
	"math/bits"
)

func NewBitSet(len uint64) BitSet {
	words := (len + 63) / 64
	return make([]uint64, words)
}

type BitSet []uint64

// FromWord builds a 256-bit set from an on-chain bitmap word.
func FromWord(word *big.Int) BitSet {
	b := NewBitSet(256)
	for i, w := range word.Bits() {
		if i >= len(b) {
			break
		}
		b[i] = uint64(w)
	}
	return b
}

func (b BitSet) IsSet(index uint64) bool {
	return (b[index/64] & (uint64(1) << (index % 64))) != 0
}

func (b BitSet) Set(index uint64) {
	b[index/64] |= uint64(1) << (index % 64)
}

func (b BitSet) Unset(index uint64) {
	b[index/64] &^= uint64(1) << (index % 64)
}

// Ones returns the indexes of all set bits in ascending order.
func (b BitSet) Ones() []uint64 {
	var out []uint64
	for wi, w := range b {
		for w != 0 {
			bit := uint64(bits.TrailingZeros64(w))
			out = append(out, uint64(wi)*64+bit)
			w &= w - 1
		}
	}
	return out
}

func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitsets must be same size: got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}
