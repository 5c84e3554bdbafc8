package util

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitSetSetGet(t *testing.T) {
	bs := NewBitSet()
	for _, i := range []int{0, 1, 31, 32, 100, 1000} {
		bs.Set(i)
		assert.True(t, bs.Get(i), "bit %v", i)
	}
	assert.Equal(t, 6, bs.Count())
	assert.Equal(t, 1001, bs.Size())
	assert.False(t, bs.Get(2))
	assert.False(t, bs.Get(5000))

	bs.Unset(31)
	assert.False(t, bs.Get(31))
	assert.Equal(t, 5, bs.Count())
	assert.Equal(t, 5, bs.Recount())

	bs.Set(1000)
	assert.Equal(t, 5, bs.Count())

	bs.Clear()
	assert.Equal(t, 0, bs.Count())
	assert.False(t, bs.Get(1000))
}

func TestBitSetNegativeIndex(t *testing.T) {
	bs := NewBitSet()
	assert.Panics(t, func() { bs.Set(-1) })
	assert.Panics(t, func() { bs.Get(-1) })
}

func TestBitSetGrowthRepaintsOnes(t *testing.T) {
	bs := NewBitSet().Not()
	require.True(t, bs.ExtendsAsOnes())
	assert.True(t, bs.Get(10000))

	bs.Unset(200)
	assert.False(t, bs.Get(200))
	assert.True(t, bs.Get(199))
	assert.True(t, bs.Get(201))
	assert.True(t, bs.Get(1<<16))
	assert.Equal(t, 200, bs.Count())
	assert.Equal(t, 200, bs.Recount())
}

func TestBitSetScan(t *testing.T) {
	bs := NewBitSet()
	bits := []int{3, 8, 31, 32, 64, 65, 300}
	for _, b := range bits {
		bs.Set(b)
	}
	var got []int
	for i := bs.ScanNext(); i >= 0; i = bs.ScanNext() {
		got = append(got, i)
	}
	assert.Equal(t, bits, got)

	assert.Equal(t, 64, bs.ScanNextFrom(33))
	assert.Equal(t, -1, bs.ScanNextFrom(301))

	assert.Equal(t, 0, bs.ScanNextUnsetFrom(0))
	assert.Equal(t, 9, bs.ScanNextUnsetFrom(8))
	assert.Equal(t, 33, bs.ScanNextUnsetFrom(31))
	assert.Equal(t, 301, bs.ScanNextUnsetFrom(300))

	ones := bs.Not()
	assert.Equal(t, 3, ones.ScanNextUnsetFrom(0))
	assert.Equal(t, -1, ones.ScanNextUnsetFrom(301))
	assert.Equal(t, 301, ones.ScanNextFrom(300))
}

func TestBitSetScanDense(t *testing.T) {
	bs := NewBitSet()
	for i := 0; i < 1000; i++ {
		bs.Set(i)
	}
	assert.Equal(t, 1000, bs.ScanNextUnsetFrom(0))
	for i := 0; i < 1000; i += 7 {
		assert.Equal(t, i, bs.ScanNextFrom(i))
	}
}

func randomBitSet(r *rand.Rand) *BitSet {
	bs := NewBitSet()
	n := r.Intn(500)
	for i := 0; i < n; i++ {
		bs.Set(r.Intn(700))
	}
	if r.Intn(3) == 0 {
		bs = bs.Not()
		for i := 0; i < 20; i++ {
			bs.Unset(r.Intn(900))
		}
	}
	return bs
}

func TestBitSetAlgebra(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	empty := NewBitSet()
	universe := NewBitSet().Not()
	for iter := 0; iter < 200; iter++ {
		a, b := randomBitSet(r), randomBitSet(r)

		assert.True(t, a.And(a.Not()).Eq(empty), "A AND NOT A")
		assert.True(t, a.Or(a.Not()).Eq(universe), "A OR NOT A")
		assert.True(t, a.Not().Not().Eq(a), "NOT NOT A")
		assert.True(t, a.And(b).Not().Eq(a.Not().Or(b.Not())), "De Morgan AND")
		assert.True(t, a.Or(b).Not().Eq(a.Not().And(b.Not())), "De Morgan OR")
		assert.True(t, a.Xor(b).Eq(a.And(b.Not()).Or(a.Not().And(b))), "XOR")
		assert.True(t, a.Xor(a).Eq(empty), "A XOR A")

		for i := 0; i < 1000; i++ {
			if a.And(b).Get(i) != (a.Get(i) && b.Get(i)) {
				t.Fatalf("AND mismatch at %v", i)
			}
			if a.Or(b).Get(i) != (a.Get(i) || b.Get(i)) {
				t.Fatalf("OR mismatch at %v", i)
			}
		}

		c := a.Clone()
		c.OrX(b)
		assert.True(t, c.Eq(a.Or(b)))
		assert.Equal(t, c.Hash(), a.Or(b).Hash())
	}
}

func TestBitSetCountMatchesBits(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 50; iter++ {
		bs := randomBitSet(r)
		n := 0
		for i := 0; i < bs.Size(); i++ {
			if bs.Get(i) {
				n++
			}
		}
		assert.Equal(t, n, bs.Count())
		assert.Equal(t, n, bs.Recount())
	}
}

func TestBitSetEqIgnoresCapacity(t *testing.T) {
	a := NewBitSet()
	b := NewBitSetOfCapa(10000)
	a.Set(5)
	b.Set(5)
	assert.True(t, a.Eq(b))
	assert.Equal(t, a.Hash(), b.Hash())

	b.Set(9000)
	b.Unset(9000)
	assert.True(t, a.Eq(b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestBitSetFromWords(t *testing.T) {
	a := NewBitSet()
	for _, i := range []int{1, 33, 77} {
		a.Set(i)
	}
	b := NewBitSetFromWords(a.Size(), append([]uint32(nil), a.Words()...))
	assert.True(t, a.Eq(b))
	assert.Equal(t, 3, b.Count())
}

func TestBitSetUnsafeSetOnFast(t *testing.T) {
	bs := NewBitSetOfCapa(128)
	for _, i := range []int{2, 40, 127} {
		bs.UnsafeSetOnFast(i)
	}
	assert.Equal(t, 3, bs.Count())
	assert.Equal(t, 128, bs.Size())
	assert.True(t, bs.Get(40))
}

func TestBitSetToRoaring(t *testing.T) {
	bs := NewBitSet()
	bs.Set(4)
	bs.Set(70)
	rb := bs.ToRoaring()
	assert.Equal(t, uint64(2), rb.GetCardinality())
	assert.True(t, rb.Contains(70))
}
