package util

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/RoaringBitmap/roaring"
	"github.com/cespare/xxhash/v2"
)

const BIT_SET_INIT_CAPA = 4

// Number of trailing zero bits for every byte value. 0 maps to 8.
var byteTrailingZeros = func() (table [256]uint8) {
	table[0] = 8
	for i := 1; i < 256; i++ {
		n := uint8(0)
		for b := i; b&1 == 0; b >>= 1 {
			n++
		}
		table[i] = n
	}
	return
}()

func trailingZeros32(word uint32) int {
	if b := word & 0xff; b != 0 {
		return int(byteTrailingZeros[b])
	}
	if b := (word >> 8) & 0xff; b != 0 {
		return int(byteTrailingZeros[b]) + 8
	}
	if b := (word >> 16) & 0xff; b != 0 {
		return int(byteTrailingZeros[b]) + 16
	}
	return int(byteTrailingZeros[word>>24]) + 24
}

/*
BitSet is a growable bit vector. Every bit at or above Size() reads as
ExtendsAsOnes(), so the result of Not() is logically infinite. The
set-bit count only covers [0, Size()).

BitSet is used as the deletion marker of a segment: bit i is set when
document i is deleted.
*/
type BitSet struct {
	words         []uint32
	size          int
	count         int
	extendsAsOnes bool
	curr          int
}

func NewBitSet() *BitSet {
	return &BitSet{words: make([]uint32, BIT_SET_INIT_CAPA), curr: -1}
}

// NewBitSetOfCapa pre-allocates room for numBits bits.
func NewBitSetOfCapa(numBits int) *BitSet {
	capa := BIT_SET_INIT_CAPA
	for capa < (numBits>>5)+1 {
		capa <<= 1
	}
	return &BitSet{words: make([]uint32, capa), curr: -1}
}

/*
NewBitSetFromWords rebuilds a set of the given logical size from its
words. The slice is owned by the set afterwards.
*/
func NewBitSetFromWords(size int, words []uint32) *BitSet {
	assert2(size >= 0, "negative bit set size %v", size)
	need := wordsFor(size)
	capa := BIT_SET_INIT_CAPA
	for capa < need {
		capa <<= 1
	}
	bs := &BitSet{words: make([]uint32, capa), size: size, curr: -1}
	copy(bs.words, words)
	bs.paintTail(false)
	bs.Recount()
	return bs
}

func wordsFor(size int) int {
	if size == 0 {
		return 0
	}
	return ((size - 1) >> 5) + 1
}

func (bs *BitSet) fill() uint32 {
	if bs.extendsAsOnes {
		return 0xffffffff
	}
	return 0
}

// word returns word i, reading past capacity as the fill word.
func (bs *BitSet) word(i int) uint32 {
	if i < len(bs.words) {
		return bs.words[i]
	}
	return bs.fill()
}

// paintTail makes the bits in [size, capacity) match the fill.
func (bs *BitSet) paintTail(ones bool) {
	w := bs.size >> 5
	if w >= len(bs.words) {
		return
	}
	if shift := uint(bs.size & 31); shift != 0 {
		mask := uint32(0xffffffff) << shift
		if ones {
			bs.words[w] |= mask
		} else {
			bs.words[w] &= ^mask
		}
		w++
	}
	fill := uint32(0)
	if ones {
		fill = 0xffffffff
	}
	for ; w < len(bs.words); w++ {
		bs.words[w] = fill
	}
}

func (bs *BitSet) grow(bit int) {
	word := bit >> 5
	if word >= len(bs.words) {
		capa := len(bs.words)
		if capa == 0 {
			capa = BIT_SET_INIT_CAPA
		}
		for capa <= word {
			capa <<= 1
		}
		words := make([]uint32, capa)
		n := copy(words, bs.words)
		fill := bs.fill()
		for i := n; i < capa; i++ {
			words[i] = fill
		}
		bs.words = words
	}
	if bs.extendsAsOnes {
		// bits entering [0, size) are all ones already
		bs.count += bit + 1 - bs.size
	}
	bs.size = bit + 1
}

func (bs *BitSet) Set(bit int) {
	assert2(bit >= 0, "bit index must be >= 0 (got %v)", bit)
	if bit >= bs.size {
		bs.grow(bit)
	}
	mask := uint32(1) << uint(bit&31)
	if w := &bs.words[bit>>5]; *w&mask == 0 {
		*w |= mask
		bs.count++
	}
}

/*
UnsafeSetOnFast sets bit with no growth and no count bookkeeping
beyond a single increment. Callers must pass strictly increasing
indexes that already fit in the allocated capacity and must only use
it on a set that does not extend as ones. Anything else corrupts the
set.
*/
func (bs *BitSet) UnsafeSetOnFast(bit int) {
	bs.words[bit>>5] |= uint32(1) << uint(bit&31)
	bs.size = bit + 1
	bs.count++
}

func (bs *BitSet) Unset(bit int) {
	assert2(bit >= 0, "bit index must be >= 0 (got %v)", bit)
	if bit >= bs.size {
		bs.grow(bit)
	}
	mask := uint32(1) << uint(bit&31)
	if w := &bs.words[bit>>5]; *w&mask != 0 {
		*w &= ^mask
		bs.count--
	}
}

func (bs *BitSet) Get(bit int) bool {
	assert2(bit >= 0, "bit index must be >= 0 (got %v)", bit)
	if bit >= bs.size {
		return bs.extendsAsOnes
	}
	return bs.words[bit>>5]&(uint32(1)<<uint(bit&31)) != 0
}

// Clear unsets every bit and drops the ones-extension.
func (bs *BitSet) Clear() {
	for i := range bs.words {
		bs.words[i] = 0
	}
	bs.size = 0
	bs.count = 0
	bs.extendsAsOnes = false
	bs.curr = -1
}

func (bs *BitSet) Size() int { return bs.size }

func (bs *BitSet) ExtendsAsOnes() bool { return bs.extendsAsOnes }

// Count returns the number of set bits below Size().
func (bs *BitSet) Count() int { return bs.count }

// Recount recomputes the cached count from the words.
func (bs *BitSet) Recount() int {
	c := 0
	full := bs.size >> 5
	for i := 0; i < full; i++ {
		c += bits.OnesCount32(bs.words[i])
	}
	if rem := uint(bs.size & 31); rem != 0 {
		c += bits.OnesCount32(bs.words[full] & ((uint32(1) << rem) - 1))
	}
	bs.count = c
	return c
}

// Words returns the significant words, enough to cover Size() bits.
func (bs *BitSet) Words() []uint32 {
	return bs.words[:wordsFor(bs.size)]
}

func (bs *BitSet) ScanReset() { bs.curr = -1 }

// ScanNext returns the next set bit after the last one scanned, or -1.
func (bs *BitSet) ScanNext() int {
	return bs.ScanNextFrom(bs.curr + 1)
}

/*
ScanNextFrom returns the first set bit at or after from, or -1 when
there is none. A set extending as ones always has one.
*/
func (bs *BitSet) ScanNextFrom(from int) int {
	assert2(from >= 0, "bit index must be >= 0 (got %v)", from)
	bs.curr = bs.scan(from, 0)
	return bs.curr
}

func (bs *BitSet) ScanNextUnset() int {
	return bs.ScanNextUnsetFrom(bs.curr + 1)
}

// ScanNextUnsetFrom is ScanNextFrom for unset bits.
func (bs *BitSet) ScanNextUnsetFrom(from int) int {
	assert2(from >= 0, "bit index must be >= 0 (got %v)", from)
	bs.curr = bs.scan(from, 0xffffffff)
	return bs.curr
}

// scan looks for the first bit >= from whose value differs from flip's.
func (bs *BitSet) scan(from int, flip uint32) int {
	tailHit := bs.extendsAsOnes == (flip == 0)
	if from >= bs.size {
		if tailHit {
			return from
		}
		return -1
	}
	last := wordsFor(bs.size)
	pos := from >> 5
	word := (bs.words[pos] ^ flip) >> uint(from&31)
	if word != 0 {
		return from + trailingZeros32(word)
	}
	for pos++; pos < last; pos++ {
		if word = bs.words[pos] ^ flip; word != 0 {
			return pos<<5 + trailingZeros32(word)
		}
	}
	if tailHit {
		return bs.size
	}
	return -1
}

func (bs *BitSet) Clone() *BitSet {
	words := make([]uint32, len(bs.words))
	copy(words, bs.words)
	return &BitSet{
		words:         words,
		size:          bs.size,
		count:         bs.count,
		extendsAsOnes: bs.extendsAsOnes,
		curr:          -1,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (bs *BitSet) combine(o *BitSet, op func(a, b uint32) uint32) *BitSet {
	size := maxInt(bs.size, o.size)
	ext := op(bs.fill(), o.fill()) != 0
	n := maxInt(wordsFor(size), 1)
	capa := BIT_SET_INIT_CAPA
	for capa < n {
		capa <<= 1
	}
	ans := &BitSet{words: make([]uint32, capa), size: size, extendsAsOnes: ext, curr: -1}
	for i := 0; i < n; i++ {
		ans.words[i] = op(bs.word(i), o.word(i))
	}
	ans.paintTail(ext)
	ans.Recount()
	return ans
}

func (bs *BitSet) assign(o *BitSet) *BitSet {
	bs.words, bs.size, bs.count, bs.extendsAsOnes = o.words, o.size, o.count, o.extendsAsOnes
	bs.curr = -1
	return bs
}

func (bs *BitSet) And(o *BitSet) *BitSet {
	return bs.combine(o, func(a, b uint32) uint32 { return a & b })
}

func (bs *BitSet) Or(o *BitSet) *BitSet {
	return bs.combine(o, func(a, b uint32) uint32 { return a | b })
}

func (bs *BitSet) Xor(o *BitSet) *BitSet {
	return bs.combine(o, func(a, b uint32) uint32 { return a ^ b })
}

func (bs *BitSet) Not() *BitSet {
	ans := &BitSet{
		words:         make([]uint32, len(bs.words)),
		size:          bs.size,
		extendsAsOnes: !bs.extendsAsOnes,
		curr:          -1,
	}
	for i, w := range bs.words {
		ans.words[i] = ^w
	}
	ans.Recount()
	return ans
}

func (bs *BitSet) AndX(o *BitSet) *BitSet { return bs.assign(bs.And(o)) }
func (bs *BitSet) OrX(o *BitSet) *BitSet  { return bs.assign(bs.Or(o)) }
func (bs *BitSet) XorX(o *BitSet) *BitSet { return bs.assign(bs.Xor(o)) }
func (bs *BitSet) NotX() *BitSet          { return bs.assign(bs.Not()) }

// significant returns the number of words that differ from the fill.
func (bs *BitSet) significant() int {
	fill := bs.fill()
	n := len(bs.words)
	for n > 0 && bs.words[n-1] == fill {
		n--
	}
	return n
}

// Eq compares the sets bit by bit over the whole (infinite) range.
func (bs *BitSet) Eq(o *BitSet) bool {
	if bs == o {
		return true
	}
	if bs.extendsAsOnes != o.extendsAsOnes {
		return false
	}
	n := maxInt(len(bs.words), len(o.words))
	for i := 0; i < n; i++ {
		if bs.word(i) != o.word(i) {
			return false
		}
	}
	return true
}

func (bs *BitSet) Hash() uint64 {
	n := bs.significant()
	buf := make([]byte, 4*n+1)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], bs.words[i])
	}
	if bs.extendsAsOnes {
		buf[4*n] = 1
	}
	return xxhash.Sum64(buf)
}

// ToRoaring exports the set bits below Size().
func (bs *BitSet) ToRoaring() *roaring.Bitmap {
	rb := roaring.New()
	for i := bs.scan(0, 0); i >= 0 && i < bs.size; i = bs.scan(i+1, 0) {
		rb.Add(uint32(i))
	}
	return rb
}

func (bs *BitSet) String() string {
	return fmt.Sprintf("BitSet(size=%v, count=%v, extendsAsOnes=%v)", bs.size, bs.count, bs.extendsAsOnes)
}
