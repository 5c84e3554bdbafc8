package store

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const TEST_FILE_LENGTH = int64(100 * 1024)

func byten(n int64) byte {
	return byte(n * n % 256)
}

// generatedFile is a "file" whose content is computed from the offset.
type generatedFile int64

func (f generatedFile) ReadAt(p []byte, off int64) (int, error) {
	n := 0
	for ; n < len(p) && off+int64(n) < int64(f); n++ {
		p[n] = byten(off + int64(n))
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func newGeneratedInput(length int64) *BufferedIndexInput {
	return newBufferedIndexInput(fmt.Sprintf("generated(len=%v)", length),
		generatedFile(length), nil, 0, length, BUFFER_SIZE)
}

func assertEquals(t *testing.T, a, b interface{}) {
	t.Helper()
	if a != b {
		t.Errorf("Expected '%v', but '%v'", b, a)
	}
}

func random() *rand.Rand {
	seed := time.Now().Unix()
	fmt.Println("Seed: ", seed)
	return rand.New(rand.NewSource(seed))
}

// Call ReadByte() repeatedly, past the buffer boundary, and see that
// it is working as expected.
func TestReadByte(t *testing.T) {
	input := newGeneratedInput(TEST_FILE_LENGTH)
	for i := 0; i < BUFFER_SIZE*3; i++ {
		b, err := input.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		assertEquals(t, b, byten(int64(i)))
	}
}

// Call ReadBytes() repeatedly, with various chunk sizes (from 1 byte to
// larger than the buffer size), and see that it returns the bytes we
// expect.
func TestReadBytes(t *testing.T) {
	input := newGeneratedInput(TEST_FILE_LENGTH)
	if err := runReadBytes(input, BUFFER_SIZE, random(), t); err != nil {
		t.Error(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "IndexInput")
	data := make([]byte, TEST_FILE_LENGTH)
	for i := range data {
		data[i] = byten(int64(i))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	d, err := OpenFSDirectory(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	in, err := d.OpenInput("IndexInput", IO_CONTEXT_MERGE)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	if err = runReadBytes(in, MERGE_BUFFER_SIZE, random(), t); err != nil {
		t.Error(err)
	}
}

func runReadBytes(input IndexInput, bufferSize int, r *rand.Rand, t *testing.T) (err error) {
	pos := 0
	// gradually increasing size:
	for size := 1; size < bufferSize*10; size += size/200 + 1 {
		if err = checkReadBytes(input, size, pos, t); err != nil {
			return err
		}
		if pos += size; int64(pos) >= TEST_FILE_LENGTH { // wrap
			pos = 0
			input.Seek(0)
		}
	}
	// wildly fluctuating size:
	for i := int64(0); i < 100; i++ {
		size := r.Intn(10000)
		if err = checkReadBytes(input, size+1, pos, t); err != nil {
			return err
		}
		if pos += size + 1; int64(pos) >= TEST_FILE_LENGTH { // wrap
			pos = 0
			input.Seek(0)
		}
	}
	// constant small size (7 bytes):
	for i := 0; i < bufferSize; i++ {
		if err = checkReadBytes(input, 7, pos, t); err != nil {
			return err
		}
		if pos += 7; int64(pos) >= TEST_FILE_LENGTH { // wrap
			pos = 0
			input.Seek(0)
		}
	}
	return nil
}

func checkReadBytes(input IndexInput, size, pos int, t *testing.T) error {
	t.Helper()
	assertEquals(t, input.FilePointer(), int64(pos))
	left := TEST_FILE_LENGTH - input.FilePointer()
	if left <= 0 {
		return nil
	} else if left < int64(size) {
		size = int(left)
	}
	buffer := make([]byte, size)
	if err := input.ReadBytes(buffer); err != nil {
		return err
	}
	assertEquals(t, input.FilePointer(), int64(pos+size))
	for i := 0; i < size; i++ {
		if buffer[i] != byten(int64(pos+i)) {
			t.Fatalf("byte %v: expected %v, got %v", pos+i, byten(int64(pos+i)), buffer[i])
		}
	}
	return nil
}

// Reads up to the EOF succeed, reads past it fail.
func TestEOF(t *testing.T) {
	input := newGeneratedInput(1024)
	buf := make([]byte, 1024)
	if err := input.ReadBytes(buf); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{11, 50, 100000} {
		input.Seek(1014)
		if err := input.ReadBytes(make([]byte, n)); err == nil {
			t.Errorf("Block read of %v bytes past end of file", n)
		}
	}
	input.Seek(1024)
	if _, err := input.ReadByte(); err == nil {
		t.Error("Byte read past end of file")
	}
	if err := input.Seek(1025); err == nil {
		t.Error("Seek past end of file")
	}
}

func TestCloneAndSlice(t *testing.T) {
	input := newGeneratedInput(TEST_FILE_LENGTH)
	input.Seek(5000)
	clone := input.Clone()
	assertEquals(t, clone.FilePointer(), int64(5000))

	// moving the clone leaves the original alone
	clone.Seek(10)
	b, _ := clone.ReadByte()
	assertEquals(t, b, byten(10))
	assertEquals(t, input.FilePointer(), int64(5000))

	slice, err := input.Slice("part", 2000, 100)
	if err != nil {
		t.Fatal(err)
	}
	assertEquals(t, slice.Length(), int64(100))
	assertEquals(t, slice.FilePointer(), int64(0))
	b, _ = slice.ReadByte()
	assertEquals(t, b, byten(2000))
	slice.Seek(99)
	b, _ = slice.ReadByte()
	assertEquals(t, b, byten(2099))
	if _, err = slice.ReadByte(); err == nil {
		t.Error("read past end of slice")
	}
	if _, err = input.Slice("bad", TEST_FILE_LENGTH-10, 11); err == nil {
		t.Error("slice out of bounds accepted")
	}
}
