package store

import (
	"fmt"
	"io"

	"github.com/ironsweet/goferret/core/util"
)

/*
Abstract base class for input from a file in a Directory. A
random-access input stream. Used for all index I/O.
*/
type IndexInput interface {
	io.Closer
	util.DataInput
	// Returns the current position in this file, where the next read
	// will occur.
	FilePointer() int64
	// Sets current position in this file, where the next read will occur.
	Seek(pos int64) error
	// The number of bytes in the file.
	Length() int64
	// Returns an independent cursor over the same file. Closing a clone
	// never closes the file.
	Clone() IndexInput
	// Creates a slice of this index input, with the given description,
	// offset, and length. The slice is seeked to the beginning.
	Slice(desc string, offset, length int64) (IndexInput, error)
}

const (
	BUFFER_SIZE       = 1024
	MERGE_BUFFER_SIZE = 4096
)

func bufferSize(context IOContext) int {
	if context.context == IO_CONTEXT_TYPE_MERGE {
		return MERGE_BUFFER_SIZE
	}
	return BUFFER_SIZE
}

/*
BufferedIndexInput reads a window of an io.ReaderAt through a private
buffer. Clones and slices share the ReaderAt; only the input created
by the Directory owns it and closes it.
*/
type BufferedIndexInput struct {
	*util.DataInputImpl
	desc   string
	file   io.ReaderAt
	closer io.Closer // nil for clones and slices
	off    int64     // start of this window in file
	length int64

	bufferSize     int
	buffer         []byte
	bufferStart    int64 // position in window of buffer[0]
	bufferLength   int
	bufferPosition int
}

func newBufferedIndexInput(desc string, file io.ReaderAt, closer io.Closer,
	off, length int64, bufferSize int) *BufferedIndexInput {
	assert2(bufferSize > 0, "bufferSize must be greater than 0 (got %v)", bufferSize)
	in := &BufferedIndexInput{
		desc:       desc,
		file:       file,
		closer:     closer,
		off:        off,
		length:     length,
		bufferSize: bufferSize,
	}
	in.DataInputImpl = util.NewDataInput(in)
	return in
}

func (in *BufferedIndexInput) ReadByte() (b byte, err error) {
	if in.bufferPosition >= in.bufferLength {
		if err = in.refill(); err != nil {
			return 0, err
		}
	}
	b = in.buffer[in.bufferPosition]
	in.bufferPosition++
	return b, nil
}

func (in *BufferedIndexInput) ReadBytes(buf []byte) error {
	for len(buf) > 0 {
		available := in.bufferLength - in.bufferPosition
		if available <= 0 {
			if len(buf) > in.bufferSize {
				// large reads skip the buffer
				pos := in.FilePointer()
				if pos+int64(len(buf)) > in.length {
					return util.EOFError("read past EOF: %v", in)
				}
				if err := in.readInternal(buf, pos); err != nil {
					return err
				}
				in.bufferStart = pos + int64(len(buf))
				in.bufferPosition, in.bufferLength = 0, 0
				return nil
			}
			if err := in.refill(); err != nil {
				return err
			}
			continue
		}
		n := copy(buf, in.buffer[in.bufferPosition:in.bufferLength])
		in.bufferPosition += n
		buf = buf[n:]
	}
	return nil
}

func (in *BufferedIndexInput) refill() error {
	start := in.bufferStart + int64(in.bufferPosition)
	end := start + int64(in.bufferSize)
	if end > in.length {
		end = in.length
	}
	newLength := int(end - start)
	if newLength <= 0 {
		return util.EOFError("read past EOF: %v", in)
	}
	if in.buffer == nil {
		in.buffer = make([]byte, in.bufferSize)
	}
	if err := in.readInternal(in.buffer[:newLength], start); err != nil {
		return err
	}
	in.bufferLength = newLength
	in.bufferStart = start
	in.bufferPosition = 0
	return nil
}

func (in *BufferedIndexInput) readInternal(buf []byte, pos int64) error {
	n, err := in.file.ReadAt(buf, in.off+pos)
	if n == len(buf) {
		return nil
	}
	if err == io.EOF || err == nil {
		return util.EOFError("read past EOF: %v", in)
	}
	return util.IOError("%v: %v", in, err)
}

func (in *BufferedIndexInput) FilePointer() int64 {
	return in.bufferStart + int64(in.bufferPosition)
}

func (in *BufferedIndexInput) Seek(pos int64) error {
	if pos < 0 || pos > in.length {
		return util.EOFError("seek to %v out of bounds: %v", pos, in)
	}
	if pos >= in.bufferStart && pos < in.bufferStart+int64(in.bufferLength) {
		in.bufferPosition = int(pos - in.bufferStart)
	} else {
		in.bufferStart = pos
		in.bufferPosition, in.bufferLength = 0, 0
	}
	return nil
}

func (in *BufferedIndexInput) Length() int64 {
	return in.length
}

func (in *BufferedIndexInput) Clone() IndexInput {
	clone := newBufferedIndexInput(in.desc, in.file, nil, in.off, in.length, in.bufferSize)
	clone.bufferStart = in.FilePointer()
	return clone
}

func (in *BufferedIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	if offset < 0 || length < 0 || offset+length > in.length {
		return nil, util.ArgError("slice() %v out of bounds: offset=%v,length=%v,fileLength=%v: %v",
			desc, offset, length, in.length, in)
	}
	return newBufferedIndexInput(fmt.Sprintf("%v [slice=%v]", in.desc, desc),
		in.file, nil, in.off+offset, length, in.bufferSize), nil
}

func (in *BufferedIndexInput) Close() error {
	if in.closer != nil {
		return in.closer.Close()
	}
	return nil
}

func (in *BufferedIndexInput) String() string {
	return in.desc
}
