package store

import (
	"bufio"
	"io"

	"github.com/ironsweet/goferret/core/util"
)

/*
Abstract base class for output to a file in a Directory. A
sequential-only output stream. Used for all index I/O.
*/
type IndexOutput interface {
	io.Closer
	util.DataOutput
	// Returns the current position in this file, where the next write
	// will occur.
	FilePointer() int64
}

type IndexOutputImpl struct {
	*util.DataOutputImpl
}

func NewIndexOutput(part util.DataWriter) *IndexOutputImpl {
	return &IndexOutputImpl{util.NewDataOutput(part)}
}

/* Implementation class for buffered IndexOutput that writes to a WriteCloser. */
type OutputStreamIndexOutput struct {
	*IndexOutputImpl

	name string
	w    *bufio.Writer
	os   io.WriteCloser

	bytesWritten int64
}

/* Creates a new OutputStreamIndexOutput with the given buffer size. */
func newOutputStreamIndexOutput(name string, out io.WriteCloser, bufferSize int) *OutputStreamIndexOutput {
	ans := &OutputStreamIndexOutput{
		name: name,
		w:    bufio.NewWriterSize(out, bufferSize),
		os:   out,
	}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *OutputStreamIndexOutput) WriteByte(b byte) error {
	if err := out.w.WriteByte(b); err != nil {
		return util.IOError("writing %v: %v", out.name, err)
	}
	out.bytesWritten++
	return nil
}

func (out *OutputStreamIndexOutput) WriteBytes(p []byte) error {
	if _, err := out.w.Write(p); err != nil {
		return util.IOError("writing %v: %v", out.name, err)
	}
	out.bytesWritten += int64(len(p))
	return nil
}

func (out *OutputStreamIndexOutput) Close() error {
	err := out.w.Flush()
	if err2 := out.os.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return util.IOError("closing %v: %v", out.name, err)
	}
	return nil
}

func (out *OutputStreamIndexOutput) FilePointer() int64 {
	return out.bytesWritten
}

func (out *OutputStreamIndexOutput) String() string {
	return out.name
}
