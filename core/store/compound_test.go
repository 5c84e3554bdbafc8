package store

import (
	"errors"
	"testing"

	"github.com/ironsweet/goferret/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompoundRoundTrip(t *testing.T) {
	eachDirectory(t, func(t *testing.T, d Directory) {
		contents := map[string][]byte{
			"_0.frq": []byte("frequencies"),
			"_0.prx": {},
			"_0.tis": make([]byte, 5000),
		}
		for i := range contents["_0.tis"] {
			contents["_0.tis"][i] = byte(i)
		}
		w := NewCompoundFileWriter(d, "_0.cfs")
		for _, name := range []string{"_0.frq", "_0.prx", "_0.tis"} {
			data := contents[name]
			writeFile(t, d, name, func(out IndexOutput) error { return out.WriteBytes(data) })
			require.NoError(t, w.AddFile(name))
		}
		assert.True(t, errors.Is(w.AddFile("_0.frq"), util.ErrArg))
		require.NoError(t, w.Close())

		cfs, err := OpenCompoundFileDirectory(d, "_0.cfs", IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		defer cfs.Close()

		names, err := cfs.ListAll()
		require.NoError(t, err)
		assert.Equal(t, []string{"_0.frq", "_0.prx", "_0.tis"}, names)
		for name, data := range contents {
			n, err := cfs.FileLength(name)
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), n, name)

			in, err := cfs.OpenInput(name, IO_CONTEXT_DEFAULT)
			require.NoError(t, err)
			buf := make([]byte, len(data))
			require.NoError(t, in.ReadBytes(buf))
			assert.Equal(t, data, buf, name)
			_, err = in.ReadByte()
			assert.Error(t, err, "read past sub-file end")
			in.Close()
		}
		_, err = cfs.OpenInput("_0.fdx", IO_CONTEXT_DEFAULT)
		assert.True(t, errors.Is(err, util.ErrFileNotFound))
		_, err = cfs.CreateOutput("x", IO_CONTEXT_DEFAULT)
		assert.True(t, errors.Is(err, util.ErrState))
	})
}

func TestCompoundEmpty(t *testing.T) {
	w := NewCompoundFileWriter(NewRAMDirectory(), "_1.cfs")
	assert.True(t, errors.Is(w.Close(), util.ErrState))
}

func TestRAMBuffer(t *testing.T) {
	buf := NewRAMBuffer()
	buf.WriteVInt(300)
	buf.WriteString("x")
	assert.Equal(t, int64(4), buf.Length())

	d := NewRAMDirectory()
	writeFile(t, d, "out", func(out IndexOutput) error {
		out.WriteByte(9)
		return buf.WriteTo(out)
	})
	buf.Reset()
	assert.Equal(t, int64(0), buf.FilePointer())

	in, err := d.OpenInput("out", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	b, _ := in.ReadByte()
	assert.Equal(t, byte(9), b)
	v, _ := in.ReadVInt()
	assert.Equal(t, int32(300), v)
	s, _ := in.ReadString()
	assert.Equal(t, "x", s)
}

func TestTrackingDirectoryWrapper(t *testing.T) {
	w := NewTrackingDirectoryWrapper(NewRAMDirectory())
	for _, name := range []string{"_0.tis", "_0.frq"} {
		writeFile(t, w, name, func(out IndexOutput) error { return nil })
	}
	assert.Equal(t, []string{"_0.frq", "_0.tis"}, w.CreatedFiles())
	require.NoError(t, w.DeleteFile("_0.tis"))
	assert.False(t, w.ContainsFile("_0.tis"))
	assert.True(t, w.ContainsFile("_0.frq"))
}
