package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ironsweet/goferret/core/util"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eachDirectory(t *testing.T, f func(t *testing.T, d Directory)) {
	t.Run("RAM", func(t *testing.T) {
		d := NewRAMDirectory()
		defer d.Close()
		f(t, d)
	})
	t.Run("FS", func(t *testing.T) {
		d, err := OpenFSDirectory(t.TempDir(), true)
		require.NoError(t, err)
		defer d.Close()
		f(t, d)
	})
}

func writeFile(t *testing.T, d Directory, name string, write func(out IndexOutput) error) {
	t.Helper()
	out, err := d.CreateOutput(name, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, write(out))
	require.NoError(t, out.Close())
}

func TestDirectoryReadWrite(t *testing.T) {
	eachDirectory(t, func(t *testing.T, d Directory) {
		writeFile(t, d, "a.txt", func(out IndexOutput) error {
			out.WriteString("hello world")
			out.WriteVInt(-1)
			out.WriteVLong(1 << 40)
			out.WriteLong(-2)
			return out.WriteInt(0x01020304)
		})
		n, err := d.FileLength("a.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(12+5+6+8+4), n)

		in, err := d.OpenInput("a.txt", IO_CONTEXT_READ)
		require.NoError(t, err)
		defer in.Close()
		s, err := in.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "hello world", s)
		vi, _ := in.ReadVInt()
		assert.Equal(t, int32(-1), vi)
		vl, _ := in.ReadVLong()
		assert.Equal(t, int64(1<<40), vl)
		l, _ := in.ReadLong()
		assert.Equal(t, int64(-2), l)
		i, _ := in.ReadInt()
		assert.Equal(t, int32(0x01020304), i)
		_, err = in.ReadByte()
		assert.True(t, errors.Is(err, util.ErrEOF))
	})
}

func TestDirectoryFiles(t *testing.T) {
	eachDirectory(t, func(t *testing.T, d Directory) {
		for _, name := range []string{"b", "a", "c"} {
			writeFile(t, d, name, func(out IndexOutput) error { return out.WriteByte(1) })
		}
		names, err := d.ListAll()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, names)
		assert.True(t, d.FileExists("b"))

		require.NoError(t, d.DeleteFile("b"))
		assert.False(t, d.FileExists("b"))
		assert.True(t, errors.Is(d.DeleteFile("b"), util.ErrFileNotFound))
		_, err = d.OpenInput("b", IO_CONTEXT_DEFAULT)
		assert.True(t, errors.Is(err, util.ErrFileNotFound))
		_, err = d.FileLength("b")
		assert.True(t, errors.Is(err, util.ErrFileNotFound))

		// overwrite replaces content
		writeFile(t, d, "a", func(out IndexOutput) error { return out.WriteBytes([]byte{1, 2, 3}) })
		n, _ := d.FileLength("a")
		assert.Equal(t, int64(3), n)
	})
}

func TestDirectoryCopy(t *testing.T) {
	from := NewRAMDirectory()
	to, err := OpenFSDirectory(t.TempDir(), true)
	require.NoError(t, err)
	writeFile(t, from, "src", func(out IndexOutput) error {
		return out.WriteBytes(make([]byte, 3*BUFFER_SIZE+7))
	})
	require.NoError(t, Copy(from, to, "src", "dest"))
	n, err := to.FileLength("dest")
	require.NoError(t, err)
	assert.Equal(t, int64(3*BUFFER_SIZE+7), n)

	assert.Error(t, Copy(from, to, "missing", "dest2"))
	assert.False(t, to.FileExists("dest2"))
}

func TestLockTimeout(t *testing.T) {
	eachDirectory(t, func(t *testing.T, d Directory) {
		lock := d.MakeLock("write")
		ok, err := lock.Obtain()
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, lock.IsLocked())

		other := d.MakeLock("write")
		ok, err = other.Obtain()
		assert.NoError(t, err)
		assert.False(t, ok)

		start := time.Now()
		ok, err = other.ObtainWithin(50 * time.Millisecond)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, util.ErrLock))
		assert.True(t, time.Since(start) >= 50*time.Millisecond)

		// closing an unobtained lock doesn't release the holder
		other.Close()
		assert.True(t, lock.IsLocked())

		require.NoError(t, lock.Close())
		assert.False(t, lock.IsLocked())
		ok, err = other.ObtainWithin(time.Second)
		assert.NoError(t, err)
		assert.True(t, ok)
		other.Close()
	})
}

func TestClearLock(t *testing.T) {
	d, err := OpenFSDirectory(t.TempDir(), true)
	require.NoError(t, err)
	lock := d.MakeLock("write")
	ok, _ := lock.Obtain()
	require.True(t, ok)
	assert.True(t, d.FileExists("ferret-write.lck"))

	require.NoError(t, d.ClearLock("write"))
	assert.False(t, d.MakeLock("write").IsLocked())
}

func TestClosedDirectory(t *testing.T) {
	d := NewRAMDirectory()
	d.Close()
	_, err := d.CreateOutput("a", IO_CONTEXT_DEFAULT)
	assert.True(t, errors.Is(err, util.ErrState))
}

func TestLoggingQuietByDefault(t *testing.T) {
	assert.Equal(t, logging.WARNING, logging.GetLevel("store"))
}
