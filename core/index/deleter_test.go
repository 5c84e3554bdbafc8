package index

import (
	"testing"

	"github.com/ironsweet/goferret/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, d store.Directory, names ...string) {
	for _, name := range names {
		out, err := d.CreateOutput(name, store.IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		require.NoError(t, out.WriteByte(1))
		require.NoError(t, out.Close())
	}
}

func TestDeleterRemovesOrphans(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a", "b")
	touch(t, d, "_7.frq", "_7.cfs", "_0_3.del", "segments_0", "notes.txt")

	iw := openTestWriter(t, d, testConfig())
	require.NoError(t, iw.Close())

	files, err := d.ListAll()
	require.NoError(t, err)
	for _, orphan := range []string{"_7.frq", "_7.cfs", "_0_3.del", "segments_0"} {
		assert.False(t, contains(files, orphan), orphan)
	}
	assert.True(t, contains(files, "notes.txt"), "not an index file")
	assert.True(t, contains(files, "_0.cfs"))
	assert.True(t, contains(files, SEGMENTS_GEN_FILENAME))
}

func TestDeleterQueue(t *testing.T) {
	d := store.NewRAMDirectory()
	touch(t, d, "_1.frq", "_1.prx")
	deleter := NewDeleter(d, nil, NewMetrics(nil))

	deleter.QueueFile("_1.frq")
	deleter.QueueFile("_1.prx")
	assert.Equal(t, []string{"_1.frq", "_1.prx"}, deleter.PendingFiles())
	assert.True(t, d.FileExists("_1.frq"), "queued files wait for the commit")

	deleter.CommitPendingFiles()
	assert.Empty(t, deleter.PendingFiles())
	assert.False(t, d.FileExists("_1.frq"))
	assert.False(t, d.FileExists("_1.prx"))

	deleter.DeleteFile("_1.tis") // already gone
	assert.Empty(t, deleter.PendingFiles())
}

func TestIsIndexFile(t *testing.T) {
	for name, want := range map[string]bool{
		"segments_a":       true,
		"segments":         true,
		"_0.cfs":           true,
		"_0_1.del":         true,
		"_0.f3":            true,
		"_0_2.s11":         true,
		"_0.tis":           true,
		"ferret-write.lck": false,
		"notes.txt":        false,
	} {
		assert.Equal(t, want, IsIndexFile(name, false), name)
	}
	assert.True(t, IsIndexFile("ferret-write.lck", true))
}
