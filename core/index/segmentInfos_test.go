package index

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentInfosRoundTrip(t *testing.T) {
	d := store.NewRAMDirectory()
	fis := model.DefaultFieldInfos()
	_, err := fis.GetOrAddField("title")
	require.NoError(t, err)
	sis := NewSegmentInfos(fis, d)

	si := NewSegmentInfo(sis.NewSegmentName(), 12, d)
	si.UseCompoundFile = true
	si.AdvanceDelGen()
	si.AdvanceNormGen(2)
	si.AdvanceNormGen(2)
	sis.Add(si)
	sis.Add(NewSegmentInfo(sis.NewSegmentName(), 3, d))
	require.NoError(t, sis.Write(d, nil))
	require.NoError(t, sis.Write(d, nil))
	assert.Equal(t, "segments_1", sis.SegmentsFileName())

	got, err := ReadSegmentInfos(d)
	require.NoError(t, err)
	assert.Equal(t, sis.Generation, got.Generation)
	assert.Equal(t, sis.Version, got.Version)
	assert.Equal(t, int64(2), got.Counter)
	if diff := cmp.Diff(sis.Segments, got.Segments, cmpopts.IgnoreUnexported(SegmentInfo{})); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%v", diff)
	}
	assert.Equal(t, []int64{-1, -1, 1}, got.Segments[0].NormGens)
	assert.Equal(t, "_0_1.s2", got.Segments[0].NormFileName(2))
	assert.Equal(t, "_0_0.del", got.Segments[0].DelFileName())
	assert.Equal(t, 0, got.Fis.FieldNum("title"))

	version, err := ReadCurrentVersion(d)
	require.NoError(t, err)
	assert.Equal(t, sis.Version, version)
	assert.Equal(t, 15, got.DocCount())
}

func TestSegmentInfosSkipsCorruptGeneration(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a", "b")
	sis, err := ReadSegmentInfos(d)
	require.NoError(t, err)

	// a commit that died after creating its segments_N
	out, err := d.CreateOutput(util.SegmentsFileName(sis.Generation+1), store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteInt(99))
	require.NoError(t, out.Close())

	ir := openTestReader(t, d)
	defer ir.Close()
	assert.Equal(t, 2, ir.MaxDoc())
	assert.Equal(t, sis.Version, ir.Version())
}

func TestSegmentInfosWithoutGenFile(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a")
	require.NoError(t, d.DeleteFile(SEGMENTS_GEN_FILENAME))
	assert.True(t, IndexExists(d))
	ir := openTestReader(t, d)
	defer ir.Close()
	assert.Equal(t, 1, ir.MaxDoc())
}

func TestSegmentInfosMissing(t *testing.T) {
	d := store.NewRAMDirectory()
	assert.False(t, IndexExists(d))
	_, err := ReadSegmentInfos(d)
	assert.True(t, errors.Is(err, util.ErrFileNotFound))
}

func TestFinderRetriesSameGenerationOnce(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a")
	var slept int
	f := &segmentsFinder{dir: d, gen: -1, lastGen: -1, sleep: func(time.Duration) { slept++ }}
	attempts := 0
	err := f.find(func(fileName string) error {
		attempts++
		if attempts < 2 {
			return util.IOError("torn read of %v", fileName)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, slept)
}
