package index

import (
	"testing"

	"github.com/ironsweet/goferret/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mergeAll merges every segment of the index in d into one new segment
// and returns a reader on it. prepare may mark deletions first.
func mergeAll(t *testing.T, d store.Directory, prepare func(readers []*SegmentReader)) *SegmentReader {
	conf := testConfig()
	sis, err := ReadSegmentInfos(d)
	require.NoError(t, err)
	var readers []*SegmentReader
	merger := NewSegmentMerger(d, sis.NewSegmentName(), sis.Fis, conf)
	for i := range sis.Segments {
		sr, err := openSegmentReader(d, sis, i, sis.Fis, conf, false)
		require.NoError(t, err)
		defer sr.Close()
		readers = append(readers, sr)
		merger.Add(sr)
	}
	if prepare != nil {
		prepare(readers)
	}
	si, err := merger.Merge()
	require.NoError(t, err)

	merged := NewSegmentInfos(sis.Fis, d)
	merged.Add(si)
	sr, err := openSegmentReader(d, merged, 0, sis.Fis, conf, false)
	require.NoError(t, err)
	return sr
}

func TestMergeDisjointSegments(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(3)
	buildIndex(t, d, conf, "apple pear", "banana", "cherry", "date pear", "elder")

	sr := mergeAll(t, d, nil)
	defer sr.Close()
	assert.Equal(t, 5, sr.MaxDoc())
	assert.Equal(t, []wantPosting{{3, 1}}, postingsOf(t, sr, "content", "date"))
	assert.Equal(t, []wantPosting{{0, 1}, {3, 1}}, postingsOf(t, sr, "content", "pear"))
	assert.Equal(t, []string{"apple", "banana", "cherry", "date", "elder", "pear"}, termsOf(t, sr, "content"))
	doc, err := sr.GetDocument(4)
	require.NoError(t, err)
	assert.Equal(t, "elder", doc.Get("content"))
	assert.Equal(t, "id4", doc.Get("id"))
}

func TestMergeDropsDeletedDocuments(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(3)
	buildIndex(t, d, conf, "apple", "banana", "cherry common", "date common")

	sr := mergeAll(t, d, func(readers []*SegmentReader) {
		readers[0].deleteDoc(1)
	})
	defer sr.Close()
	assert.Equal(t, 3, sr.MaxDoc())
	assert.False(t, sr.HasDeletions())
	assert.Equal(t, 0, docFreq(t, sr, "content", "banana"))
	assert.Equal(t, []string{"apple", "cherry", "common", "date"}, termsOf(t, sr, "content"))
	assert.Equal(t, []wantPosting{{1, 1}, {2, 1}}, postingsOf(t, sr, "content", "common"))

	for doc, want := range []string{"id0", "id2", "id3"} {
		d, err := sr.GetDocument(doc)
		require.NoError(t, err)
		assert.Equal(t, want, d.Get("id"))
	}
	tv, err := sr.TermVector(1, sr.FieldInfos().FieldNum("content"))
	require.NoError(t, err)
	require.NotNil(t, tv)
	assert.Equal(t, "cherry", tv.Terms[0].Text)

	norms, err := sr.GetNorms(sr.FieldInfos().FieldNum("content"))
	require.NoError(t, err)
	assert.Len(t, norms, 3)
}

func TestMergeSkipsAcrossSegments(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(40)
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = "common"
	}
	buildIndex(t, d, conf, texts...)

	sr := mergeAll(t, d, nil)
	defer sr.Close()
	tde, err := sr.TermDocsFor(sr.FieldInfos().FieldNum("content"), "common")
	require.NoError(t, err)
	defer tde.Close()
	for _, target := range []int{5, 39, 40, 41, 87, 99} {
		ok, err := tde.SkipTo(target)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, target, tde.DocNum())
	}
	ok, err := tde.SkipTo(100)
	require.NoError(t, err)
	assert.False(t, ok)
}
