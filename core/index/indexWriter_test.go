package index

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ironsweet/goferret/core/analysis"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return DefaultConfig().SetAnalyzer(&analysis.WhiteSpaceAnalyzer{})
}

func openTestWriter(t *testing.T, d store.Directory, conf *Config) *IndexWriter {
	iw, err := OpenIndexWriter(d, conf)
	require.NoError(t, err)
	return iw
}

// addTexts adds one document per text, with its number in "id".
func addTexts(t *testing.T, iw *IndexWriter, texts ...string) {
	for _, text := range texts {
		doc := document.NewDocument()
		doc.AddString("id", fmt.Sprintf("id%v", iw.DocCount()))
		doc.AddString("content", text)
		require.NoError(t, iw.AddDocument(doc))
	}
}

func newDoc(field, text string) *document.Document {
	doc := document.NewDocument()
	doc.AddString(field, text)
	return doc
}

// buildIndex writes texts into a fresh index and closes the writer.
func buildIndex(t *testing.T, d store.Directory, conf *Config, texts ...string) {
	iw := openTestWriter(t, d, conf)
	addTexts(t, iw, texts...)
	require.NoError(t, iw.Close())
}

func openTestReader(t *testing.T, d store.Directory) IndexReader {
	ir, err := OpenIndexReader(d, nil)
	require.NoError(t, err)
	return ir
}

type wantPosting struct {
	Doc  int
	Freq int
}

func postingsOf(t *testing.T, ir IndexReader, field, term string) []wantPosting {
	tde, err := ir.TermDocsFor(ir.FieldInfos().FieldNum(field), term)
	require.NoError(t, err)
	defer tde.Close()
	var ans []wantPosting
	for {
		ok, err := tde.Next()
		require.NoError(t, err)
		if !ok {
			return ans
		}
		ans = append(ans, wantPosting{tde.DocNum(), tde.Freq()})
	}
}

func docFreq(t *testing.T, ir IndexReader, field, term string) int {
	n, err := ir.DocFreq(ir.FieldInfos().FieldNum(field), term)
	require.NoError(t, err)
	return n
}

func TestWriterEndToEnd(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a b c", "b c d", "c d e")

	ir := openTestReader(t, d)
	assert.Equal(t, 3, docFreq(t, ir, "content", "c"))
	assert.Equal(t, []wantPosting{{0, 1}, {1, 1}, {2, 1}}, postingsOf(t, ir, "content", "c"))
	require.NoError(t, ir.DeleteDocument(1))
	require.NoError(t, ir.Close())

	iw := openTestWriter(t, d, testConfig())
	require.NoError(t, iw.Optimize())
	require.NoError(t, iw.Close())

	ir = openTestReader(t, d)
	defer ir.Close()
	assert.Equal(t, 2, ir.MaxDoc())
	assert.False(t, ir.HasDeletions())
	assert.Equal(t, 2, docFreq(t, ir, "content", "c"))
	assert.Equal(t, []wantPosting{{0, 1}, {1, 1}}, postingsOf(t, ir, "content", "c"))
	doc, err := ir.GetDocument(1)
	require.NoError(t, err)
	assert.Equal(t, "c d e", doc.Get("content"))
}

func TestWriterMergePolicy(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(2).SetMergeFactor(3)
	iw := openTestWriter(t, d, conf)
	defer iw.Close()

	addTexts(t, iw, "one", "two", "three", "four")
	assert.Equal(t, []int{2, 2}, segmentSizes(iw.SegmentInfos()))
	addTexts(t, iw, "five", "six")
	assert.Equal(t, []int{6}, segmentSizes(iw.SegmentInfos()))
	addTexts(t, iw, "seven", "eight", "nine")
	assert.Equal(t, []int{6, 2}, segmentSizes(iw.SegmentInfos()))
	assert.Equal(t, 9, iw.DocCount())

	require.NoError(t, iw.Commit())
	assert.Equal(t, []int{6, 2, 1}, segmentSizes(iw.SegmentInfos()))
}

func segmentSizes(sis *SegmentInfos) []int {
	ans := make([]int, 0, sis.Size())
	for _, si := range sis.Segments {
		ans = append(ans, si.DocCount)
	}
	return ans
}

func TestWriterDeleteTerms(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(2)
	iw := openTestWriter(t, d, conf)
	addTexts(t, iw, "red green", "green", "blue", "red blue", "green blue")

	n, err := iw.DeleteTerms("content", "red", "green")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "each document counted once")
	n, err = iw.DeleteTerm("nosuchfield", "red")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, iw.Close())

	ir := openTestReader(t, d)
	defer ir.Close()
	assert.Equal(t, 5, ir.MaxDoc())
	assert.Equal(t, 1, ir.NumDocs())
	doc, err := ir.GetDocumentWithTerm(ir.FieldInfos().FieldNum("content"), "blue")
	require.NoError(t, err)
	assert.Equal(t, "id2", doc.Get("id"))
	_, err = ir.GetDocument(0)
	assert.True(t, errors.Is(err, util.ErrState))
}

func TestWriterLockTimeout(t *testing.T) {
	d := store.NewRAMDirectory()
	iw := openTestWriter(t, d, testConfig())
	assert.True(t, IndexIsLocked(d))

	conf := testConfig()
	conf.WriteLockTimeout = 20 * time.Millisecond
	_, err := OpenIndexWriter(d, conf)
	assert.True(t, errors.Is(err, util.ErrLock))

	require.NoError(t, iw.Close())
	assert.False(t, IndexIsLocked(d))
	err = iw.AddDocument(document.NewDocument())
	assert.True(t, errors.Is(err, util.ErrState))
}

func TestWriterCreateOverExisting(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "old one", "old two")
	ir := openTestReader(t, d)
	oldVersion := ir.Version()
	require.NoError(t, ir.Close())

	buildIndex(t, d, testConfig().SetCreate(true), "new")

	ir = openTestReader(t, d)
	defer ir.Close()
	assert.Equal(t, 1, ir.MaxDoc())
	assert.Equal(t, 0, docFreq(t, ir, "content", "old"))
	assert.Greater(t, ir.Version(), oldVersion)
}

func TestWriterCompoundFiles(t *testing.T) {
	for _, compound := range []bool{true, false} {
		t.Run(fmt.Sprintf("compound=%v", compound), func(t *testing.T) {
			d := store.NewRAMDirectory()
			buildIndex(t, d, testConfig().SetUseCompoundFile(compound), "x y", "y z")
			files, err := d.ListAll()
			require.NoError(t, err)
			assert.Equal(t, compound, contains(files, "_0.cfs"))
			assert.Equal(t, !compound, contains(files, "_0.frq"))

			ir := openTestReader(t, d)
			defer ir.Close()
			assert.Equal(t, []wantPosting{{0, 1}, {1, 1}}, postingsOf(t, ir, "content", "y"))
		})
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func TestWriterAddReaders(t *testing.T) {
	d1, d2 := store.NewRAMDirectory(), store.NewRAMDirectory()
	buildIndex(t, d1, testConfig(), "alpha", "beta")

	iw := openTestWriter(t, d2, testConfig())
	doc := newDoc("title", "gamma")
	doc.AddString("content", "alpha gamma")
	require.NoError(t, iw.AddDocument(doc))
	require.NoError(t, iw.Close())

	other := openTestReader(t, d2)
	defer other.Close()
	iw = openTestWriter(t, d1, testConfig())
	require.NoError(t, iw.AddReaders(other))
	require.NoError(t, iw.Close())

	ir := openTestReader(t, d1)
	defer ir.Close()
	assert.Equal(t, 3, ir.MaxDoc())
	assert.NotNil(t, ir.FieldInfos().Field("title"))
	assert.Equal(t, []wantPosting{{0, 1}, {2, 1}}, postingsOf(t, ir, "content", "alpha"))
	assert.Equal(t, []wantPosting{{2, 1}}, postingsOf(t, ir, "title", "gamma"))
	got, err := ir.GetDocument(2)
	require.NoError(t, err)
	assert.Equal(t, "gamma", got.Get("title"))
}

func TestWriterTermVectors(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "to be or not to be")
	ir := openTestReader(t, d)
	defer ir.Close()

	tv, err := ir.TermVector(0, ir.FieldInfos().FieldNum("content"))
	require.NoError(t, err)
	require.NotNil(t, tv)
	want := []TVTerm{
		{Text: "be", Freq: 2, Positions: []int{1, 5}},
		{Text: "not", Freq: 1, Positions: []int{3}},
		{Text: "or", Freq: 1, Positions: []int{2}},
		{Text: "to", Freq: 2, Positions: []int{0, 4}},
	}
	if diff := cmp.Diff(want, tv.Terms); diff != "" {
		t.Errorf("term vector mismatch (-want +got):\n%v", diff)
	}
	assert.Equal(t, Offset{3, 5}, tv.Offsets[1])
}
