package index

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderStale(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a", "b", "c")

	r1 := openTestReader(t, d)
	defer r1.Close()
	r2 := openTestReader(t, d)
	require.NoError(t, r2.DeleteDocument(0))
	assert.True(t, IndexIsLocked(d), "held until commit")
	require.NoError(t, r2.Close())
	assert.False(t, IndexIsLocked(d))

	latest, err := r1.IsLatest()
	require.NoError(t, err)
	assert.False(t, latest)
	err = r1.DeleteDocument(1)
	assert.True(t, errors.Is(err, util.ErrState), "got %v", err)
	err = r1.UndeleteAll()
	assert.True(t, errors.Is(err, util.ErrState), "stays stale")
	assert.False(t, r1.IsDeleted(1))

	r3 := openTestReader(t, d)
	defer r3.Close()
	assert.True(t, r3.IsDeleted(0))
	assert.Equal(t, 2, r3.NumDocs())
}

func TestReaderUndeleteAll(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a", "b", "c")

	ir := openTestReader(t, d)
	require.NoError(t, ir.DeleteDocument(2))
	require.NoError(t, ir.Commit())
	assert.Equal(t, []wantPosting(nil), postingsOf(t, ir, "content", "c"))
	require.NoError(t, ir.UndeleteAll())
	require.NoError(t, ir.Close())

	ir = openTestReader(t, d)
	defer ir.Close()
	assert.False(t, ir.HasDeletions())
	assert.Equal(t, []wantPosting{{2, 1}}, postingsOf(t, ir, "content", "c"))
	assert.Equal(t, 1, docFreq(t, ir, "content", "c"))
}

func TestReaderDocOutOfRange(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a")
	ir := openTestReader(t, d)
	defer ir.Close()
	_, err := ir.GetDocument(1)
	assert.True(t, errors.Is(err, util.ErrArg))
	assert.True(t, errors.Is(ir.DeleteDocument(-1), util.ErrArg))
}

func TestMultiReaderDeletes(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(2)
	buildIndex(t, d, conf, "a x", "b x", "c x", "d x", "e x")

	ir := openTestReader(t, d)
	_, ok := ir.(*MultiReader)
	require.True(t, ok, "three segments")
	assert.Equal(t, 5, ir.MaxDoc())
	assert.Equal(t, 5, docFreq(t, ir, "content", "x"))
	require.NoError(t, ir.DeleteDocument(3))
	assert.Equal(t, 4, ir.NumDocs())
	assert.Equal(t, []uint32{3}, ir.DeletedDocs().ToArray())
	require.NoError(t, ir.Close())

	ir = openTestReader(t, d)
	defer ir.Close()
	assert.True(t, ir.IsDeleted(3))
	assert.False(t, ir.IsDeleted(4))
	assert.Equal(t, []wantPosting{{0, 1}, {1, 1}, {2, 1}, {4, 1}}, postingsOf(t, ir, "content", "x"))
	doc, err := ir.GetDocument(4)
	require.NoError(t, err)
	assert.Equal(t, "e x", doc.Get("content"))
}

func TestNewMultiReaderFieldMapping(t *testing.T) {
	d1, d2 := store.NewRAMDirectory(), store.NewRAMDirectory()
	buildIndex(t, d1, testConfig(), "apple pie")
	iw := openTestWriter(t, d2, testConfig())
	doc := newDoc("title", "apple")
	require.NoError(t, iw.AddDocument(doc))
	require.NoError(t, iw.AddDocument(newDoc("content", "apple tart")))
	require.NoError(t, iw.Close())

	r1, r2 := openTestReader(t, d1), openTestReader(t, d2)
	mr, err := NewMultiReader(r1, r2)
	require.NoError(t, err)
	defer mr.Close()

	assert.Equal(t, 3, mr.MaxDoc())
	assert.Equal(t, []wantPosting{{0, 1}, {2, 1}}, postingsOf(t, mr, "content", "apple"))
	assert.Equal(t, []wantPosting{{1, 1}}, postingsOf(t, mr, "title", "apple"))
	assert.Equal(t, []string{"apple", "pie", "tart"}, termsOf(t, mr, "content"))

	tv, err := mr.TermVector(2, mr.FieldInfos().FieldNum("content"))
	require.NoError(t, err)
	require.NotNil(t, tv)
	assert.Equal(t, mr.FieldInfos().FieldNum("content"), tv.FieldNum)

	require.NoError(t, mr.DeleteDocument(2))
	require.NoError(t, mr.Commit())
	assert.True(t, r2.IsDeleted(1))
}

func termsOf(t *testing.T, ir IndexReader, field string) []string {
	te, err := ir.Terms(ir.FieldInfos().FieldNum(field))
	require.NoError(t, err)
	defer te.Close()
	var ans []string
	for {
		ok, err := te.Next()
		require.NoError(t, err)
		if !ok {
			return ans
		}
		ans = append(ans, te.Term())
	}
}

func TestReaderTermsFrom(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(2)
	buildIndex(t, d, conf, "a b", "c d", "e")

	for _, tc := range []struct {
		target string
		want   []string
	}{
		{"c", []string{"c", "d", "e"}},
		{"bb", []string{"c", "d", "e"}},
		{"", []string{"a", "b", "c", "d", "e"}},
		{"f", nil},
	} {
		t.Run(tc.target, func(t *testing.T) {
			ir := openTestReader(t, d)
			defer ir.Close()
			te, err := ir.TermsFrom(ir.FieldInfos().FieldNum("content"), tc.target)
			require.NoError(t, err)
			defer te.Close()
			var got []string
			for term := te.Term(); term != ""; term = te.Term() {
				got = append(got, term)
				_, err := te.Next()
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReaderPostingsSkipTo(t *testing.T) {
	d := store.NewRAMDirectory()
	texts := make([]string, 200)
	for i := range texts {
		words := []string{"x"}
		if i%2 == 0 {
			words = append(words, "even")
		}
		if i%3 == 0 {
			words = append(words, "x") // freq 2
		}
		texts[i] = strings.Join(words, " ")
	}
	buildIndex(t, d, testConfig(), texts...)
	ir := openTestReader(t, d)
	defer ir.Close()
	fieldNum := ir.FieldInfos().FieldNum("content")

	tde, err := ir.TermDocsFor(fieldNum, "even")
	require.NoError(t, err)
	ok, err := tde.SkipTo(51)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 52, tde.DocNum())
	ok, err = tde.SkipTo(150)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 150, tde.DocNum())
	ok, err = tde.SkipTo(199)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tde.Close())

	tpe, err := ir.TermPositionsFor(fieldNum, "x")
	require.NoError(t, err)
	defer tpe.Close()
	ok, err = tpe.SkipTo(99)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 99, tpe.DocNum())
	assert.Equal(t, 2, tpe.Freq())
	assert.Equal(t, []int{0, 1}, positionsOf(t, tpe))
	ok, err = tpe.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100, tpe.DocNum())
	assert.Equal(t, []int{0}, positionsOf(t, tpe))

	docs, freqs := make([]int, 4), make([]int, 4)
	n, err := tpe.Read(docs, freqs)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{101, 102, 103, 104}, docs)
	assert.Equal(t, []int{1, 2, 1, 1}, freqs)
}

func positionsOf(t *testing.T, tde TermDocEnum) []int {
	var ans []int
	for {
		pos, err := tde.NextPosition()
		require.NoError(t, err)
		if pos < 0 {
			return ans
		}
		ans = append(ans, pos)
	}
}

func TestMultipleTermDocPosEnum(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig().SetMaxBufferedDocs(2)
	buildIndex(t, d, conf, "a b c", "b c d", "c d e a")
	ir := openTestReader(t, d)
	defer ir.Close()

	mtdpe, err := NewMultipleTermDocPosEnum(ir, ir.FieldInfos().FieldNum("content"), []string{"a", "e", "zz"})
	require.NoError(t, err)
	defer mtdpe.Close()
	var got []string
	for {
		ok, err := mtdpe.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, fmt.Sprintf("%v:%v%v", mtdpe.DocNum(), mtdpe.Freq(), positionsOf(t, mtdpe)))
	}
	assert.Equal(t, []string{"0:1[0]", "2:2[2 3]"}, got)
}

func TestReaderNorms(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a b c", "d")
	ir := openTestReader(t, d)
	fieldNum := ir.FieldInfos().FieldNum("content")

	norms, err := ir.GetNorms(fieldNum)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		util.FloatToByte(float32(1.0 / math.Sqrt(3))),
		util.FloatToByte(1.0),
	}, norms)

	require.NoError(t, ir.SetNorm(1, fieldNum, 42))
	require.NoError(t, ir.Close())

	ir = openTestReader(t, d)
	defer ir.Close()
	buf := make([]byte, 2)
	require.NoError(t, ir.GetNormsInto(fieldNum, buf))
	assert.Equal(t, byte(42), buf[1])
	assert.Equal(t, norms[0], buf[0])

	files, err := d.ListAll()
	require.NoError(t, err)
	assert.True(t, contains(files, fmt.Sprintf("_0_1.s%v", fieldNum)), "separate norms: %v", files)

	iw := openTestWriter(t, d, testConfig())
	require.NoError(t, iw.Optimize())
	require.NoError(t, iw.Close())
	files, err = d.ListAll()
	require.NoError(t, err)
	assert.False(t, contains(files, fmt.Sprintf("_0_1.s%v", fieldNum)), "merged away: %v", files)
}

func TestReaderSetNormWithoutNorms(t *testing.T) {
	d := store.NewRAMDirectory()
	conf := testConfig()
	conf.Index = "untokenized_omit_norms"
	buildIndex(t, d, conf, "a")
	ir := openTestReader(t, d)
	defer ir.Close()
	fieldNum := ir.FieldInfos().FieldNum("content")

	norms, err := ir.GetNorms(fieldNum)
	require.NoError(t, err)
	assert.Nil(t, norms)
	buf := []byte{7}
	require.NoError(t, ir.GetNormsInto(fieldNum, buf))
	assert.Equal(t, []byte{0}, buf)
	assert.True(t, errors.Is(ir.SetNorm(0, fieldNum, 1), util.ErrArg))
}

func TestReaderRefCount(t *testing.T) {
	d := store.NewRAMDirectory()
	buildIndex(t, d, testConfig(), "a")
	ir := openTestReader(t, d)
	ir.IncRef()
	require.NoError(t, ir.Close())
	assert.Equal(t, 1, ir.MaxDoc())
	assert.Equal(t, 1, docFreq(t, ir, "content", "a"))
	require.NoError(t, ir.Close())
	assert.Panics(t, func() { ir.Terms(0) })
}
