package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldInfoBits(t *testing.T) {
	fi, err := NewFieldInfo("title", STORE_COMPRESS, INDEX_YES_OMIT_NORMS, TERM_VECTOR_WITH_POSITIONS)
	require.NoError(t, err)
	assert.True(t, fi.IsStored())
	assert.True(t, fi.IsCompressed())
	assert.True(t, fi.IsIndexed())
	assert.True(t, fi.IsTokenized())
	assert.True(t, fi.OmitNorms())
	assert.False(t, fi.HasNorms())
	assert.True(t, fi.StoreTermVector())
	assert.True(t, fi.StorePositions())
	assert.False(t, fi.StoreOffsets())
	assert.Equal(t, uint32(0x7F), fi.Bits)

	assert.Equal(t, STORE_COMPRESS, fi.Store())
	assert.Equal(t, INDEX_YES_OMIT_NORMS, fi.Index())
	assert.Equal(t, TERM_VECTOR_WITH_POSITIONS, fi.TermVector())

	fi, err = NewFieldInfo("id", STORE_YES, INDEX_UNTOKENIZED, TERM_VECTOR_NO)
	require.NoError(t, err)
	assert.Equal(t, uint32(FI_IS_STORED|FI_IS_INDEXED), fi.Bits)
	assert.True(t, fi.HasNorms())
}

func TestFieldInfoArgErrors(t *testing.T) {
	_, err := NewFieldInfo("x", STORE_YES, INDEX_NO, TERM_VECTOR_YES)
	assert.True(t, errors.Is(err, util.ErrArg))
	_, err = NewFieldInfo("x", STORE_NO, INDEX_NO, TERM_VECTOR_NO)
	assert.True(t, errors.Is(err, util.ErrArg))
	_, err = NewFieldInfos(STORE_YES, INDEX_NO, TERM_VECTOR_WITH_OFFSETS)
	assert.True(t, errors.Is(err, util.ErrArg))
}

func TestFieldInfosAdd(t *testing.T) {
	fis := DefaultFieldInfos()
	for i, name := range []string{"a", "b", "c"} {
		fi, err := fis.GetOrAddField(name)
		require.NoError(t, err)
		assert.Equal(t, i, fi.Number)
	}
	fi, err := fis.GetOrAddField("b")
	require.NoError(t, err)
	assert.Equal(t, 1, fi.Number)
	assert.Equal(t, 3, fis.Size())
	assert.Equal(t, 2, fis.FieldNum("c"))
	assert.Equal(t, -1, fis.FieldNum("d"))
	assert.Equal(t, "a", fis.ByNumber(0).Name)

	dup, _ := NewFieldInfo("a", STORE_NO, INDEX_YES, TERM_VECTOR_NO)
	_, err = fis.AddField(dup)
	assert.True(t, errors.Is(err, util.ErrArg))
	assert.Equal(t, 3, fis.Size())
}

func TestFieldInfosRoundTrip(t *testing.T) {
	fis, err := NewFieldInfos(STORE_NO, INDEX_UNTOKENIZED, TERM_VECTOR_NO)
	require.NoError(t, err)
	for _, v := range []struct {
		name string
		s    StoreValue
		i    IndexValue
		tv   TermVectorValue
	}{
		{"id", STORE_YES, INDEX_UNTOKENIZED, TERM_VECTOR_NO},
		{"body", STORE_COMPRESS, INDEX_YES, TERM_VECTOR_WITH_POSITIONS_OFFSETS},
		{"raw", STORE_YES, INDEX_NO, TERM_VECTOR_NO},
		{"tags", STORE_NO, INDEX_UNTOKENIZED_OMIT_NORMS, TERM_VECTOR_WITH_OFFSETS},
	} {
		fi, err := NewFieldInfo(v.name, v.s, v.i, v.tv)
		require.NoError(t, err)
		fi.Boost = 1.5
		_, err = fis.AddField(fi)
		require.NoError(t, err)
	}

	dir := store.NewRAMDirectory()
	out, err := dir.CreateOutput("fis", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, fis.Write(out))
	require.NoError(t, out.Close())

	in, err := dir.OpenInput("fis", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	defer in.Close()
	read, err := ReadFieldInfos(in)
	require.NoError(t, err)

	if diff := cmp.Diff(fis, read, cmpopts.IgnoreFields(FieldInfos{}, "RWMutex"),
		cmp.AllowUnexported(FieldInfos{})); diff != "" {
		t.Errorf("FieldInfos mismatch (-want +got):\n%v", diff)
	}
	assert.Equal(t, in.Length(), in.FilePointer())
}

func TestParseValues(t *testing.T) {
	s, err := ParseStoreValue("compressed")
	require.NoError(t, err)
	assert.Equal(t, STORE_COMPRESS, s)
	i, err := ParseIndexValue("untokenized_omit_norms")
	require.NoError(t, err)
	assert.Equal(t, INDEX_UNTOKENIZED_OMIT_NORMS, i)
	tv, err := ParseTermVectorValue("with_positions_offsets")
	require.NoError(t, err)
	assert.Equal(t, TERM_VECTOR_WITH_POSITIONS_OFFSETS, tv)
	_, err = ParseIndexValue("sometimes")
	assert.True(t, errors.Is(err, util.ErrArg))
}
