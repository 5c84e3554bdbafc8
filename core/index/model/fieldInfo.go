package model

import (
	"fmt"
	"strings"

	"github.com/ironsweet/goferret/core/util"
)

type StoreValue int

const (
	STORE_NO       = StoreValue(0)
	STORE_YES      = StoreValue(1)
	STORE_COMPRESS = StoreValue(2)
)

type IndexValue int

const (
	INDEX_NO                     = IndexValue(0)
	INDEX_UNTOKENIZED            = IndexValue(1)
	INDEX_YES                    = IndexValue(3)
	INDEX_UNTOKENIZED_OMIT_NORMS = IndexValue(5)
	INDEX_YES_OMIT_NORMS         = IndexValue(7)
)

type TermVectorValue int

const (
	TERM_VECTOR_NO                     = TermVectorValue(0)
	TERM_VECTOR_YES                    = TermVectorValue(1)
	TERM_VECTOR_WITH_POSITIONS         = TermVectorValue(3)
	TERM_VECTOR_WITH_OFFSETS           = TermVectorValue(5)
	TERM_VECTOR_WITH_POSITIONS_OFFSETS = TermVectorValue(7)
)

const (
	FI_IS_STORED         = 0x001
	FI_IS_COMPRESSED     = 0x002
	FI_IS_INDEXED        = 0x004
	FI_IS_TOKENIZED      = 0x008
	FI_OMIT_NORMS        = 0x010
	FI_STORE_TERM_VECTOR = 0x020
	FI_STORE_POSITIONS   = 0x040
	FI_STORE_OFFSETS     = 0x080
)

type FieldInfo struct {
	// Field's name
	Name string
	// Internal field number, -1 until the field is added to a FieldInfos
	Number int
	Boost  float32
	Bits   uint32
}

/*
NewFieldInfo creates a field with boost 1.0. Storing term vectors of
a field which isn't indexed is an argument error.
*/
func NewFieldInfo(name string, store StoreValue, index IndexValue,
	termVector TermVectorValue) (*FieldInfo, error) {
	if err := checkValues(name, store, index, termVector); err != nil {
		return nil, err
	}
	fi := &FieldInfo{Name: name, Number: -1, Boost: 1.0}
	fi.setStore(store)
	fi.setIndex(index)
	fi.setTermVector(termVector)
	return fi, nil
}

func checkValues(name string, store StoreValue, index IndexValue, termVector TermVectorValue) error {
	if index == INDEX_NO && store == STORE_NO {
		return util.ArgError("You can't create field %v which is neither indexed nor stored", name)
	}
	if index == INDEX_NO && termVector != TERM_VECTOR_NO {
		return util.ArgError("You can't store the term vectors of an unindexed field %v", name)
	}
	return nil
}

func (fi *FieldInfo) setStore(store StoreValue) {
	switch store {
	case STORE_YES:
		fi.Bits |= FI_IS_STORED
	case STORE_COMPRESS:
		fi.Bits |= FI_IS_STORED | FI_IS_COMPRESSED
	}
}

func (fi *FieldInfo) setIndex(index IndexValue) {
	switch index {
	case INDEX_UNTOKENIZED:
		fi.Bits |= FI_IS_INDEXED
	case INDEX_YES:
		fi.Bits |= FI_IS_INDEXED | FI_IS_TOKENIZED
	case INDEX_UNTOKENIZED_OMIT_NORMS:
		fi.Bits |= FI_IS_INDEXED | FI_OMIT_NORMS
	case INDEX_YES_OMIT_NORMS:
		fi.Bits |= FI_IS_INDEXED | FI_IS_TOKENIZED | FI_OMIT_NORMS
	}
}

func (fi *FieldInfo) setTermVector(tv TermVectorValue) {
	switch tv {
	case TERM_VECTOR_YES:
		fi.Bits |= FI_STORE_TERM_VECTOR
	case TERM_VECTOR_WITH_POSITIONS:
		fi.Bits |= FI_STORE_TERM_VECTOR | FI_STORE_POSITIONS
	case TERM_VECTOR_WITH_OFFSETS:
		fi.Bits |= FI_STORE_TERM_VECTOR | FI_STORE_OFFSETS
	case TERM_VECTOR_WITH_POSITIONS_OFFSETS:
		fi.Bits |= FI_STORE_TERM_VECTOR | FI_STORE_POSITIONS | FI_STORE_OFFSETS
	}
}

func (fi *FieldInfo) IsStored() bool        { return fi.Bits&FI_IS_STORED != 0 }
func (fi *FieldInfo) IsCompressed() bool    { return fi.Bits&FI_IS_COMPRESSED != 0 }
func (fi *FieldInfo) IsIndexed() bool       { return fi.Bits&FI_IS_INDEXED != 0 }
func (fi *FieldInfo) IsTokenized() bool     { return fi.Bits&FI_IS_TOKENIZED != 0 }
func (fi *FieldInfo) OmitNorms() bool       { return fi.Bits&FI_OMIT_NORMS != 0 }
func (fi *FieldInfo) StoreTermVector() bool { return fi.Bits&FI_STORE_TERM_VECTOR != 0 }
func (fi *FieldInfo) StorePositions() bool  { return fi.Bits&FI_STORE_POSITIONS != 0 }
func (fi *FieldInfo) StoreOffsets() bool    { return fi.Bits&FI_STORE_OFFSETS != 0 }

/* Returns true if the field is indexed and keeps a norm per document. */
func (fi *FieldInfo) HasNorms() bool {
	return fi.Bits&(FI_OMIT_NORMS|FI_IS_INDEXED) == FI_IS_INDEXED
}

func (fi *FieldInfo) Store() StoreValue {
	switch {
	case fi.IsCompressed():
		return STORE_COMPRESS
	case fi.IsStored():
		return STORE_YES
	}
	return STORE_NO
}

func (fi *FieldInfo) Index() IndexValue {
	if !fi.IsIndexed() {
		return INDEX_NO
	}
	v := INDEX_UNTOKENIZED
	if fi.IsTokenized() {
		v |= 2
	}
	if fi.OmitNorms() {
		v |= 4
	}
	return v
}

func (fi *FieldInfo) TermVector() TermVectorValue {
	if !fi.StoreTermVector() {
		return TERM_VECTOR_NO
	}
	v := TERM_VECTOR_YES
	if fi.StorePositions() {
		v |= 2
	}
	if fi.StoreOffsets() {
		v |= 4
	}
	return v
}

// Copy returns an unnumbered copy, ready to be added to another FieldInfos.
func (fi *FieldInfo) Copy() *FieldInfo {
	return &FieldInfo{Name: fi.Name, Number: -1, Boost: fi.Boost, Bits: fi.Bits}
}

func (fi *FieldInfo) String() string {
	return fmt.Sprintf("%v:\n  boost: %v\n  store: %v\n  index: %v\n  term_vector: %v\n",
		fi.Name, fi.Boost, fi.Store(), fi.Index(), fi.TermVector())
}

func (v StoreValue) String() string {
	switch v {
	case STORE_YES:
		return ":yes"
	case STORE_COMPRESS:
		return ":compressed"
	}
	return ":no"
}

func (v IndexValue) String() string {
	switch v {
	case INDEX_UNTOKENIZED:
		return ":untokenized"
	case INDEX_YES:
		return ":yes"
	case INDEX_UNTOKENIZED_OMIT_NORMS:
		return ":untokenized_omit_norms"
	case INDEX_YES_OMIT_NORMS:
		return ":omit_norms"
	}
	return ":no"
}

func (v TermVectorValue) String() string {
	switch v {
	case TERM_VECTOR_YES:
		return ":yes"
	case TERM_VECTOR_WITH_POSITIONS:
		return ":with_positions"
	case TERM_VECTOR_WITH_OFFSETS:
		return ":with_offsets"
	case TERM_VECTOR_WITH_POSITIONS_OFFSETS:
		return ":with_positions_offsets"
	}
	return ":no"
}

// ParseStoreValue accepts the names printed by String, without the colon.
func ParseStoreValue(s string) (StoreValue, error) {
	for _, v := range []StoreValue{STORE_NO, STORE_YES, STORE_COMPRESS} {
		if v.String()[1:] == strings.ToLower(s) {
			return v, nil
		}
	}
	return STORE_NO, util.ArgError("invalid store value %q", s)
}

func ParseIndexValue(s string) (IndexValue, error) {
	for _, v := range []IndexValue{INDEX_NO, INDEX_UNTOKENIZED, INDEX_YES,
		INDEX_UNTOKENIZED_OMIT_NORMS, INDEX_YES_OMIT_NORMS} {
		if v.String()[1:] == strings.ToLower(s) {
			return v, nil
		}
	}
	return INDEX_NO, util.ArgError("invalid index value %q", s)
}

func ParseTermVectorValue(s string) (TermVectorValue, error) {
	for _, v := range []TermVectorValue{TERM_VECTOR_NO, TERM_VECTOR_YES, TERM_VECTOR_WITH_POSITIONS,
		TERM_VECTOR_WITH_OFFSETS, TERM_VECTOR_WITH_POSITIONS_OFFSETS} {
		if v.String()[1:] == strings.ToLower(s) {
			return v, nil
		}
	}
	return TERM_VECTOR_NO, util.ArgError("invalid term vector value %q", s)
}
