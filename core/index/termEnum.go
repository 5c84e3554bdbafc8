package index

import (
	"sort"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
TermEnum is a cursor over the sorted terms of one field. After
SetField the cursor sits before the first term; Next and SkipTo
return false once the field is exhausted, and Term is then "".

A TermEnum is not safe for concurrent use. Clone gives an independent
cursor at the same position.
*/
type TermEnum interface {
	SetField(fieldNum int) error
	Next() (bool, error)
	// Positions the cursor on the first term >= target.
	SkipTo(target string) (bool, error)
	Term() string
	TermInfo() TermInfo
	// Document frequency of the current term.
	DocFreq() int
	FieldNum() int
	Clone() TermEnum
	Close() error
}

// SegmentTermEnum walks one segment's .tis file.
type SegmentTermEnum struct {
	in       store.IndexInput
	sfi      *SegmentFieldIndex
	fieldNum int
	field    *segmentTermIndex
	size     int
	pos      int
	currTerm string
	prevTerm string
	currTi   TermInfo
}

func OpenSegmentTermEnum(dir store.Directory, segment string, sfi *SegmentFieldIndex) (*SegmentTermEnum, error) {
	in, err := dir.OpenInput(util.SegmentFileName(segment, EXT_TERMS), store.IO_CONTEXT_READ)
	if err != nil {
		return nil, err
	}
	return newSegmentTermEnum(in, sfi), nil
}

func newSegmentTermEnum(in store.IndexInput, sfi *SegmentFieldIndex) *SegmentTermEnum {
	return &SegmentTermEnum{in: in, sfi: sfi, fieldNum: -1, pos: -1}
}

func (te *SegmentTermEnum) SetField(fieldNum int) error {
	te.fieldNum = fieldNum
	te.pos = -1
	te.currTerm, te.prevTerm = "", ""
	te.currTi = TermInfo{}
	f, ok := te.sfi.fields[fieldNum]
	if !ok {
		te.field, te.size = nil, 0
		return nil
	}
	te.field, te.size = f, f.size
	return te.in.Seek(f.ptr)
}

func (te *SegmentTermEnum) Next() (bool, error) {
	if te.pos >= te.size-1 {
		te.pos = te.size
		te.currTerm, te.prevTerm = "", ""
		te.currTi = TermInfo{}
		return false, nil
	}
	term, err := readTermEntry(te.in, te.currTerm, &te.currTi, te.sfi.skipInterval)
	if err != nil {
		return false, err
	}
	te.pos++
	te.prevTerm, te.currTerm = te.currTerm, term
	return true, nil
}

// seekIndex positions the cursor on index entry i, just before term i*interval.
func (te *SegmentTermEnum) seekIndex(f *segmentTermIndex, i int) error {
	if err := te.in.Seek(f.ptrs[i]); err != nil {
		return err
	}
	te.pos = i*te.sfi.indexInterval - 1
	te.prevTerm = ""
	te.currTerm = f.terms[i]
	te.currTi = f.infos[i]
	return nil
}

/*
SkipTo binary-searches the skip index for the last entry below
target, then scans forward. When the cursor is already inside that
block and before target it scans from where it is.
*/
func (te *SegmentTermEnum) SkipTo(target string) (bool, error) {
	if te.field == nil {
		return false, nil
	}
	f, err := te.sfi.index(te.fieldNum)
	if err != nil {
		return false, err
	}
	i := sort.Search(len(f.terms), func(i int) bool { return f.terms[i] >= target }) - 1
	if i < 0 {
		i = 0
	}
	if !(te.pos >= i*te.sfi.indexInterval-1 && te.pos < te.size && te.currTerm < target) {
		if err = te.seekIndex(f, i); err != nil {
			return false, err
		}
	}
	for {
		ok, err := te.Next()
		if err != nil || !ok {
			return false, err
		}
		if te.currTerm >= target {
			return true, nil
		}
	}
}

func (te *SegmentTermEnum) seekOrdinal(pos int) (string, bool, error) {
	if te.field == nil || pos < 0 || pos >= te.size {
		return "", false, nil
	}
	f, err := te.sfi.index(te.fieldNum)
	if err != nil {
		return "", false, err
	}
	if !(te.pos >= 0 && te.pos <= pos && pos-te.pos < te.sfi.indexInterval) {
		if err = te.seekIndex(f, pos/te.sfi.indexInterval); err != nil {
			return "", false, err
		}
	}
	for te.pos < pos {
		if _, err = te.Next(); err != nil {
			return "", false, err
		}
	}
	return te.currTerm, true, nil
}

func (te *SegmentTermEnum) Term() string { return te.currTerm }

// PrevTerm is the term before the current one, "" at an index point.
func (te *SegmentTermEnum) PrevTerm() string { return te.prevTerm }

func (te *SegmentTermEnum) TermInfo() TermInfo { return te.currTi }

func (te *SegmentTermEnum) DocFreq() int { return te.currTi.DocFreq }

func (te *SegmentTermEnum) FieldNum() int { return te.fieldNum }

// Size is the number of terms in the current field.
func (te *SegmentTermEnum) Size() int { return te.size }

func (te *SegmentTermEnum) Clone() TermEnum {
	clone := *te
	clone.in = te.in.Clone()
	return &clone
}

func (te *SegmentTermEnum) Close() error {
	return te.in.Close()
}
