package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
MultiReader reads several sub-readers as one index. Document numbers
are laid out one reader after the other; starts[i] is the first
document of reader i.

A MultiReader opened from a directory owns its segment readers and
their shared FieldInfos. One built with NewMultiReader over readers of
other indexes has a FieldInfos of its own, the union of theirs by
field name, and translates field numbers on the way down.
*/
type MultiReader struct {
	*readerImpl
	subs      []IndexReader
	starts    []int // len(subs)+1, the last entry is MaxDoc
	fieldMaps [][]int
	owned     bool

	numDocs    int // -1 when unknown
	normsCache map[int][]byte
}

func newOwnedMultiReader(dir store.Directory, sis *SegmentInfos, conf *Config, subs []IndexReader) *MultiReader {
	mr := &MultiReader{subs: subs, owned: true}
	mr.readerImpl = newReaderImpl(mr, dir, sis, sis.Fis, conf)
	mr.init()
	return mr
}

/*
NewMultiReader composes readers. The MultiReader takes over the
callers' references: closing it closes them. Changes are forwarded to
each reader, which takes its own index's write lock.
*/
func NewMultiReader(readers ...IndexReader) (*MultiReader, error) {
	fis := model.DefaultFieldInfos()
	fieldMaps := make([][]int, len(readers))
	for _, r := range readers {
		for _, fi := range r.FieldInfos().Fields() {
			if fis.Field(fi.Name) != nil {
				continue
			}
			if _, err := fis.AddField(fi.Copy()); err != nil {
				return nil, err
			}
		}
	}
	for i, r := range readers {
		sub := r.FieldInfos()
		fm := make([]int, fis.Size())
		for _, fi := range fis.Fields() {
			fm[fi.Number] = sub.FieldNum(fi.Name)
		}
		fieldMaps[i] = fm
	}
	mr := &MultiReader{subs: readers, fieldMaps: fieldMaps}
	mr.readerImpl = newReaderImpl(mr, nil, nil, fis, nil)
	mr.init()
	return mr, nil
}

func (mr *MultiReader) init() {
	mr.starts = make([]int, len(mr.subs)+1)
	for i, sub := range mr.subs {
		mr.starts[i+1] = mr.starts[i] + sub.MaxDoc()
	}
	mr.numDocs = -1
	mr.normsCache = make(map[int][]byte)
}

// SubReaders are the readers composed, in document order.
func (mr *MultiReader) SubReaders() []IndexReader { return mr.subs }

// readerIndex finds the reader holding doc, skipping empty readers.
func (mr *MultiReader) readerIndex(doc int) int {
	n := len(mr.subs)
	return sort.Search(n, func(i int) bool { return mr.starts[i+1] > doc })
}

func (mr *MultiReader) locate(doc int) (int, int, error) {
	if doc < 0 || doc >= mr.MaxDoc() {
		return 0, 0, util.ArgError("document %v out of range [0, %v)", doc, mr.MaxDoc())
	}
	i := mr.readerIndex(doc)
	return i, doc - mr.starts[i], nil
}

func (mr *MultiReader) subField(i, fieldNum int) int {
	if mr.fieldMaps == nil {
		return fieldNum
	}
	fm := mr.fieldMaps[i]
	if fieldNum < 0 || fieldNum >= len(fm) {
		return -1
	}
	return fm[fieldNum]
}

func (mr *MultiReader) MaxDoc() int { return mr.starts[len(mr.subs)] }

func (mr *MultiReader) NumDocs() int {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if mr.numDocs < 0 {
		n := 0
		for _, sub := range mr.subs {
			n += sub.NumDocs()
		}
		mr.numDocs = n
	}
	return mr.numDocs
}

func (mr *MultiReader) GetDocument(doc int) (*document.Document, error) {
	i, local, err := mr.locate(doc)
	if err != nil {
		return nil, err
	}
	return mr.subs[i].GetDocument(local)
}

func (mr *MultiReader) GetDocumentWithTerm(fieldNum int, term string) (*document.Document, error) {
	return getDocumentWithTerm(mr, fieldNum, term)
}

func (mr *MultiReader) IsDeleted(doc int) bool {
	i, local, err := mr.locate(doc)
	if err != nil {
		return false
	}
	return mr.subs[i].IsDeleted(local)
}

func (mr *MultiReader) HasDeletions() bool {
	for _, sub := range mr.subs {
		if sub.HasDeletions() {
			return true
		}
	}
	return false
}

func (mr *MultiReader) DeletedDocs() *roaring.Bitmap {
	ans := roaring.New()
	for i, sub := range mr.subs {
		it := sub.DeletedDocs().Iterator()
		for it.HasNext() {
			ans.Add(uint32(mr.starts[i]) + it.Next())
		}
	}
	return ans
}

/*
forward runs a change on sub-reader i: directly on an owned segment
reader, which is already covered by our write lock, or through the
public method of a foreign reader.
*/
func (mr *MultiReader) forward(i int, owned func(sr *SegmentReader) error, foreign func(r IndexReader) error) error {
	if !mr.owned {
		return foreign(mr.subs[i])
	}
	sr := mr.subs[i].(*SegmentReader)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return owned(sr)
}

func (mr *MultiReader) DeleteDocument(doc int) error {
	i, local, err := mr.locate(doc)
	if err != nil {
		return err
	}
	return mr.mutate(func() error {
		mr.numDocs = -1
		return mr.forward(i, func(sr *SegmentReader) error {
			sr.deleteDoc(local)
			return nil
		}, func(r IndexReader) error {
			return r.DeleteDocument(local)
		})
	})
}

func (mr *MultiReader) UndeleteAll() error {
	return mr.mutate(func() error {
		mr.numDocs = -1
		for i := range mr.subs {
			err := mr.forward(i, func(sr *SegmentReader) error {
				sr.undeleteAllDocs()
				return nil
			}, func(r IndexReader) error {
				return r.UndeleteAll()
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (mr *MultiReader) GetNorms(fieldNum int) ([]byte, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if bytes, ok := mr.normsCache[fieldNum]; ok {
		return bytes, nil
	}
	found := false
	for i := range mr.subs {
		if norms, err := mr.subs[i].GetNorms(mr.subField(i, fieldNum)); err != nil {
			return nil, err
		} else if norms != nil {
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	bytes := make([]byte, mr.MaxDoc())
	if err := mr.normsInto(fieldNum, bytes); err != nil {
		return nil, err
	}
	mr.normsCache[fieldNum] = bytes
	return bytes, nil
}

func (mr *MultiReader) normsInto(fieldNum int, buf []byte) error {
	for i, sub := range mr.subs {
		part := buf[mr.starts[i]:mr.starts[i+1]]
		f := mr.subField(i, fieldNum)
		if f < 0 {
			for j := range part {
				part[j] = 0
			}
			continue
		}
		if err := sub.GetNormsInto(f, part); err != nil {
			return err
		}
	}
	return nil
}

func (mr *MultiReader) GetNormsInto(fieldNum int, buf []byte) error {
	assert2(len(buf) >= mr.MaxDoc(), "norms buffer too small: %v < %v", len(buf), mr.MaxDoc())
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if bytes, ok := mr.normsCache[fieldNum]; ok {
		copy(buf, bytes)
		return nil
	}
	return mr.normsInto(fieldNum, buf)
}

func (mr *MultiReader) SetNorm(doc, fieldNum int, val byte) error {
	i, local, err := mr.locate(doc)
	if err != nil {
		return err
	}
	f := mr.subField(i, fieldNum)
	if f < 0 {
		return util.ArgError("field %v has no norms", fieldNum)
	}
	return mr.mutate(func() error {
		delete(mr.normsCache, fieldNum)
		return mr.forward(i, func(sr *SegmentReader) error {
			return sr.setNorm(local, f, val)
		}, func(r IndexReader) error {
			return r.SetNorm(local, f, val)
		})
	})
}

func (mr *MultiReader) termEnums() ([]TermEnum, error) {
	tes := make([]TermEnum, 0, len(mr.subs))
	for _, sub := range mr.subs {
		te, err := sub.Terms(-1)
		if err != nil {
			for _, te := range tes {
				te.Close()
			}
			return nil, err
		}
		tes = append(tes, te)
	}
	return tes, nil
}

func (mr *MultiReader) Terms(fieldNum int) (TermEnum, error) {
	mr.ensureOpen()
	tes, err := mr.termEnums()
	if err != nil {
		return nil, err
	}
	mte := NewMultiTermEnum(tes, mr.fieldMaps)
	if err = mte.SetField(fieldNum); err != nil {
		mte.Close()
		return nil, err
	}
	return mte, nil
}

func (mr *MultiReader) TermsFrom(fieldNum int, term string) (TermEnum, error) {
	te, err := mr.Terms(fieldNum)
	if err != nil {
		return nil, err
	}
	if _, err = te.SkipTo(term); err != nil {
		te.Close()
		return nil, err
	}
	return te, nil
}

func (mr *MultiReader) DocFreq(fieldNum int, term string) (int, error) {
	total := 0
	for i, sub := range mr.subs {
		f := mr.subField(i, fieldNum)
		if f < 0 {
			continue
		}
		df, err := sub.DocFreq(f, term)
		if err != nil {
			return 0, err
		}
		total += df
	}
	return total, nil
}

func (mr *MultiReader) TermDocs() TermDocEnum {
	mr.ensureOpen()
	subs := make([]TermDocEnum, len(mr.subs))
	for i, sub := range mr.subs {
		subs[i] = sub.TermDocs()
	}
	return NewMultiTermDocEnum(subs, mr.starts, mr.fieldMaps)
}

func (mr *MultiReader) TermPositions() TermDocEnum {
	mr.ensureOpen()
	subs := make([]TermDocEnum, len(mr.subs))
	for i, sub := range mr.subs {
		subs[i] = sub.TermPositions()
	}
	return NewMultiTermDocEnum(subs, mr.starts, mr.fieldMaps)
}

func (mr *MultiReader) TermDocsFor(fieldNum int, term string) (TermDocEnum, error) {
	return termDocsFor(mr.TermDocs(), fieldNum, term)
}

func (mr *MultiReader) TermPositionsFor(fieldNum int, term string) (TermDocEnum, error) {
	return termDocsFor(mr.TermPositions(), fieldNum, term)
}

func (mr *MultiReader) TermVector(doc, fieldNum int) (*TermVector, error) {
	i, local, err := mr.locate(doc)
	if err != nil {
		return nil, err
	}
	f := mr.subField(i, fieldNum)
	if f < 0 {
		return nil, nil
	}
	tv, err := mr.subs[i].TermVector(local, f)
	if tv != nil {
		tv.FieldNum = fieldNum
	}
	return tv, err
}

func (mr *MultiReader) TermVectors(doc int) ([]*TermVector, error) {
	i, local, err := mr.locate(doc)
	if err != nil {
		return nil, err
	}
	tvs, err := mr.subs[i].TermVectors(local)
	if err != nil {
		return nil, err
	}
	for _, tv := range tvs {
		tv.FieldNum = mr.fis.FieldNum(tv.Field)
	}
	return tvs, nil
}

func (mr *MultiReader) IsLatest() (bool, error) {
	if mr.owned {
		return mr.readerImpl.IsLatest()
	}
	for _, sub := range mr.subs {
		if ok, err := sub.IsLatest(); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (mr *MultiReader) doCommit(deleter *Deleter) error {
	for _, sub := range mr.subs {
		var err error
		if mr.owned {
			sr := sub.(*SegmentReader)
			sr.mu.Lock()
			err = sr.doCommit(deleter)
			sr.mu.Unlock()
		} else {
			err = sub.Commit()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (mr *MultiReader) doClose() error {
	var err error
	for _, sub := range mr.subs {
		err = util.CloseWhileHandlingError(err, sub)
	}
	return err
}
