package index

import (
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

// norm is the norms file of one field; bytes are loaded on first use.
type norm struct {
	fieldNum int
	in       store.IndexInput
	bytes    []byte
	dirty    bool
}

/*
SegmentReader reads one segment. All inputs are opened up front and
each enumerator works on its own clones, so reads don't block each
other.
*/
type SegmentReader struct {
	*readerImpl
	si     *SegmentInfo
	cfs    *store.CompoundFileDirectory
	segDir store.Directory // the compound file when there is one
	size   int

	sfi   *SegmentFieldIndex
	tir   *TermInfosReader // owns .tis, cloned per caller
	frqIn store.IndexInput
	prxIn store.IndexInput
	fr    *FieldsReader

	// deleted is copied on write once an enum holds it (deletedShared).
	deleted       *util.BitSet
	deletedShared bool
	deletedDirty  bool
	undeleteAll  bool
	norms        map[int]*norm
	normsDirty   bool
}

/*
openSegmentReader opens segment i of sis. An owner reader is the
index's only reader handle and takes the write lock itself.
*/
func openSegmentReader(dir store.Directory, sis *SegmentInfos, i int, fis *model.FieldInfos,
	conf *Config, owner bool) (sr *SegmentReader, err error) {
	sr = &SegmentReader{si: sis.Segments[i], norms: make(map[int]*norm)}
	var owned *SegmentInfos
	if owner {
		owned = sis
	}
	sr.readerImpl = newReaderImpl(sr, dir, owned, fis, conf)

	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(closerFunc(sr.doClose))
		}
	}()

	segment := sr.si.Name
	sr.segDir = dir
	if sr.si.UseCompoundFile {
		if sr.cfs, err = store.OpenCompoundFileDirectory(dir,
			util.SegmentFileName(segment, EXT_COMPOUND), store.IO_CONTEXT_READ); err != nil {
			return nil, err
		}
		sr.segDir = sr.cfs
	}
	if sr.fr, err = OpenFieldsReader(sr.segDir, segment, fis); err != nil {
		return nil, err
	}
	sr.size = sr.fr.Size()
	if sr.sfi, err = OpenSegmentFieldIndex(sr.segDir, segment); err != nil {
		return nil, err
	}
	te, err := OpenSegmentTermEnum(sr.segDir, segment, sr.sfi)
	if err != nil {
		return nil, err
	}
	sr.tir = NewTermInfosReader(te)
	if sr.si.HasDeletions() {
		if sr.deleted, err = readDeletions(dir, sr.si.DelFileName()); err != nil {
			return nil, err
		}
	}
	if sr.frqIn, err = sr.segDir.OpenInput(util.SegmentFileName(segment, EXT_FREQS), store.IO_CONTEXT_READ); err != nil {
		return nil, err
	}
	if sr.prxIn, err = sr.segDir.OpenInput(util.SegmentFileName(segment, EXT_PROX), store.IO_CONTEXT_READ); err != nil {
		return nil, err
	}
	if err = sr.openNorms(dir); err != nil {
		return nil, err
	}
	success = true
	return sr, nil
}

func (sr *SegmentReader) openNorms(dir store.Directory) error {
	for _, fi := range sr.fis.Fields() {
		if !fi.HasNorms() {
			continue
		}
		name := sr.si.NormFileName(fi.Number)
		if name == "" {
			continue
		}
		d := dir
		if sr.si.NormsInCompound(fi.Number) {
			d = sr.segDir
		}
		in, err := d.OpenInput(name, store.IO_CONTEXT_READ)
		if err != nil {
			return err
		}
		sr.norms[fi.Number] = &norm{fieldNum: fi.Number, in: in}
	}
	return nil
}

// SegmentInfo is the descriptor of the segment being read.
func (sr *SegmentReader) SegmentInfo() *SegmentInfo { return sr.si }

func (sr *SegmentReader) MaxDoc() int { return sr.size }

func (sr *SegmentReader) NumDocs() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.deleted == nil {
		return sr.size
	}
	return sr.size - sr.deleted.Count()
}

func (sr *SegmentReader) isDeleted(doc int) bool {
	return sr.deleted != nil && sr.deleted.Get(doc)
}

func (sr *SegmentReader) IsDeleted(doc int) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.isDeleted(doc)
}

func (sr *SegmentReader) HasDeletions() bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.deleted != nil && sr.deleted.Count() > 0
}

func (sr *SegmentReader) DeletedDocs() *roaring.Bitmap {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.deleted == nil {
		return roaring.New()
	}
	return sr.deleted.ToRoaring()
}

func (sr *SegmentReader) GetDocument(doc int) (*document.Document, error) {
	sr.ensureOpen()
	if err := sr.checkDoc(doc); err != nil {
		return nil, err
	}
	if sr.IsDeleted(doc) {
		return nil, util.StateError("Document %v has already been deleted", doc)
	}
	return sr.fr.GetDocument(doc)
}

func (sr *SegmentReader) GetDocumentWithTerm(fieldNum int, term string) (*document.Document, error) {
	return getDocumentWithTerm(sr, fieldNum, term)
}

func (sr *SegmentReader) checkDoc(doc int) error {
	if doc < 0 || doc >= sr.size {
		return util.ArgError("document %v out of range [0, %v)", doc, sr.size)
	}
	return nil
}

func (sr *SegmentReader) DeleteDocument(doc int) error {
	if err := sr.checkDoc(doc); err != nil {
		return err
	}
	return sr.mutate(func() error {
		sr.deleteDoc(doc)
		return nil
	})
}

// deleteDoc is called with mu held or on a reader private to the caller.
func (sr *SegmentReader) deleteDoc(doc int) {
	switch {
	case sr.deleted == nil:
		sr.deleted = util.NewBitSet()
	case sr.deletedShared:
		sr.deleted = sr.deleted.Clone()
	}
	sr.deletedShared = false
	sr.deleted.Set(doc)
	sr.deletedDirty = true
	sr.undeleteAll = false
}

func (sr *SegmentReader) UndeleteAll() error {
	return sr.mutate(func() error {
		sr.undeleteAllDocs()
		return nil
	})
}

func (sr *SegmentReader) undeleteAllDocs() {
	sr.deleted, sr.deletedShared = nil, false
	sr.deletedDirty = false
	sr.undeleteAll = true
}

// normBytes loads and caches the norms of a field, nil without norms.
func (sr *SegmentReader) normBytes(fieldNum int) ([]byte, error) {
	n, ok := sr.norms[fieldNum]
	if !ok {
		return nil, nil
	}
	if n.bytes == nil {
		bytes := make([]byte, sr.size)
		if err := sr.readNorms(n, bytes); err != nil {
			return nil, err
		}
		n.bytes = bytes
	}
	return n.bytes, nil
}

func (sr *SegmentReader) readNorms(n *norm, buf []byte) error {
	in := n.in.Clone()
	defer in.Close()
	if err := in.Seek(0); err != nil {
		return err
	}
	return in.ReadBytes(buf[:sr.size])
}

func (sr *SegmentReader) GetNorms(fieldNum int) ([]byte, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.normBytes(fieldNum)
}

func (sr *SegmentReader) GetNormsInto(fieldNum int, buf []byte) error {
	assert2(len(buf) >= sr.size, "norms buffer too small: %v < %v", len(buf), sr.size)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	n, ok := sr.norms[fieldNum]
	switch {
	case !ok:
		for i := range buf[:sr.size] {
			buf[i] = 0
		}
		return nil
	case n.bytes != nil:
		copy(buf, n.bytes)
		return nil
	}
	return sr.readNorms(n, buf)
}

func (sr *SegmentReader) SetNorm(doc, fieldNum int, val byte) error {
	if err := sr.checkDoc(doc); err != nil {
		return err
	}
	return sr.mutate(func() error {
		return sr.setNorm(doc, fieldNum, val)
	})
}

/*
setNorm changes one norm. A field which has norms but no norms file in
this segment gets an all-zero array first.
*/
func (sr *SegmentReader) setNorm(doc, fieldNum int, val byte) error {
	if fieldNum < 0 || fieldNum >= sr.fis.Size() || !sr.fis.ByNumber(fieldNum).HasNorms() {
		return util.ArgError("field %v has no norms", fieldNum)
	}
	n, ok := sr.norms[fieldNum]
	if !ok {
		n = &norm{fieldNum: fieldNum, bytes: make([]byte, sr.size)}
		sr.norms[fieldNum] = n
	}
	bytes, err := sr.normBytes(fieldNum)
	if err != nil {
		return err
	}
	bytes[doc] = val
	n.dirty = true
	sr.normsDirty = true
	return nil
}

func (sr *SegmentReader) Terms(fieldNum int) (TermEnum, error) {
	sr.ensureOpen()
	te := sr.tir.te.Clone()
	if err := te.SetField(fieldNum); err != nil {
		te.Close()
		return nil, err
	}
	return te, nil
}

func (sr *SegmentReader) TermsFrom(fieldNum int, term string) (TermEnum, error) {
	te, err := sr.Terms(fieldNum)
	if err != nil {
		return nil, err
	}
	if _, err = te.SkipTo(term); err != nil {
		te.Close()
		return nil, err
	}
	return te, nil
}

func (sr *SegmentReader) DocFreq(fieldNum int, term string) (int, error) {
	sr.ensureOpen()
	tir := sr.tir.Clone()
	defer tir.Close()
	ti, err := tir.GetTermInfo(fieldNum, term)
	if err != nil || ti == nil {
		return 0, err
	}
	return ti.DocFreq, nil
}

/*
deletedSnapshot hands out the deletions for an enum. The set is never
changed in place afterwards, so an enum skips the documents deleted
when it was created and is unaffected by later deletions.
*/
func (sr *SegmentReader) deletedSnapshot() *util.BitSet {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.deleted != nil {
		sr.deletedShared = true
	}
	return sr.deleted
}

func (sr *SegmentReader) TermDocs() TermDocEnum {
	sr.ensureOpen()
	return newSegmentTermDocEnum(sr.frqIn, nil, sr.tir.Clone(), sr.deletedSnapshot(), sr.sfi.SkipInterval())
}

func (sr *SegmentReader) TermPositions() TermDocEnum {
	sr.ensureOpen()
	return newSegmentTermDocEnum(sr.frqIn, sr.prxIn, sr.tir.Clone(), sr.deletedSnapshot(), sr.sfi.SkipInterval())
}

func (sr *SegmentReader) TermDocsFor(fieldNum int, term string) (TermDocEnum, error) {
	return termDocsFor(sr.TermDocs(), fieldNum, term)
}

func (sr *SegmentReader) TermPositionsFor(fieldNum int, term string) (TermDocEnum, error) {
	return termDocsFor(sr.TermPositions(), fieldNum, term)
}

func (sr *SegmentReader) TermVector(doc, fieldNum int) (*TermVector, error) {
	sr.ensureOpen()
	if fieldNum < 0 || fieldNum >= sr.fis.Size() || !sr.fis.ByNumber(fieldNum).StoreTermVector() {
		return nil, nil
	}
	return sr.fr.GetTermVector(doc, fieldNum)
}

func (sr *SegmentReader) TermVectors(doc int) ([]*TermVector, error) {
	sr.ensureOpen()
	return sr.fr.GetTermVectors(doc)
}

/*
doCommit writes the changed deletions and norms under new
generations. Replaced files go to deleter; the caller publishes the
SegmentInfo.
*/
func (sr *SegmentReader) doCommit(deleter *Deleter) error {
	si := sr.si
	if sr.undeleteAll || sr.deletedDirty {
		if si.HasDeletions() {
			queueFile(deleter, sr.dir, si.DelFileName())
		}
		if sr.undeleteAll {
			si.DelGen = -1
			sr.undeleteAll = false
		} else {
			if err := writeDeletions(sr.dir, si.AdvanceDelGen(), sr.deleted); err != nil {
				return err
			}
			sr.deletedDirty = false
		}
	}
	if sr.normsDirty {
		for _, fi := range sr.fis.Fields() {
			n, ok := sr.norms[fi.Number]
			if !ok || !n.dirty {
				continue
			}
			if name := si.NormFileName(fi.Number); name != "" && !si.NormsInCompound(fi.Number) {
				queueFile(deleter, sr.dir, name)
			}
			si.AdvanceNormGen(fi.Number)
			if err := writeNorms(sr.dir, si.NormFileName(fi.Number), n.bytes); err != nil {
				return err
			}
			n.dirty = false
		}
		sr.normsDirty = false
	}
	return nil
}

func queueFile(deleter *Deleter, dir store.Directory, name string) {
	if deleter != nil {
		deleter.QueueFile(name)
		return
	}
	dir.DeleteFile(name) // ignore error
}

func (sr *SegmentReader) doClose() error {
	var closers []io.Closer
	if sr.fr != nil {
		closers = append(closers, sr.fr)
	}
	if sr.tir != nil {
		closers = append(closers, sr.tir)
	}
	if sr.sfi != nil {
		closers = append(closers, sr.sfi)
	}
	closers = append(closers, sr.frqIn, sr.prxIn)
	for _, n := range sr.norms {
		closers = append(closers, n.in)
	}
	if sr.cfs != nil {
		closers = append(closers, sr.cfs)
	}
	return util.Close(closers...)
}

/*
writeDeletions stores bs as a vint bit count followed by the u32
words from the highest down.
*/
func writeDeletions(dir store.Directory, name string, bs *util.BitSet) (err error) {
	out, err := dir.CreateOutput(name, store.IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()
	size := bs.Size()
	if err = out.WriteVInt(int32(size)); err != nil {
		return err
	}
	words := bs.Words()
	for i := size >> 5; i >= 0; i-- {
		var word uint32
		if i < len(words) {
			word = words[i]
		}
		if err = out.WriteInt(int32(word)); err != nil {
			return err
		}
	}
	return nil
}

func readDeletions(dir store.Directory, name string) (bs *util.BitSet, err error) {
	in, err := dir.OpenInput(name, store.IO_CONTEXT_READ)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	size, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, util.CorruptError("%v: negative size %v", name, size)
	}
	words := make([]uint32, (size>>5)+1)
	for i := len(words) - 1; i >= 0; i-- {
		word, err := in.ReadInt()
		if err != nil {
			return nil, err
		}
		words[i] = uint32(word)
	}
	return util.NewBitSetFromWords(int(size), words), nil
}
