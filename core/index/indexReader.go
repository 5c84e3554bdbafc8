package index

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
IndexReader is the read side of an index: either one segment or a
composite of several. Field numbers refer to the reader's own
FieldInfos.

Reads may run concurrently. Every enumerator returned is owned by the
caller, who must Close it. DeleteDocument, UndeleteAll and SetNorm
take the index write lock on first use; Commit (or Close) publishes
them as a new generation and releases the lock.
*/
type IndexReader interface {
	io.Closer
	MaxDoc() int
	NumDocs() int
	// GetDocument returns the stored fields of doc. Deleted documents
	// are a state error.
	GetDocument(doc int) (*document.Document, error)
	// GetDocumentWithTerm returns the first live document holding
	// term, or nil.
	GetDocumentWithTerm(fieldNum int, term string) (*document.Document, error)
	IsDeleted(doc int) bool
	HasDeletions() bool
	// DeletedDocs is a snapshot of the deleted document numbers.
	DeletedDocs() *roaring.Bitmap
	DeleteDocument(doc int) error
	UndeleteAll() error
	// GetNorms returns the norms of a field, or nil when no document
	// has norms for it. The slice must not be modified.
	GetNorms(fieldNum int) ([]byte, error)
	// GetNormsInto copies MaxDoc() norms into buf, zero for documents
	// without norms.
	GetNormsInto(fieldNum int, buf []byte) error
	SetNorm(doc, fieldNum int, val byte) error
	Terms(fieldNum int) (TermEnum, error)
	// TermsFrom positions the enum on the first term >= term. Check
	// Term() for "" before reading when the field may be exhausted.
	TermsFrom(fieldNum int, term string) (TermEnum, error)
	DocFreq(fieldNum int, term string) (int, error)
	TermDocs() TermDocEnum
	TermPositions() TermDocEnum
	TermDocsFor(fieldNum int, term string) (TermDocEnum, error)
	TermPositionsFor(fieldNum int, term string) (TermDocEnum, error)
	// TermVector returns nil when doc has no vector for the field.
	TermVector(doc, fieldNum int) (*TermVector, error)
	TermVectors(doc int) ([]*TermVector, error)
	FieldInfos() *model.FieldInfos
	// IsLatest reports whether no other commit happened since the
	// reader was opened or last committed.
	IsLatest() (bool, error)
	Version() int64
	Commit() error
	// IncRef keeps the reader open across one more Close.
	IncRef()
}

type readerState int

const (
	READER_OPEN readerState = iota
	READER_DIRTY
	READER_STALE
)

func (s readerState) String() string {
	switch s {
	case READER_OPEN:
		return "open"
	case READER_DIRTY:
		return "dirty"
	case READER_STALE:
		return "stale"
	}
	panic("not implemented yet")
}

// readerSpi is implemented by concrete readers to commit and release their files.
type readerSpi interface {
	doCommit(deleter *Deleter) error
	doClose() error
}

/*
readerImpl holds what single-segment and composite readers share:
the mutation state machine, the write lock and the reference count.

A reader owns its index when it was opened from a directory. Only
owners take the write lock, check staleness and write segments_N; a
segment reader inside a composite leaves that to the composite.
*/
type readerImpl struct {
	spi       readerSpi
	mu        sync.Mutex
	dir       store.Directory
	sis       *SegmentInfos // nil unless owner
	fis       *model.FieldInfos
	conf      *Config
	deleter   *Deleter
	state     readerState
	writeLock store.Lock
	refCount  int32
}

func newReaderImpl(spi readerSpi, dir store.Directory, sis *SegmentInfos,
	fis *model.FieldInfos, conf *Config) *readerImpl {
	if conf == nil {
		conf = DefaultConfig()
	}
	return &readerImpl{
		spi:      spi,
		dir:      dir,
		sis:      sis,
		fis:      fis,
		conf:     conf,
		refCount: 1,
	}
}

func (r *readerImpl) isOwner() bool { return r.sis != nil }

func (r *readerImpl) FieldInfos() *model.FieldInfos { return r.fis }

func (r *readerImpl) State() readerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *readerImpl) ensureOpen() {
	if atomic.LoadInt32(&r.refCount) <= 0 {
		panic(util.StateError("this IndexReader is closed"))
	}
}

func (r *readerImpl) IncRef() {
	r.ensureOpen()
	atomic.AddInt32(&r.refCount, 1)
}

func staleError(current, mine int64) error {
	return util.StateError("IndexReader out of date and no longer valid for delete, "+
		"undelete, or set_norm operations. The current version is <%v>, but this "+
		"reader's version is <%v>. To perform any of these operations on the index "+
		"you need to close and reopen the index", current, mine)
}

// acquireWriteLock must be called with mu held.
func (r *readerImpl) acquireWriteLock() error {
	if r.state == READER_STALE {
		return util.StateError("IndexReader out of date and no longer valid for delete, " +
			"undelete, or set_norm operations. To perform any of these operations on " +
			"the index you need to close and reopen the index")
	}
	if !r.isOwner() || r.writeLock != nil {
		return nil
	}
	lock := r.dir.MakeLock(WRITE_LOCK_NAME)
	if ok, err := lock.ObtainWithin(r.conf.WriteLockTimeout); !ok {
		return util.LockError("Could not obtain write lock when trying to write changes "+
			"to the index. Check that there are no stale locks in the index. Look for "+
			"files with the \"%v\" extension: %v", store.LOCK_EXT, err)
	}
	version, err := ReadCurrentVersion(r.dir)
	if err != nil {
		util.CloseWhileSuppressingError(lock)
		return err
	}
	if version > r.sis.Version {
		r.state = READER_STALE
		util.CloseWhileSuppressingError(lock)
		return staleError(version, r.sis.Version)
	}
	r.writeLock = lock
	return nil
}

// mutate runs fn under the write lock and marks the reader dirty.
func (r *readerImpl) mutate(fn func() error) error {
	r.ensureOpen()
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.acquireWriteLock(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	r.state = READER_DIRTY
	return nil
}

func (r *readerImpl) Commit() error {
	r.ensureOpen()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commit()
}

func (r *readerImpl) commit() (err error) {
	if r.state != READER_DIRTY {
		return nil
	}
	if r.deleter == nil && r.isOwner() {
		r.deleter = NewDeleter(r.dir, r.sis, r.conf.Metrics)
	}
	if err = r.spi.doCommit(r.deleter); err != nil {
		return err
	}
	if r.isOwner() {
		if err = r.sis.Write(r.dir, r.deleter); err != nil {
			return err
		}
		r.deleter.CommitPendingFiles()
		r.conf.Metrics.committed()
		log.Debugf("reader committed %v", r.sis.SegmentsFileName())
		err = r.releaseWriteLock()
	}
	r.state = READER_OPEN
	return err
}

func (r *readerImpl) releaseWriteLock() error {
	if r.writeLock == nil {
		return nil
	}
	lock := r.writeLock
	r.writeLock = nil
	return lock.Close()
}

func (r *readerImpl) Version() int64 {
	if r.sis == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sis.Version
}

func (r *readerImpl) IsLatest() (bool, error) {
	if r.sis == nil {
		return true, nil
	}
	version, err := ReadCurrentVersion(r.dir)
	if err != nil {
		return false, err
	}
	return version == r.Version(), nil
}

/*
Close commits pending changes and releases the reader's files once the
last reference is gone.
*/
func (r *readerImpl) Close() error {
	rc := atomic.AddInt32(&r.refCount, -1)
	if rc > 0 {
		return nil
	}
	if rc < 0 {
		panic(fmt.Sprintf("too many Close calls: refCount is %v after decrement", rc))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.commit()
	err = util.CloseWhileHandlingError(err, closerFunc(r.spi.doClose))
	if lockErr := r.releaseWriteLock(); err == nil {
		err = lockErr
	}
	return err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

/*
OpenIndexReader opens the current generation of the index in dir: a
SegmentReader when it has one segment, a MultiReader otherwise. conf
may be nil for the defaults; only WriteLockTimeout and Metrics are
used.
*/
func OpenIndexReader(dir store.Directory, conf *Config) (ir IndexReader, err error) {
	err = findSegmentsFile(dir, func(fileName string) error {
		sis, err := readSegmentInfosFile(dir, fileName)
		if err != nil {
			return err
		}
		ir, err = openReaderForInfos(dir, sis, conf)
		return err
	})
	return ir, err
}

func openReaderForInfos(dir store.Directory, sis *SegmentInfos, conf *Config) (IndexReader, error) {
	if sis.Size() == 1 {
		return openSegmentReader(dir, sis, 0, sis.Fis, conf, true)
	}
	readers := make([]IndexReader, 0, sis.Size())
	for i := range sis.Segments {
		sr, err := openSegmentReader(dir, sis, i, sis.Fis, conf, false)
		if err != nil {
			for _, r := range readers {
				util.CloseWhileSuppressingError(r)
			}
			return nil, err
		}
		readers = append(readers, sr)
	}
	return newOwnedMultiReader(dir, sis, conf, readers), nil
}

// IndexExists reports whether dir holds a committed index.
func IndexExists(dir store.Directory) bool {
	gen, err := CurrentSegmentGeneration(dir)
	if err == nil && gen >= 0 {
		return true
	}
	_, err = ReadCurrentVersion(dir)
	return err == nil
}

// IndexIsLocked reports whether someone holds the write lock of dir.
func IndexIsLocked(dir store.Directory) bool {
	return dir.MakeLock(WRITE_LOCK_NAME).IsLocked()
}

/*
GetDocumentWithTerm is the shared implementation of
IndexReader.GetDocumentWithTerm.
*/
func getDocumentWithTerm(ir IndexReader, fieldNum int, term string) (doc *document.Document, err error) {
	tde, err := ir.TermDocsFor(fieldNum, term)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, tde)
	}()
	ok, err := tde.Next()
	if err != nil || !ok {
		return nil, err
	}
	return ir.GetDocument(tde.DocNum())
}

func termDocsFor(tde TermDocEnum, fieldNum int, term string) (TermDocEnum, error) {
	if err := tde.Seek(fieldNum, term); err != nil {
		util.CloseWhileSuppressingError(tde)
		return nil, err
	}
	return tde, nil
}
