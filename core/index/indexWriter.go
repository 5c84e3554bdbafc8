package index

import (
	"fmt"
	"sync"

	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("index")

// Library tracing is off until the application picks a level.
func init() { logging.SetLevel(logging.WARNING, "index") }

/*
IndexWriter adds documents to an index and keeps its segments merged.

Documents are buffered by a DocWriter and written as a new segment
when the buffer fills, on Commit and on Close. Every new segment is
followed by a new generation of segments_N; after that, runs of small
segments are merged so that no more than MergeFactor segments of
similar size pile up.

An IndexWriter holds the index write lock from open to Close. All its
methods are serialized.
*/
type IndexWriter struct {
	sync.Mutex
	dir       store.Directory
	conf      *Config
	sis       *SegmentInfos
	dw        *DocWriter
	deleter   *Deleter
	writeLock store.Lock
	closed    bool
}

/*
OpenIndexWriter opens the index in dir for writing, creating it when
conf.Create is set or no index exists yet. conf may be nil for the
defaults. Unreferenced files left behind by earlier failures are
removed.
*/
func OpenIndexWriter(dir store.Directory, conf *Config) (iw *IndexWriter, err error) {
	if conf == nil {
		conf = DefaultConfig()
	}
	if err = conf.Validate(); err != nil {
		return nil, err
	}
	iw = &IndexWriter{dir: dir, conf: conf}

	lock := dir.MakeLock(WRITE_LOCK_NAME)
	if ok, err := lock.ObtainWithin(conf.WriteLockTimeout); !ok {
		return nil, util.LockError("Couldn't obtain write lock when opening IndexWriter: %v", err)
	}
	iw.writeLock = lock
	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(lock)
		}
	}()

	if conf.Create || !IndexExists(dir) {
		fis, err := conf.DefaultFieldInfos()
		if err != nil {
			return nil, err
		}
		if iw.sis, err = writeEmptyIndex(dir, fis); err != nil {
			return nil, err
		}
	} else if iw.sis, err = ReadSegmentInfos(dir); err != nil {
		return nil, err
	}

	iw.deleter = NewDeleter(dir, iw.sis, conf.Metrics)
	if err = iw.deleter.FindDeletableFiles(); err != nil {
		return nil, err
	}
	if iw.dw, err = NewDocWriter(conf, dir, iw.sis); err != nil {
		return nil, err
	}
	success = true
	return iw, nil
}

/*
CreateIndex writes an empty index with the given fields into dir,
replacing whatever index was there.
*/
func CreateIndex(dir store.Directory, fis *model.FieldInfos) (err error) {
	lock := dir.MakeLock(WRITE_LOCK_NAME)
	if ok, err := lock.ObtainWithin(DEFAULT_WRITE_LOCK_TIMEOUT); !ok {
		return util.LockError("Couldn't obtain write lock when creating index: %v", err)
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, lock)
	}()
	sis, err := writeEmptyIndex(dir, fis)
	if err != nil {
		return err
	}
	return NewDeleter(dir, sis, nil).FindDeletableFiles()
}

/*
writeEmptyIndex commits a generation with no segments. An index
already in dir is superseded rather than removed: the new generation
and version are higher than its own, and its files become
unreferenced, left for the deleter.
*/
func writeEmptyIndex(dir store.Directory, fis *model.FieldInfos) (*SegmentInfos, error) {
	sis := NewSegmentInfos(fis, dir)
	if gen, err := CurrentSegmentGeneration(dir); err == nil && gen > sis.Generation {
		sis.Generation = gen
	}
	if version, err := ReadCurrentVersion(dir); err == nil && version > sis.Version {
		sis.Version = version
	}
	if err := sis.Write(dir, nil); err != nil {
		return nil, err
	}
	log.Debugf("created index in %v", dir)
	return sis, nil
}

func (iw *IndexWriter) ensureOpen() error {
	if iw.closed {
		return util.StateError("this IndexWriter is closed")
	}
	return nil
}

// FieldInfos are the fields of the index, growing as documents are added.
func (iw *IndexWriter) FieldInfos() *model.FieldInfos { return iw.sis.Fis }

// SegmentInfos is the generation last published by the writer.
func (iw *IndexWriter) SegmentInfos() *SegmentInfos {
	iw.Lock()
	defer iw.Unlock()
	return iw.sis.Clone()
}

// DocCount counts every document, buffered or deleted ones included.
func (iw *IndexWriter) DocCount() int {
	iw.Lock()
	defer iw.Unlock()
	return iw.sis.DocCount() + iw.dw.DocCount()
}

func (iw *IndexWriter) AddDocument(doc *document.Document) error {
	iw.Lock()
	defer iw.Unlock()
	if err := iw.ensureOpen(); err != nil {
		return err
	}
	if err := iw.dw.AddDocument(doc); err != nil {
		return err
	}
	if iw.dw.NeedsFlush() {
		return iw.flush()
	}
	return nil
}

// commit publishes sis as the next generation and retries pending deletes.
func (iw *IndexWriter) commit() error {
	if err := iw.sis.Write(iw.dir, iw.deleter); err != nil {
		return err
	}
	iw.deleter.CommitPendingFiles()
	iw.conf.Metrics.committed()
	return nil
}

func (iw *IndexWriter) flush() error {
	si, err := iw.dw.Flush()
	if err != nil || si == nil {
		return err
	}
	iw.sis.Add(si)
	if err = iw.commit(); err != nil {
		iw.sis.DelAt(iw.sis.Size() - 1)
		util.DeleteFilesIgnoringErrors(iw.dir, si.Files()...)
		return err
	}
	return iw.maybeMerge()
}

/*
maybeMerge merges the trailing run of segments smaller than a target
size once their documents add up to the target. The target starts at
MaxBufferedDocs and grows by MergeFactor up to MaxMergeDocs, so
MergeFactor flushed segments become one, MergeFactor of those become
one, and so on.
*/
func (iw *IndexWriter) maybeMerge() error {
	target := iw.conf.MaxBufferedDocs
	for target > 0 && target <= iw.conf.MaxMergeDocs {
		minSegment := iw.sis.Size() - 1
		mergeDocs := 0
		for ; minSegment >= 0; minSegment-- {
			si := iw.sis.Segments[minSegment]
			if si.DocCount >= target {
				break
			}
			mergeDocs += si.DocCount
		}
		if mergeDocs >= target {
			if err := iw.mergeSegments(minSegment+1, iw.sis.Size()); err != nil {
				return err
			}
		} else if minSegment <= 0 {
			break
		}
		target *= iw.conf.MergeFactor
	}
	return nil
}

/*
mergeSegments replaces segments [from, to) with their merge. The old
segments' files are deleted once the new generation is written.
*/
func (iw *IndexWriter) mergeSegments(from, to int) (err error) {
	sis := iw.sis
	merger := NewSegmentMerger(iw.dir, sis.NewSegmentName(), sis.Fis, iw.conf)
	readers := make([]IndexReader, 0, to-from)
	for i := from; i < to; i++ {
		sr, err := openSegmentReader(iw.dir, sis, i, sis.Fis, iw.conf, false)
		if err != nil {
			for _, r := range readers {
				util.CloseWhileSuppressingError(r)
			}
			return err
		}
		readers = append(readers, sr)
		merger.Add(sr)
	}
	si, err := merger.Merge()
	for _, r := range readers {
		err = util.CloseWhileHandlingError(err, r)
	}
	if err != nil {
		if si != nil {
			util.DeleteFilesIgnoringErrors(iw.dir, si.Files()...)
		}
		return err
	}

	var obsolete []string
	for _, old := range sis.Segments[from:to] {
		obsolete = append(obsolete, old.Files()...)
	}
	old := sis.Segments
	segments := make([]*SegmentInfo, 0, len(old)-(to-from)+1)
	segments = append(segments, old[:from]...)
	segments = append(segments, si)
	segments = append(segments, old[to:]...)
	sis.Segments = segments
	if err = iw.commit(); err != nil {
		sis.Segments = old
		util.DeleteFilesIgnoringErrors(iw.dir, si.Files()...)
		return err
	}
	iw.deleter.DeleteFiles(obsolete...)
	return nil
}

// Commit flushes buffered documents and publishes a new generation.
func (iw *IndexWriter) Commit() error {
	iw.Lock()
	defer iw.Unlock()
	if err := iw.ensureOpen(); err != nil {
		return err
	}
	return iw.flush()
}

func (iw *IndexWriter) DeleteTerm(field, term string) (int, error) {
	return iw.DeleteTerms(field, term)
}

/*
DeleteTerms deletes every document holding one of terms in field and
returns how many were deleted. Buffered documents are flushed first
so they are covered too.
*/
func (iw *IndexWriter) DeleteTerms(field string, terms ...string) (deleted int, err error) {
	iw.Lock()
	defer iw.Unlock()
	if err = iw.ensureOpen(); err != nil {
		return 0, err
	}
	fieldNum := iw.sis.Fis.FieldNum(field)
	if fieldNum < 0 {
		return 0, nil
	}
	if err = iw.flush(); err != nil {
		return 0, err
	}
	for i := range iw.sis.Segments {
		n, err := iw.deleteTermsInSegment(i, fieldNum, terms)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if deleted > 0 {
		err = iw.commit()
	}
	return deleted, err
}

func (iw *IndexWriter) deleteTermsInSegment(i, fieldNum int, terms []string) (deleted int, err error) {
	sr, err := openSegmentReader(iw.dir, iw.sis, i, iw.sis.Fis, iw.conf, false)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, sr)
	}()
	tde := sr.TermDocs()
	defer func() {
		err = util.CloseWhileHandlingError(err, tde)
	}()
	for _, term := range terms {
		if err = tde.Seek(fieldNum, term); err != nil {
			return 0, err
		}
		for {
			ok, err := tde.Next()
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			if doc := tde.DocNum(); !sr.isDeleted(doc) {
				sr.deleteDoc(doc)
				deleted++
			}
		}
	}
	if deleted > 0 {
		err = sr.doCommit(iw.deleter)
	}
	return deleted, err
}

/*
Optimize merges the whole index into a single segment without
deletions, packed into a compound file when UseCompoundFile is set.
*/
func (iw *IndexWriter) Optimize() error {
	iw.Lock()
	defer iw.Unlock()
	if err := iw.ensureOpen(); err != nil {
		return err
	}
	return iw.optimize()
}

func (iw *IndexWriter) needsOptimize() bool {
	sis := iw.sis
	if sis.Size() > 1 {
		return true
	}
	if sis.Size() == 0 {
		return false
	}
	si := sis.Segments[0]
	return si.HasDeletions() ||
		iw.conf.UseCompoundFile && (!si.UseCompoundFile || si.HasSeparateNorms())
}

func (iw *IndexWriter) optimize() error {
	if err := iw.flush(); err != nil {
		return err
	}
	for iw.needsOptimize() {
		from := iw.sis.Size() - iw.conf.MergeFactor
		if from < 0 {
			from = 0
		}
		if err := iw.mergeSegments(from, iw.sis.Size()); err != nil {
			return err
		}
	}
	return nil
}

/*
AddReaders imports the live documents of readers, typically opened on
other indexes, as new segments, then optimizes the index. Fields are
matched by name; fields new to this index are added with the
readers' settings. The readers stay open.
*/
func (iw *IndexWriter) AddReaders(readers ...IndexReader) error {
	iw.Lock()
	defer iw.Unlock()
	if err := iw.ensureOpen(); err != nil {
		return err
	}
	if err := iw.optimize(); err != nil {
		return err
	}
	added := 0
	for _, r := range readers {
		merger := NewSegmentMerger(iw.dir, iw.sis.NewSegmentName(), iw.sis.Fis, iw.conf)
		merger.Add(r)
		si, err := merger.Merge()
		if err != nil {
			iw.dropSegments(added)
			return err
		}
		iw.sis.Add(si)
		added++
	}
	if err := iw.commit(); err != nil {
		iw.dropSegments(added)
		return err
	}
	return iw.optimize()
}

// dropSegments unregisters and deletes the last n segments.
func (iw *IndexWriter) dropSegments(n int) {
	for ; n > 0; n-- {
		last := iw.sis.Size() - 1
		util.DeleteFilesIgnoringErrors(iw.dir, iw.sis.Segments[last].Files()...)
		iw.sis.DelAt(last)
	}
}

// Close flushes buffered documents and releases the write lock.
func (iw *IndexWriter) Close() error {
	iw.Lock()
	defer iw.Unlock()
	if iw.closed {
		return nil
	}
	iw.closed = true
	err := iw.flush()
	if err != nil {
		iw.dw.Abort()
	}
	return util.CloseWhileHandlingError(err, iw.writeLock)
}

func (iw *IndexWriter) String() string {
	return fmt.Sprintf("IndexWriter(%v, %v segments)", iw.dir, iw.sis.Size())
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
