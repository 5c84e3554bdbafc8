package index

import (
	"fmt"
	"io"
	"runtime"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"golang.org/x/sync/errgroup"
)

// Returned from CheckIndex() detailing the health and status of the index
type CheckIndexStatus struct {
	// True if no problems found with the index.
	Clean            bool
	SegmentsFileName string
	Version          int64
	Segments         []*SegmentStatus
}

// SegmentStatus is what CheckIndex found in one segment.
type SegmentStatus struct {
	Name           string
	DocCount       int
	NumDeleted     int
	Compound       bool
	NumFields      int
	TermCount      int
	PostingCount   int
	PositionCount  int
	TermVectorDocs int
	// Err is the first problem found, nil for a healthy segment.
	Err error
}

/*
Basic tool and API to check the health of an index.

Every live document is loaded, every term dictionary walked in full
and every posting decoded, so on a large index it can take a long
time to run. Segments are checked in parallel.
*/
type CheckIndex struct {
	infoStream            io.Writer
	dir                   store.Directory
	crossCheckTermVectors bool
	parallelism           int
}

func NewCheckIndex(dir store.Directory, crossCheckTermVectors bool, infoStream io.Writer) *CheckIndex {
	return &CheckIndex{
		dir:                   dir,
		crossCheckTermVectors: crossCheckTermVectors,
		infoStream:            infoStream,
		parallelism:           runtime.GOMAXPROCS(0),
	}
}

func (ch *CheckIndex) msg(format string, args ...interface{}) {
	if ch.infoStream != nil {
		fmt.Fprintf(ch.infoStream, format+"\n", args...)
	}
}

/*
Returns a Status instance detailing the state of the index. When
onlySegments is not empty, only the named segments are checked.

A problem in a segment is reported in its status and makes the index
unclean; the error return is kept for failures to read the index at
all.

WARNING: make sure you only call this when the index is not opened
by any writer.
*/
func (ch *CheckIndex) CheckIndex(onlySegments []string) (*CheckIndexStatus, error) {
	sis, err := ReadSegmentInfos(ch.dir)
	if err != nil {
		ch.msg("ERROR: could not read any segments file in directory")
		return nil, err
	}
	status := &CheckIndexStatus{
		Clean:            true,
		SegmentsFileName: sis.SegmentsFileName(),
		Version:          sis.Version,
	}
	ch.msg("Segments file=%v numSegments=%v version=%v", status.SegmentsFileName, sis.Size(), sis.Version)

	only := make(map[string]bool)
	for _, name := range onlySegments {
		only[name] = true
	}
	var indexes []int
	for i, si := range sis.Segments {
		if len(only) == 0 || only[si.Name] {
			indexes = append(indexes, i)
		}
	}
	status.Segments = make([]*SegmentStatus, len(indexes))

	var g errgroup.Group
	g.SetLimit(ch.parallelism)
	for j, i := range indexes {
		j, i := j, i
		g.Go(func() error {
			status.Segments[j] = ch.checkSegment(sis, i)
			return nil
		})
	}
	g.Wait()

	for _, ss := range status.Segments {
		if ss.Err != nil {
			status.Clean = false
			ch.msg("  %v: FAILED: %v", ss.Name, ss.Err)
		} else {
			ch.msg("  %v: OK docs=%v deleted=%v fields=%v terms=%v postings=%v positions=%v",
				ss.Name, ss.DocCount, ss.NumDeleted, ss.NumFields, ss.TermCount, ss.PostingCount, ss.PositionCount)
		}
	}
	if status.Clean {
		ch.msg("No problems were detected with this index.")
	}
	return status, nil
}

func (ch *CheckIndex) checkSegment(sis *SegmentInfos, i int) (ss *SegmentStatus) {
	si := sis.Segments[i]
	ss = &SegmentStatus{Name: si.Name, DocCount: si.DocCount, Compound: si.UseCompoundFile}
	sr, err := openSegmentReader(ch.dir, sis, i, sis.Fis, nil, false)
	if err != nil {
		ss.Err = err
		return ss
	}
	defer func() {
		if err := sr.Close(); err != nil && ss.Err == nil {
			ss.Err = err
		}
	}()
	ss.NumFields = sis.Fis.Size()
	ss.NumDeleted = sr.MaxDoc() - sr.NumDocs()
	if sr.MaxDoc() != si.DocCount {
		ss.Err = util.CorruptError("segment %v: fields reader has %v docs, expected %v", si.Name, sr.MaxDoc(), si.DocCount)
		return ss
	}
	for _, check := range []func(*SegmentReader, *SegmentStatus) error{
		ch.checkStoredFields, ch.checkNorms, ch.checkPostings, ch.checkTermVectors,
	} {
		if ss.Err = check(sr, ss); ss.Err != nil {
			return ss
		}
	}
	return ss
}

func (ch *CheckIndex) checkStoredFields(sr *SegmentReader, ss *SegmentStatus) error {
	for doc := 0; doc < sr.MaxDoc(); doc++ {
		if sr.IsDeleted(doc) {
			continue
		}
		if _, err := sr.GetDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

func (ch *CheckIndex) checkNorms(sr *SegmentReader, ss *SegmentStatus) error {
	for _, fi := range sr.FieldInfos().Fields() {
		if !fi.HasNorms() {
			continue
		}
		norms, err := sr.GetNorms(fi.Number)
		if err != nil {
			return err
		}
		if norms != nil && len(norms) != sr.MaxDoc() {
			return util.CorruptError("field %v: %v norms for %v docs", fi.Name, len(norms), sr.MaxDoc())
		}
	}
	return nil
}

func (ch *CheckIndex) checkPostings(sr *SegmentReader, ss *SegmentStatus) (err error) {
	tpe := sr.TermPositions()
	tir := sr.tir.Clone()
	defer func() {
		err = util.CloseWhileHandlingError(err, tpe, tir)
	}()
	for _, fi := range sr.FieldInfos().Fields() {
		if !fi.IsIndexed() {
			continue
		}
		te, err := sr.Terms(fi.Number)
		if err != nil {
			return err
		}
		err = ch.checkFieldPostings(sr, ss, te, tpe, tir)
		err = util.CloseWhileHandlingError(err, te)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ch *CheckIndex) checkFieldPostings(sr *SegmentReader, ss *SegmentStatus, te TermEnum, tpe TermDocEnum, tir *TermInfosReader) error {
	prev := ""
	for ord := 0; ; ord++ {
		ok, err := te.Next()
		if err != nil || !ok {
			return err
		}
		term := te.Term()
		if ord > 0 && term <= prev {
			return util.CorruptError("terms out of order: %q after %q", term, prev)
		}
		prev = term
		ss.TermCount++

		// the term index must resolve the ordinal to the same term
		byOrd, ok, err := tir.GetTerm(te.FieldNum(), ord)
		if err != nil {
			return err
		}
		if !ok || byOrd != term {
			return util.CorruptError("term %v of field %v: index gives %q, dictionary has %q", ord, te.FieldNum(), byOrd, term)
		}

		if err = tpe.SeekTermEnum(te); err != nil {
			return err
		}
		live, lastDoc := 0, -1
		for {
			ok, err := tpe.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			doc, freq := tpe.DocNum(), tpe.Freq()
			if doc <= lastDoc || doc >= sr.MaxDoc() {
				return util.CorruptError("term %q: doc %v out of order or range (last %v, maxDoc %v)", term, doc, lastDoc, sr.MaxDoc())
			}
			if freq <= 0 {
				return util.CorruptError("term %q doc %v: freq %v", term, doc, freq)
			}
			lastPos := -1
			for j := 0; j < freq; j++ {
				pos, err := tpe.NextPosition()
				if err != nil {
					return err
				}
				if pos < lastPos {
					return util.CorruptError("term %q doc %v: position %v after %v", term, doc, pos, lastPos)
				}
				lastPos = pos
			}
			ss.PositionCount += freq
			lastDoc = doc
			live++
		}
		ss.PostingCount += live
		df := te.DocFreq()
		if live > df || !sr.HasDeletions() && live != df {
			return util.CorruptError("term %q: docFreq %v but %v live postings", term, df, live)
		}
	}
}

func (ch *CheckIndex) checkTermVectors(sr *SegmentReader, ss *SegmentStatus) error {
	for doc := 0; doc < sr.MaxDoc(); doc++ {
		if sr.IsDeleted(doc) {
			continue
		}
		tvs, err := sr.TermVectors(doc)
		if err != nil {
			return err
		}
		if len(tvs) > 0 {
			ss.TermVectorDocs++
		}
		if !ch.crossCheckTermVectors {
			continue
		}
		for _, tv := range tvs {
			if err = ch.crossCheck(sr, doc, tv); err != nil {
				return err
			}
		}
	}
	return nil
}

// crossCheck verifies that the postings agree with a term vector.
func (ch *CheckIndex) crossCheck(sr *SegmentReader, doc int, tv *TermVector) (err error) {
	tde := sr.TermDocs()
	defer func() {
		err = util.CloseWhileHandlingError(err, tde)
	}()
	for _, t := range tv.Terms {
		if err = tde.Seek(tv.FieldNum, t.Text); err != nil {
			return err
		}
		ok, err := tde.SkipTo(doc)
		if err != nil {
			return err
		}
		if !ok || tde.DocNum() != doc || tde.Freq() != t.Freq {
			return util.CorruptError("doc %v field %v: term vector term %q (freq %v) missing from postings",
				doc, tv.Field, t.Text, t.Freq)
		}
	}
	return nil
}
