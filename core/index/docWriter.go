package index

import (
	"math"
	"sort"
	"time"

	"github.com/ironsweet/goferret/core/analysis"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

// Approximate in-memory sizes used to decide when to flush.
const (
	POSTING_SIZE    = 20
	OCCURRENCE_SIZE = 8
	PLIST_OVERHEAD  = 64
)

type occurrence struct {
	pos  int32
	next int32 // -1 ends the chain
}

type posting struct {
	doc      int32
	freq     int32
	firstOcc int32
	lastOcc  int32
	next     int32 // next document of the same term, -1 ends the chain
}

// postingList chains the postings of one term of one field.
type postingList struct {
	term  string
	first int32
	last  int32
}

/*
postingArena holds every posting and occurrence buffered since the
last flush in two slices addressed by index. Reset drops them all at
once and keeps the capacity.
*/
type postingArena struct {
	postings  []posting
	occs      []occurrence
	termBytes int
}

func (a *postingArena) newPosting(doc int) int32 {
	a.postings = append(a.postings, posting{doc: int32(doc), firstOcc: -1, lastOcc: -1, next: -1})
	return int32(len(a.postings) - 1)
}

func (a *postingArena) addOccurrence(p int32, pos int) {
	a.occs = append(a.occs, occurrence{pos: int32(pos), next: -1})
	h := int32(len(a.occs) - 1)
	pp := &a.postings[p]
	if pp.lastOcc < 0 {
		pp.firstOcc = h
	} else {
		a.occs[pp.lastOcc].next = h
	}
	pp.lastOcc = h
	pp.freq++
}

func (a *postingArena) appendPosting(pl *postingList, p int32) {
	if pl.last < 0 {
		pl.first = p
	} else {
		a.postings[pl.last].next = p
	}
	pl.last = p
}

func (a *postingArena) size() int {
	return len(a.postings)*POSTING_SIZE + len(a.occs)*OCCURRENCE_SIZE + a.termBytes
}

func (a *postingArena) reset() {
	a.postings = a.postings[:0]
	a.occs = a.occs[:0]
	a.termBytes = 0
}

// fieldInverter collects the postings and norms of one field for a batch.
type fieldInverter struct {
	fi     *model.FieldInfo
	plists map[string]*postingList
	norms  []byte // by document number within the batch
}

func (fld *fieldInverter) setNorm(doc int, norm byte) {
	for len(fld.norms) <= doc {
		fld.norms = append(fld.norms, 0)
	}
	fld.norms[doc] = norm
}

// docTerm is one term of the field being inverted, within one document.
type docTerm struct {
	text      string
	positions []int
}

/*
DocWriter inverts documents into a batch held in memory and flushes
the batch as a new segment. Stored fields and term vectors are written
straight to the segment files as each document is added; postings and
norms wait for the flush.

DocWriter is not safe for concurrent use; IndexWriter serializes it.
*/
type DocWriter struct {
	conf     *Config
	dir      store.Directory
	sis      *SegmentInfos
	fis      *model.FieldInfos
	analyzer analysis.Analyzer
	metrics  *Metrics

	arena    postingArena
	fields   map[int]*fieldInverter
	tracking *store.TrackingDirectoryWrapper
	fw       *FieldsWriter
	segment  string
	docNum   int
}

func NewDocWriter(conf *Config, dir store.Directory, sis *SegmentInfos) (*DocWriter, error) {
	analyzer, err := conf.analyzer()
	if err != nil {
		return nil, err
	}
	return &DocWriter{
		conf:     conf,
		dir:      dir,
		sis:      sis,
		fis:      sis.Fis,
		analyzer: analyzer,
		metrics:  conf.Metrics,
		fields:   make(map[int]*fieldInverter),
	}, nil
}

// DocCount is the number of buffered documents.
func (dw *DocWriter) DocCount() int { return dw.docNum }

// NeedsFlush is true once the batch reached MaxBufferedDocs or MaxBufferMemory.
func (dw *DocWriter) NeedsFlush() bool {
	return dw.docNum >= dw.conf.MaxBufferedDocs || dw.arena.size() >= dw.conf.MaxBufferMemory
}

func (dw *DocWriter) startSegment() (err error) {
	dw.segment = dw.sis.NewSegmentName()
	dw.tracking = store.NewTrackingDirectoryWrapper(dw.dir)
	dw.fw, err = NewFieldsWriter(dw.tracking, dw.segment, dw.fis, store.IO_CONTEXT_FLUSH)
	return err
}

func (dw *DocWriter) AddDocument(doc *document.Document) (err error) {
	for _, field := range doc.Fields() {
		if _, err = dw.fis.GetOrAddField(field.Name); err != nil {
			return err
		}
	}
	if dw.fw == nil {
		if err = dw.startSegment(); err != nil {
			return err
		}
	}
	if err = dw.fw.AddDocument(doc); err != nil {
		return err
	}
	for _, field := range doc.Fields() {
		fi := dw.fis.Field(field.Name)
		if !fi.IsIndexed() {
			continue
		}
		if err = dw.invertField(fi, field, doc.Boost); err != nil {
			return err
		}
	}
	if err = dw.fw.FinishDocument(); err != nil {
		return err
	}
	dw.docNum++
	dw.metrics.docAdded()
	return nil
}

func (dw *DocWriter) fieldInverter(fi *model.FieldInfo) *fieldInverter {
	fld, ok := dw.fields[fi.Number]
	if !ok {
		fld = &fieldInverter{fi: fi, plists: make(map[string]*postingList)}
		dw.fields[fi.Number] = fld
	}
	return fld
}

/*
tokenize returns the terms of field in text order, with their
positions, and the offset of every position. Values of a multi-valued
field follow each other as if joined by one space.
*/
func (dw *DocWriter) tokenize(fi *model.FieldInfo, field *document.Field) (terms map[string]*docTerm, offsets []Offset, length int) {
	terms = make(map[string]*docTerm)
	add := func(text string, pos int, start, end int64) {
		t, ok := terms[text]
		if !ok {
			t = &docTerm{text: text}
			terms[text] = t
		}
		t.positions = append(t.positions, pos)
		offsets = append(offsets, Offset{start, end})
		length++
	}
	pos := -1
	var base int64
	for _, data := range field.Data {
		if length >= dw.conf.MaxFieldLength {
			break
		}
		text := string(data)
		if fi.IsTokenized() {
			ts := dw.analyzer.TokenStream(fi.Name, text)
			for tk := ts.Next(); tk != nil && length < dw.conf.MaxFieldLength; tk = ts.Next() {
				pos += tk.PosInc
				if pos < 0 {
					pos = 0
				}
				add(tk.Text, pos, base+int64(tk.Start), base+int64(tk.End))
			}
		} else {
			pos++
			add(text, pos, base, base+int64(len(data)))
		}
		base += int64(len(data)) + 1
	}
	return terms, offsets, length
}

func (dw *DocWriter) invertField(fi *model.FieldInfo, field *document.Field, docBoost float32) error {
	terms, offsets, length := dw.tokenize(fi, field)
	fld := dw.fieldInverter(fi)
	sorted := make([]*docTerm, 0, len(terms))
	for _, t := range terms {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].text < sorted[j].text })

	for _, t := range sorted {
		pl, ok := fld.plists[t.text]
		if !ok {
			pl = &postingList{term: t.text, first: -1, last: -1}
			fld.plists[t.text] = pl
			dw.arena.termBytes += len(t.text) + PLIST_OVERHEAD
		}
		p := dw.arena.newPosting(dw.docNum)
		for _, pos := range t.positions {
			dw.arena.addOccurrence(p, pos)
		}
		dw.arena.appendPosting(pl, p)
	}

	if fi.HasNorms() {
		fld.setNorm(dw.docNum, util.FloatToByte(lengthNorm(length)*fi.Boost*field.Boost*docBoost))
	}
	if fi.StoreTermVector() {
		tv := &TermVector{FieldNum: fi.Number, Field: fi.Name, Terms: make([]TVTerm, len(sorted))}
		for i, t := range sorted {
			tv.Terms[i] = TVTerm{Text: t.text, Freq: len(t.positions)}
			if fi.StorePositions() {
				tv.Terms[i].Positions = t.positions
			}
		}
		if fi.StoreOffsets() {
			tv.Offsets = offsets
		}
		return dw.fw.AddTermVector(tv)
	}
	return nil
}

// lengthNorm is 1/sqrt(number of terms), treating an empty field as one term.
func lengthNorm(numTerms int) float32 {
	if numTerms <= 0 {
		numTerms = 1
	}
	return float32(1.0 / math.Sqrt(float64(numTerms)))
}

/*
Flush writes the buffered batch as a new segment and resets the
batch. It returns nil when nothing was buffered. The caller registers
the segment; until then its files are orphans.
*/
func (dw *DocWriter) Flush() (si *SegmentInfo, err error) {
	if dw.docNum == 0 {
		return nil, nil
	}
	start := time.Now()
	var success = false
	defer func() {
		if !success {
			dw.Abort()
		}
	}()

	fw := dw.fw
	dw.fw = nil
	if err = fw.Close(); err != nil {
		return nil, err
	}
	if err = dw.writePostings(); err != nil {
		return nil, err
	}

	si = NewSegmentInfo(dw.segment, dw.docNum, dw.dir)
	nums := make([]int, 0, len(dw.fields))
	for num := range dw.fields {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	for _, num := range nums {
		fld := dw.fields[num]
		if !fld.fi.HasNorms() {
			continue
		}
		norms := make([]byte, dw.docNum)
		copy(norms, fld.norms)
		si.AdvanceNormGen(num)
		if err = writeNorms(dw.tracking, si.NormFileName(num), norms); err != nil {
			return nil, err
		}
	}

	if dw.conf.UseCompoundFile {
		if err = buildCompoundFile(dw.dir, si, dw.tracking.CreatedFiles()); err != nil {
			return nil, err
		}
	}
	log.Debugf("flushed segment %v: %v docs in %v", si.Name, si.DocCount, time.Since(start))
	dw.metrics.flushed(start)
	dw.reset()
	success = true
	return si, nil
}

func (dw *DocWriter) writePostings() (err error) {
	tiw, err := NewTermInfosWriter(dw.tracking, dw.segment, dw.conf.IndexInterval, dw.conf.SkipInterval)
	if err != nil {
		return err
	}
	pw, err := NewPostingsWriter(dw.tracking, dw.segment, dw.conf.SkipInterval, store.IO_CONTEXT_FLUSH)
	if err != nil {
		util.CloseWhileSuppressingError(tiw)
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, pw, tiw)
	}()

	nums := make([]int, 0, len(dw.fields))
	for num := range dw.fields {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	arena := &dw.arena
	for _, num := range nums {
		fld := dw.fields[num]
		if len(fld.plists) == 0 {
			continue
		}
		plists := make([]*postingList, 0, len(fld.plists))
		for _, pl := range fld.plists {
			plists = append(plists, pl)
		}
		sort.Slice(plists, func(i, j int) bool { return plists[i].term < plists[j].term })

		tiw.StartField(num)
		for _, pl := range plists {
			pw.StartTerm()
			for p := pl.first; p >= 0; p = arena.postings[p].next {
				pp := &arena.postings[p]
				if err = pw.AddDoc(int(pp.doc), int(pp.freq)); err != nil {
					return err
				}
				for o := pp.firstOcc; o >= 0; o = arena.occs[o].next {
					if err = pw.AddPosition(int(arena.occs[o].pos)); err != nil {
						return err
					}
				}
			}
			ti, err := pw.FinishTerm()
			if err != nil {
				return err
			}
			if err = tiw.Add(pl.term, &ti); err != nil {
				return err
			}
		}
	}
	return nil
}

func (dw *DocWriter) reset() {
	dw.arena.reset()
	dw.fields = make(map[int]*fieldInverter)
	dw.tracking = nil
	dw.fw = nil
	dw.segment = ""
	dw.docNum = 0
}

// Abort drops the batch and removes the files written for it.
func (dw *DocWriter) Abort() {
	if dw.fw != nil {
		util.CloseWhileSuppressingError(dw.fw)
	}
	if dw.tracking != nil {
		files := dw.tracking.CreatedFiles()
		util.DeleteFilesIgnoringErrors(dw.dir, files...)
		dw.dir.DeleteFile(util.SegmentFileName(dw.segment, EXT_COMPOUND)) // ignore error
	}
	dw.reset()
}

func writeNorms(dir store.Directory, name string, norms []byte) (err error) {
	out, err := dir.CreateOutput(name, store.IO_CONTEXT_FLUSH)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()
	return out.WriteBytes(norms)
}

/*
buildCompoundFile packs files into the segment's .cfs, removes the
originals and marks si as compound.
*/
func buildCompoundFile(dir store.Directory, si *SegmentInfo, files []string) error {
	cfsName := util.SegmentFileName(si.Name, EXT_COMPOUND)
	cfw := store.NewCompoundFileWriter(dir, cfsName)
	for _, name := range files {
		if err := cfw.AddFile(name); err != nil {
			return err
		}
	}
	if err := cfw.Close(); err != nil {
		dir.DeleteFile(cfsName) // ignore error
		return err
	}
	util.DeleteFilesIgnoringErrors(dir, files...)
	si.UseCompoundFile = true
	return nil
}
