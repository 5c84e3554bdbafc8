package index

import (
	"time"

	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
SegmentMerger combines the live documents of several readers into one
new segment. Deleted documents are dropped and the rest renumbered in
reader order. Skip lists and term indexes of the new segment are
built from scratch.

Fields of the readers are matched by name against fis, which gains
any field it lacks. The merged SegmentInfo is returned to the caller
to register; until then the new files are unreferenced.
*/
type SegmentMerger struct {
	dir     store.Directory
	segment string
	fis     *model.FieldInfos
	conf    *Config
	readers []IndexReader

	tracking  *store.TrackingDirectoryWrapper
	fieldMaps [][]int // merged field number -> reader field number
	docMaps   [][]int // reader document -> merged offset, -1 if deleted; nil without deletions
	starts    []int
	docCount  int
}

func NewSegmentMerger(dir store.Directory, segment string, fis *model.FieldInfos, conf *Config) *SegmentMerger {
	return &SegmentMerger{
		dir:      dir,
		segment:  segment,
		fis:      fis,
		conf:     conf,
		tracking: store.NewTrackingDirectoryWrapper(dir),
	}
}

func (sm *SegmentMerger) Add(reader IndexReader) {
	sm.readers = append(sm.readers, reader)
}

// Merge writes the new segment, removing its files again if anything fails.
func (sm *SegmentMerger) Merge() (si *SegmentInfo, err error) {
	start := time.Now()
	var success = false
	defer func() {
		if !success {
			util.DeleteFilesIgnoringErrors(sm.dir, sm.tracking.CreatedFiles()...)
		}
	}()

	if err = sm.mapFields(); err != nil {
		return nil, err
	}
	sm.mapDocs()
	if err = sm.mergeFields(); err != nil {
		return nil, err
	}
	if err = sm.mergeTerms(); err != nil {
		return nil, err
	}
	si = NewSegmentInfo(sm.segment, sm.docCount, sm.dir)
	if err = sm.mergeNorms(si); err != nil {
		return nil, err
	}
	if sm.conf.UseCompoundFile {
		if err = buildCompoundFile(sm.dir, si, sm.tracking.CreatedFiles()); err != nil {
			return nil, err
		}
	}
	success = true
	log.Debugf("merged %v readers into %v: %v docs in %v", len(sm.readers), si.Name, si.DocCount, time.Since(start))
	sm.conf.Metrics.merged(sm.docCount)
	return si, nil
}

func (sm *SegmentMerger) mapFields() error {
	for _, r := range sm.readers {
		for _, fi := range r.FieldInfos().Fields() {
			if sm.fis.Field(fi.Name) != nil {
				continue
			}
			if _, err := sm.fis.AddField(fi.Copy()); err != nil {
				return err
			}
		}
	}
	sm.fieldMaps = make([][]int, len(sm.readers))
	for i, r := range sm.readers {
		rfis := r.FieldInfos()
		fm := make([]int, sm.fis.Size())
		for _, fi := range sm.fis.Fields() {
			fm[fi.Number] = rfis.FieldNum(fi.Name)
		}
		sm.fieldMaps[i] = fm
	}
	return nil
}

func (sm *SegmentMerger) mapDocs() {
	sm.docMaps = make([][]int, len(sm.readers))
	sm.starts = make([]int, len(sm.readers))
	base := 0
	for i, r := range sm.readers {
		sm.starts[i] = base
		maxDoc := r.MaxDoc()
		if !r.HasDeletions() {
			base += maxDoc
			continue
		}
		docMap := make([]int, maxDoc)
		live := 0
		for doc := 0; doc < maxDoc; doc++ {
			if r.IsDeleted(doc) {
				docMap[doc] = -1
			} else {
				docMap[doc] = live
				live++
			}
		}
		sm.docMaps[i] = docMap
		base += live
	}
	sm.docCount = base
}

// mapDoc returns the merged number of a reader document, -1 if deleted.
func (sm *SegmentMerger) mapDoc(i, doc int) int {
	if sm.docMaps[i] == nil {
		return sm.starts[i] + doc
	}
	if d := sm.docMaps[i][doc]; d >= 0 {
		return sm.starts[i] + d
	}
	return -1
}

func (sm *SegmentMerger) mergeFields() (err error) {
	fw, err := NewFieldsWriter(sm.tracking, sm.segment, sm.fis, store.IO_CONTEXT_MERGE)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, fw)
	}()
	for _, r := range sm.readers {
		for doc, maxDoc := 0, r.MaxDoc(); doc < maxDoc; doc++ {
			if r.IsDeleted(doc) {
				continue
			}
			d, err := r.GetDocument(doc)
			if err != nil {
				return err
			}
			if err = fw.AddDocument(d); err != nil {
				return err
			}
			tvs, err := r.TermVectors(doc)
			if err != nil {
				return err
			}
			for _, tv := range tvs {
				fi := sm.fis.Field(tv.Field)
				if fi == nil || !fi.StoreTermVector() {
					continue
				}
				tv.FieldNum = fi.Number
				if err = fw.AddTermVector(tv); err != nil {
					return err
				}
			}
			if err = fw.FinishDocument(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (sm *SegmentMerger) mergeTerms() (err error) {
	tiw, err := NewTermInfosWriter(sm.tracking, sm.segment, sm.conf.IndexInterval, sm.conf.SkipInterval)
	if err != nil {
		return err
	}
	pw, err := NewPostingsWriter(sm.tracking, sm.segment, sm.conf.SkipInterval, store.IO_CONTEXT_MERGE)
	if err != nil {
		util.CloseWhileSuppressingError(tiw)
		return err
	}
	tes := make([]TermEnum, 0, len(sm.readers))
	tpes := make([]TermDocEnum, 0, len(sm.readers))
	defer func() {
		for _, tpe := range tpes {
			err = util.CloseWhileHandlingError(err, tpe)
		}
		err = util.CloseWhileHandlingError(err, pw, tiw)
	}()
	for _, r := range sm.readers {
		te, err := r.Terms(-1)
		if err != nil {
			for _, te := range tes {
				te.Close()
			}
			return err
		}
		tes = append(tes, te)
		tpes = append(tpes, r.TermPositions())
	}
	mte := NewMultiTermEnum(tes, sm.fieldMaps)
	defer func() {
		err = util.CloseWhileHandlingError(err, mte)
	}()

	for _, fi := range sm.fis.Fields() {
		if !fi.IsIndexed() {
			continue
		}
		if err = mte.SetField(fi.Number); err != nil {
			return err
		}
		tiw.StartField(fi.Number)
		for {
			ok, err := mte.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err = sm.appendPostings(pw, mte, tpes); err != nil {
				return err
			}
			ti, err := pw.FinishTerm()
			if err != nil {
				return err
			}
			if ti.DocFreq == 0 {
				continue // every document holding the term was deleted
			}
			if err = tiw.Add(mte.Term(), &ti); err != nil {
				return err
			}
		}
	}
	return nil
}

func (sm *SegmentMerger) appendPostings(pw *PostingsWriter, mte *MultiTermEnum, tpes []TermDocEnum) error {
	pw.StartTerm()
	for _, m := range mte.Matches() {
		m := m
		tpe := tpes[m.Index]
		var err error
		if stde, ok := tpe.(*SegmentTermDocEnum); ok {
			err = stde.seekTermInfo(&m.TermInfo)
		} else {
			err = tpe.Seek(sm.fieldMaps[m.Index][mte.FieldNum()], mte.Term())
		}
		if err != nil {
			return err
		}
		for {
			ok, err := tpe.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			doc := sm.mapDoc(m.Index, tpe.DocNum())
			if doc < 0 {
				continue
			}
			freq := tpe.Freq()
			if err = pw.AddDoc(doc, freq); err != nil {
				return err
			}
			for j := 0; j < freq; j++ {
				pos, err := tpe.NextPosition()
				if err != nil {
					return err
				}
				if pos < 0 {
					return util.CorruptError("term %q: fewer positions than its frequency %v", mte.Term(), freq)
				}
				if err = pw.AddPosition(pos); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (sm *SegmentMerger) mergeNorms(si *SegmentInfo) error {
	for _, fi := range sm.fis.Fields() {
		if !fi.HasNorms() {
			continue
		}
		norms := make([]byte, sm.docCount)
		for i, r := range sm.readers {
			f := sm.fieldMaps[i][fi.Number]
			if f < 0 {
				continue // zero-filled
			}
			maxDoc := r.MaxDoc()
			buf := make([]byte, maxDoc)
			if err := r.GetNormsInto(f, buf); err != nil {
				return err
			}
			for doc := 0; doc < maxDoc; doc++ {
				if d := sm.mapDoc(i, doc); d >= 0 {
					norms[d] = buf[doc]
				}
			}
		}
		si.AdvanceNormGen(fi.Number)
		if err := writeNorms(sm.tracking, si.NormFileName(fi.Number), norms); err != nil {
			return err
		}
	}
	return nil
}
