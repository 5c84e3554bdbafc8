package index

import (
	"sort"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
TermDocEnum walks the postings of a term: the documents containing
it, in increasing order, with the term's frequency in each and, for
enums created for positions, the positions within each document.
Deleted documents are skipped.

DocNum and Freq are only valid after Next or SkipTo returned true.
Calling them earlier is a programming error and panics with a state
error.
*/
type TermDocEnum interface {
	Seek(fieldNum int, term string) error
	SeekTermEnum(te TermEnum) error
	DocNum() int
	Freq() int
	Next() (bool, error)
	// Read fills docs and freqs and returns how many were filled.
	Read(docs, freqs []int) (int, error)
	// Moves to the first document >= target.
	SkipTo(target int) (bool, error)
	// Next position in the current document, -1 when there are no more.
	NextPosition() (int, error)
	Close() error
}

func readPostings(tde TermDocEnum, docs, freqs []int) (n int, err error) {
	assert2(len(freqs) >= len(docs), "freqs shorter than docs")
	for n < len(docs) {
		ok, err := tde.Next()
		if err != nil || !ok {
			return n, err
		}
		docs[n], freqs[n] = tde.DocNum(), tde.Freq()
		n++
	}
	return n, nil
}

func notPositioned() {
	panic(util.StateError("DocNum/Freq called before Next"))
}

/*
SegmentTermDocEnum reads one segment's .frq, and .prx when positions
were requested. Skip data stored after a term's postings lets SkipTo
jump a skipInterval documents at a time.
*/
type SegmentTermDocEnum struct {
	frqIn        store.IndexInput
	prxIn        store.IndexInput // nil without positions
	tir          *TermInfosReader
	deleted      *util.BitSet
	skipInterval int

	docFreq int
	count   int
	doc     int
	freq    int
	onDoc   bool

	frqPtr      int64
	prxPtr      int64
	skipPtr     int64
	skipIn      store.IndexInput
	numSkips    int
	skipCount   int
	skipDoc     int
	skipFrq     int64
	skipPrx     int64
	haveSkipped bool

	prxCount int
	position int
}

/*
newSegmentTermDocEnum takes ownership of tir. frqIn and prxIn are
cloned.
*/
func newSegmentTermDocEnum(frqIn, prxIn store.IndexInput, tir *TermInfosReader,
	deleted *util.BitSet, skipInterval int) *SegmentTermDocEnum {
	tde := &SegmentTermDocEnum{
		frqIn:        frqIn.Clone(),
		tir:          tir,
		deleted:      deleted,
		skipInterval: skipInterval,
	}
	if prxIn != nil {
		tde.prxIn = prxIn.Clone()
	}
	return tde
}

func (tde *SegmentTermDocEnum) Seek(fieldNum int, term string) error {
	ti, err := tde.tir.GetTermInfo(fieldNum, term)
	if err != nil {
		return err
	}
	if ti == nil {
		tde.seekTermInfo(&TermInfo{})
		return nil
	}
	return tde.seekTermInfo(ti)
}

func (tde *SegmentTermDocEnum) SeekTermEnum(te TermEnum) error {
	if ste, ok := te.(*SegmentTermEnum); ok && ste.sfi == tde.tir.te.sfi {
		ti := ste.TermInfo()
		return tde.seekTermInfo(&ti)
	}
	return tde.Seek(te.FieldNum(), te.Term())
}

func (tde *SegmentTermDocEnum) seekTermInfo(ti *TermInfo) error {
	tde.docFreq = ti.DocFreq
	tde.count = 0
	tde.doc = 0
	tde.freq = 0
	tde.onDoc = false
	tde.frqPtr = ti.FrqPtr
	tde.prxPtr = ti.PrxPtr
	tde.skipPtr = ti.FrqPtr + ti.SkipOffset
	tde.numSkips = 0
	if ti.DocFreq > 0 {
		tde.numSkips = (ti.DocFreq - 1) / tde.skipInterval
	}
	tde.skipCount = 0
	tde.skipDoc = 0
	tde.skipFrq = ti.FrqPtr
	tde.skipPrx = ti.PrxPtr
	tde.haveSkipped = false
	tde.prxCount = 0
	tde.position = 0
	if ti.DocFreq == 0 {
		return nil
	}
	if err := tde.frqIn.Seek(ti.FrqPtr); err != nil {
		return err
	}
	if tde.prxIn != nil {
		return tde.prxIn.Seek(ti.PrxPtr)
	}
	return nil
}

func (tde *SegmentTermDocEnum) DocNum() int {
	if !tde.onDoc {
		notPositioned()
	}
	return tde.doc
}

func (tde *SegmentTermDocEnum) Freq() int {
	if !tde.onDoc {
		notPositioned()
	}
	return tde.freq
}

func (tde *SegmentTermDocEnum) Next() (bool, error) {
	for {
		if tde.count >= tde.docFreq {
			tde.onDoc = false
			return false, nil
		}
		if tde.prxCount > 0 {
			// unread positions of the previous document
			if err := tde.prxIn.SkipVInts(tde.prxCount); err != nil {
				return false, err
			}
			tde.prxCount = 0
		}
		code, err := tde.frqIn.ReadVInt()
		if err != nil {
			return false, err
		}
		tde.doc += int(code >> 1)
		if code&1 != 0 {
			tde.freq = 1
		} else {
			freq, err := tde.frqIn.ReadVInt()
			if err != nil {
				return false, err
			}
			tde.freq = int(freq)
		}
		tde.count++
		if tde.prxIn != nil {
			tde.prxCount = tde.freq
			tde.position = 0
		}
		if tde.deleted == nil || !tde.deleted.Get(tde.doc) {
			tde.onDoc = true
			return true, nil
		}
	}
}

func (tde *SegmentTermDocEnum) Read(docs, freqs []int) (int, error) {
	return readPostings(tde, docs, freqs)
}

/*
SkipTo walks the skip entries to the last one before target, seeks
both streams there and scans. Skip entry k records the last document
of the first k*skipInterval and the stream positions just after it.
*/
func (tde *SegmentTermDocEnum) SkipTo(target int) (bool, error) {
	if tde.numSkips > 0 {
		if tde.skipIn == nil {
			tde.skipIn = tde.frqIn.Clone()
		}
		if !tde.haveSkipped {
			if err := tde.skipIn.Seek(tde.skipPtr); err != nil {
				return false, err
			}
			tde.haveSkipped = true
		}
		lastCount := -1
		var lastDoc int
		var lastFrq, lastPrx int64
		for target > tde.skipDoc {
			lastCount, lastDoc = tde.skipCount*tde.skipInterval, tde.skipDoc
			lastFrq, lastPrx = tde.skipFrq, tde.skipPrx
			if tde.skipCount >= tde.numSkips {
				break
			}
			docDelta, err := tde.skipIn.ReadVInt()
			if err != nil {
				return false, err
			}
			frqDelta, err := tde.skipIn.ReadVLong()
			if err != nil {
				return false, err
			}
			prxDelta, err := tde.skipIn.ReadVLong()
			if err != nil {
				return false, err
			}
			tde.skipDoc += int(docDelta)
			tde.skipFrq += frqDelta
			tde.skipPrx += prxDelta
			tde.skipCount++
		}
		if lastCount > tde.count {
			if err := tde.frqIn.Seek(lastFrq); err != nil {
				return false, err
			}
			if tde.prxIn != nil {
				if err := tde.prxIn.Seek(lastPrx); err != nil {
					return false, err
				}
				tde.prxCount = 0
			}
			tde.doc = lastDoc
			tde.count = lastCount
		}
	}
	for {
		ok, err := tde.Next()
		if err != nil || !ok {
			return false, err
		}
		if tde.doc >= target {
			return true, nil
		}
	}
}

func (tde *SegmentTermDocEnum) NextPosition() (int, error) {
	if tde.prxIn == nil {
		return -1, util.ArgError("positions were not requested for this enum")
	}
	if tde.prxCount <= 0 {
		return -1, nil
	}
	delta, err := tde.prxIn.ReadVInt()
	if err != nil {
		return -1, err
	}
	tde.prxCount--
	tde.position += int(delta)
	return tde.position, nil
}

func (tde *SegmentTermDocEnum) Close() error {
	return util.Close(tde.frqIn, tde.prxIn, tde.skipIn, tde.tir)
}

/*
MultiTermDocEnum chains the postings of several readers, adding each
reader's document base to its document numbers.
*/
type MultiTermDocEnum struct {
	subs      []TermDocEnum
	starts    []int
	fieldMaps [][]int
	active    []bool
	curr      int
}

// NewMultiTermDocEnum takes ownership of subs.
func NewMultiTermDocEnum(subs []TermDocEnum, starts []int, fieldMaps [][]int) *MultiTermDocEnum {
	return &MultiTermDocEnum{
		subs:      subs,
		starts:    starts,
		fieldMaps: fieldMaps,
		active:    make([]bool, len(subs)),
		curr:      len(subs),
	}
}

func (mtde *MultiTermDocEnum) mapField(i, fieldNum int) int {
	if mtde.fieldMaps == nil {
		return fieldNum
	}
	fm := mtde.fieldMaps[i]
	if fieldNum < 0 || fieldNum >= len(fm) {
		return -1
	}
	return fm[fieldNum]
}

func (mtde *MultiTermDocEnum) Seek(fieldNum int, term string) error {
	for i, sub := range mtde.subs {
		subField := mtde.mapField(i, fieldNum)
		mtde.active[i] = subField >= 0
		if subField < 0 {
			continue
		}
		if err := sub.Seek(subField, term); err != nil {
			return err
		}
	}
	mtde.curr = 0
	return nil
}

func (mtde *MultiTermDocEnum) SeekTermEnum(te TermEnum) error {
	return mtde.Seek(te.FieldNum(), te.Term())
}

func (mtde *MultiTermDocEnum) current() TermDocEnum {
	if mtde.curr >= len(mtde.subs) {
		notPositioned()
	}
	return mtde.subs[mtde.curr]
}

func (mtde *MultiTermDocEnum) DocNum() int {
	return mtde.starts[mtde.curr] + mtde.current().DocNum()
}

func (mtde *MultiTermDocEnum) Freq() int {
	return mtde.current().Freq()
}

func (mtde *MultiTermDocEnum) Next() (bool, error) {
	for ; mtde.curr < len(mtde.subs); mtde.curr++ {
		if !mtde.active[mtde.curr] {
			continue
		}
		ok, err := mtde.subs[mtde.curr].Next()
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (mtde *MultiTermDocEnum) Read(docs, freqs []int) (int, error) {
	return readPostings(mtde, docs, freqs)
}

func (mtde *MultiTermDocEnum) SkipTo(target int) (bool, error) {
	for ; mtde.curr < len(mtde.subs); mtde.curr++ {
		if !mtde.active[mtde.curr] {
			continue
		}
		local := target - mtde.starts[mtde.curr]
		if local < 0 {
			local = 0
		}
		ok, err := mtde.subs[mtde.curr].SkipTo(local)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (mtde *MultiTermDocEnum) NextPosition() (int, error) {
	if mtde.curr >= len(mtde.subs) {
		return -1, nil
	}
	return mtde.subs[mtde.curr].NextPosition()
}

func (mtde *MultiTermDocEnum) Close() error {
	var err error
	for _, sub := range mtde.subs {
		err = util.CloseWhileHandlingError(err, sub)
	}
	return err
}

/*
MultipleTermDocPosEnum is the union of the postings of several terms
of one field, as if they were a single term: a document's frequency
is the total over the terms and its positions are merged in order.
It cannot be re-seeked.
*/
type MultipleTermDocPosEnum struct {
	queue     *util.PriorityQueue[TermDocEnum]
	doc       int
	freq      int
	onDoc     bool
	positions []int
	posIdx    int
	all       []TermDocEnum
}

func lessTermDocEnum(a, b TermDocEnum) bool {
	return a.DocNum() < b.DocNum()
}

func NewMultipleTermDocPosEnum(ir IndexReader, fieldNum int, terms []string) (mtdpe *MultipleTermDocPosEnum, err error) {
	mtdpe = &MultipleTermDocPosEnum{queue: util.NewPriorityQueue(len(terms), lessTermDocEnum)}
	defer func() {
		if err != nil {
			mtdpe.Close()
			mtdpe = nil
		}
	}()
	for _, term := range terms {
		tpe := ir.TermPositions()
		mtdpe.all = append(mtdpe.all, tpe)
		if err = tpe.Seek(fieldNum, term); err != nil {
			return
		}
		ok, err := tpe.Next()
		if err != nil {
			return mtdpe, err
		}
		if ok {
			mtdpe.queue.Push(tpe)
		}
	}
	return mtdpe, nil
}

func (mtdpe *MultipleTermDocPosEnum) Seek(fieldNum int, term string) error {
	return util.ArgError("MultipleTermDocPosEnum cannot be seeked")
}

func (mtdpe *MultipleTermDocPosEnum) SeekTermEnum(te TermEnum) error {
	return util.ArgError("MultipleTermDocPosEnum cannot be seeked")
}

func (mtdpe *MultipleTermDocPosEnum) DocNum() int {
	if !mtdpe.onDoc {
		notPositioned()
	}
	return mtdpe.doc
}

func (mtdpe *MultipleTermDocPosEnum) Freq() int {
	if !mtdpe.onDoc {
		notPositioned()
	}
	return mtdpe.freq
}

func (mtdpe *MultipleTermDocPosEnum) Next() (bool, error) {
	if mtdpe.queue.Len() == 0 {
		mtdpe.onDoc = false
		return false, nil
	}
	mtdpe.doc = mtdpe.queue.Top().DocNum()
	mtdpe.positions = mtdpe.positions[:0]
	for mtdpe.queue.Len() > 0 && mtdpe.queue.Top().DocNum() == mtdpe.doc {
		tpe := mtdpe.queue.Pop()
		for {
			pos, err := tpe.NextPosition()
			if err != nil {
				return false, err
			}
			if pos < 0 {
				break
			}
			mtdpe.positions = append(mtdpe.positions, pos)
		}
		ok, err := tpe.Next()
		if err != nil {
			return false, err
		}
		if ok {
			mtdpe.queue.Push(tpe)
		}
	}
	sort.Ints(mtdpe.positions)
	mtdpe.freq = len(mtdpe.positions)
	mtdpe.posIdx = 0
	mtdpe.onDoc = true
	return true, nil
}

func (mtdpe *MultipleTermDocPosEnum) Read(docs, freqs []int) (int, error) {
	return readPostings(mtdpe, docs, freqs)
}

func (mtdpe *MultipleTermDocPosEnum) SkipTo(target int) (bool, error) {
	for mtdpe.queue.Len() > 0 && mtdpe.queue.Top().DocNum() < target {
		tpe := mtdpe.queue.Pop()
		ok, err := tpe.SkipTo(target)
		if err != nil {
			return false, err
		}
		if ok {
			mtdpe.queue.Push(tpe)
		}
	}
	return mtdpe.Next()
}

func (mtdpe *MultipleTermDocPosEnum) NextPosition() (int, error) {
	if mtdpe.posIdx >= len(mtdpe.positions) {
		return -1, nil
	}
	pos := mtdpe.positions[mtdpe.posIdx]
	mtdpe.posIdx++
	return pos, nil
}

func (mtdpe *MultipleTermDocPosEnum) Close() error {
	var err error
	for _, tpe := range mtdpe.all {
		err = util.CloseWhileHandlingError(err, tpe)
	}
	return err
}
