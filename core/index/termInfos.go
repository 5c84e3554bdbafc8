package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

// TermInfo locates the postings of one term.
type TermInfo struct {
	DocFreq    int
	FrqPtr     int64
	PrxPtr     int64
	SkipOffset int64 // from FrqPtr to the skip data
}

func (ti *TermInfo) String() string {
	return fmt.Sprintf("TermInfo(df=%v, frq=%v, prx=%v, skip=%v)",
		ti.DocFreq, ti.FrqPtr, ti.PrxPtr, ti.SkipOffset)
}

func commonPrefix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// termWriter writes one prefix-coded stream of terms and infos.
type termWriter struct {
	counter  int
	lastTerm string
	lastTi   TermInfo
	out      store.IndexOutput
}

func (tw *termWriter) reset() {
	tw.counter = 0
	tw.lastTerm = ""
	tw.lastTi = TermInfo{}
}

func (tw *termWriter) add(term string, ti *TermInfo, skipInterval int) (err error) {
	prefix := commonPrefix(tw.lastTerm, term)
	suffix := term[prefix:]
	if err = tw.out.WriteVInt(int32(prefix)); err != nil {
		return
	}
	if err = tw.out.WriteVInt(int32(len(suffix))); err != nil {
		return
	}
	if err = tw.out.WriteBytes([]byte(suffix)); err != nil {
		return
	}
	if err = tw.out.WriteVInt(int32(ti.DocFreq)); err != nil {
		return
	}
	if err = tw.out.WriteVLong(ti.FrqPtr - tw.lastTi.FrqPtr); err != nil {
		return
	}
	if err = tw.out.WriteVLong(ti.PrxPtr - tw.lastTi.PrxPtr); err != nil {
		return
	}
	if ti.DocFreq >= skipInterval {
		if err = tw.out.WriteVLong(ti.SkipOffset); err != nil {
			return
		}
	}
	tw.lastTerm = term
	tw.lastTi = *ti
	tw.counter++
	return nil
}

// readTermEntry decodes what termWriter.add wrote, relative to prev.
func readTermEntry(in util.DataInput, prevTerm string, ti *TermInfo, skipInterval int) (term string, err error) {
	prefix, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	length, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	if prefix < 0 || int(prefix) > len(prevTerm) || length < 0 {
		return "", util.CorruptError("bad term entry: prefix %v of %q, suffix length %v",
			prefix, prevTerm, length)
	}
	buf := make([]byte, int(prefix)+int(length))
	copy(buf, prevTerm[:prefix])
	if err = in.ReadBytes(buf[prefix:]); err != nil {
		return "", err
	}
	docFreq, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	frqDelta, err := in.ReadVLong()
	if err != nil {
		return "", err
	}
	prxDelta, err := in.ReadVLong()
	if err != nil {
		return "", err
	}
	ti.DocFreq = int(docFreq)
	ti.FrqPtr += frqDelta
	ti.PrxPtr += prxDelta
	ti.SkipOffset = 0
	if ti.DocFreq >= skipInterval {
		if ti.SkipOffset, err = in.ReadVLong(); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

// Where a field's terms start in .tix and .tis, and how many there are.
type termFieldInfo struct {
	fieldNum  int
	indexPtr  int64
	ptr       int64
	indexSize int
	size      int
}

/*
TermInfosWriter writes a segment's term dictionary: every term with
its TermInfo to .tis, every indexInterval-th position to .tix, and on
close the per-field table to .tfx. Fields must be started in order
and each field's terms added in sorted order.

An index entry records the term written just before its .tis position,
so a reader seeking there has the previous term for prefix decoding.
*/
type TermInfosWriter struct {
	indexInterval int
	skipInterval  int
	lastIndexPtr  int64
	fields        []termFieldInfo
	curr          *termFieldInfo
	tfxOut        store.IndexOutput
	tixWriter     *termWriter
	tisWriter     *termWriter
}

func NewTermInfosWriter(dir store.Directory, segment string,
	indexInterval, skipInterval int) (w *TermInfosWriter, err error) {
	assert2(indexInterval > 0 && skipInterval > 0,
		"intervals must be positive (index %v, skip %v)", indexInterval, skipInterval)
	var tfxOut, tixOut, tisOut store.IndexOutput
	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(tfxOut, tixOut, tisOut)
		}
	}()
	if tfxOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_TERM_FIELDS), store.IO_CONTEXT_FLUSH); err != nil {
		return nil, err
	}
	if tixOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_TERMS_INDEX), store.IO_CONTEXT_FLUSH); err != nil {
		return nil, err
	}
	if tisOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_TERMS), store.IO_CONTEXT_FLUSH); err != nil {
		return nil, err
	}
	success = true
	return &TermInfosWriter{
		indexInterval: indexInterval,
		skipInterval:  skipInterval,
		tfxOut:        tfxOut,
		tixWriter:     &termWriter{out: tixOut},
		tisWriter:     &termWriter{out: tisOut},
	}, nil
}

func (w *TermInfosWriter) finishField() {
	if w.curr != nil {
		w.curr.indexSize = w.tixWriter.counter
		w.curr.size = w.tisWriter.counter
		if w.curr.size > 0 {
			w.fields = append(w.fields, *w.curr)
		}
		w.curr = nil
	}
}

func (w *TermInfosWriter) StartField(fieldNum int) {
	w.finishField()
	assert2(len(w.fields) == 0 || w.fields[len(w.fields)-1].fieldNum < fieldNum,
		"fields must be added in order (got %v)", fieldNum)
	w.tixWriter.reset()
	w.tisWriter.reset()
	w.curr = &termFieldInfo{
		fieldNum: fieldNum,
		indexPtr: w.tixWriter.out.FilePointer(),
		ptr:      w.tisWriter.out.FilePointer(),
	}
	w.lastIndexPtr = w.curr.ptr
}

func (w *TermInfosWriter) Add(term string, ti *TermInfo) error {
	assert2(w.curr != nil, "no field started")
	assert2(w.tisWriter.counter == 0 || term > w.tisWriter.lastTerm,
		"terms out of order: %q after %q", term, w.tisWriter.lastTerm)
	if w.tisWriter.counter%w.indexInterval == 0 {
		tisPtr := w.tisWriter.out.FilePointer()
		if err := w.tixWriter.add(w.tisWriter.lastTerm, &w.tisWriter.lastTi, w.skipInterval); err != nil {
			return err
		}
		if err := w.tixWriter.out.WriteVLong(tisPtr - w.lastIndexPtr); err != nil {
			return err
		}
		w.lastIndexPtr = tisPtr
	}
	return w.tisWriter.add(term, ti, w.skipInterval)
}

func (w *TermInfosWriter) Close() (err error) {
	defer func() {
		err = util.CloseWhileHandlingError(err, w.tfxOut, w.tixWriter.out, w.tisWriter.out)
	}()
	w.finishField()
	out := w.tfxOut
	if err = out.WriteInt(int32(len(w.fields))); err != nil {
		return
	}
	if err = out.WriteVInt(int32(w.indexInterval)); err != nil {
		return
	}
	if err = out.WriteVInt(int32(w.skipInterval)); err != nil {
		return
	}
	for _, f := range w.fields {
		if err = out.WriteVInt(int32(f.fieldNum)); err != nil {
			return
		}
		if err = out.WriteVLong(f.indexPtr); err != nil {
			return
		}
		if err = out.WriteVLong(f.ptr); err != nil {
			return
		}
		if err = out.WriteVInt(int32(f.indexSize)); err != nil {
			return
		}
		if err = out.WriteVInt(int32(f.size)); err != nil {
			return
		}
	}
	return nil
}

// The sparse index of one field, loaded on first use.
type segmentTermIndex struct {
	termFieldInfo
	loaded bool
	terms  []string
	infos  []TermInfo
	ptrs   []int64
}

/*
SegmentFieldIndex is the per-field table of a segment's term
dictionary. The skip index of a field is read from .tix the first
time a cursor needs it and is then shared by every cursor.
*/
type SegmentFieldIndex struct {
	sync.Mutex
	indexInterval int
	skipInterval  int
	fields        map[int]*segmentTermIndex
	tixIn         store.IndexInput
}

func OpenSegmentFieldIndex(dir store.Directory, segment string) (sfi *SegmentFieldIndex, err error) {
	tfxIn, err := dir.OpenInput(util.SegmentFileName(segment, EXT_TERM_FIELDS), store.IO_CONTEXT_READ)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, tfxIn)
	}()

	count, err := tfxIn.ReadInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, util.CorruptError("%v: negative field count %v", tfxIn, count)
	}
	sfi = &SegmentFieldIndex{fields: make(map[int]*segmentTermIndex)}
	ints := []*int{&sfi.indexInterval, &sfi.skipInterval}
	for _, p := range ints {
		v, err := tfxIn.ReadVInt()
		if err != nil {
			return nil, err
		}
		*p = int(v)
	}
	if sfi.indexInterval <= 0 || sfi.skipInterval <= 0 {
		return nil, util.CorruptError("%v: bad intervals %v/%v", tfxIn, sfi.indexInterval, sfi.skipInterval)
	}
	for i := int32(0); i < count; i++ {
		var f segmentTermIndex
		var v int32
		if v, err = tfxIn.ReadVInt(); err != nil {
			return nil, err
		}
		f.fieldNum = int(v)
		if f.indexPtr, err = tfxIn.ReadVLong(); err != nil {
			return nil, err
		}
		if f.ptr, err = tfxIn.ReadVLong(); err != nil {
			return nil, err
		}
		if v, err = tfxIn.ReadVInt(); err != nil {
			return nil, err
		}
		f.indexSize = int(v)
		if v, err = tfxIn.ReadVInt(); err != nil {
			return nil, err
		}
		f.size = int(v)
		sfi.fields[f.fieldNum] = &f
	}
	if sfi.tixIn, err = dir.OpenInput(util.SegmentFileName(segment, EXT_TERMS_INDEX), store.IO_CONTEXT_READ); err != nil {
		return nil, err
	}
	return sfi, nil
}

func (sfi *SegmentFieldIndex) IndexInterval() int { return sfi.indexInterval }

func (sfi *SegmentFieldIndex) SkipInterval() int { return sfi.skipInterval }

// FieldSize is the number of terms of a field, 0 if it has none.
func (sfi *SegmentFieldIndex) FieldSize(fieldNum int) int {
	if f, ok := sfi.fields[fieldNum]; ok {
		return f.size
	}
	return 0
}

// FieldNums lists the fields that have terms, in order.
func (sfi *SegmentFieldIndex) FieldNums() []int {
	ans := make([]int, 0, len(sfi.fields))
	for num := range sfi.fields {
		ans = append(ans, num)
	}
	sort.Ints(ans)
	return ans
}

func (sfi *SegmentFieldIndex) index(fieldNum int) (*segmentTermIndex, error) {
	f, ok := sfi.fields[fieldNum]
	if !ok {
		return nil, nil
	}
	sfi.Lock()
	defer sfi.Unlock()
	if f.loaded {
		return f, nil
	}
	in := sfi.tixIn.Clone()
	defer in.Close()
	if err := in.Seek(f.indexPtr); err != nil {
		return nil, err
	}
	terms := make([]string, f.indexSize)
	infos := make([]TermInfo, f.indexSize)
	ptrs := make([]int64, f.indexSize)
	term, ti, ptr := "", TermInfo{}, f.ptr
	for i := 0; i < f.indexSize; i++ {
		var err error
		if term, err = readTermEntry(in, term, &ti, sfi.skipInterval); err != nil {
			return nil, err
		}
		delta, err := in.ReadVLong()
		if err != nil {
			return nil, err
		}
		ptr += delta
		terms[i], infos[i], ptrs[i] = term, ti, ptr
	}
	f.terms, f.infos, f.ptrs = terms, infos, ptrs
	f.loaded = true
	log.Debugf("loaded term index of field %v: %v entries", fieldNum, f.indexSize)
	return f, nil
}

func (sfi *SegmentFieldIndex) Close() error {
	return sfi.tixIn.Close()
}

/*
TermInfosReader looks terms up in one segment's dictionary. It wraps a
single cursor and is not safe for concurrent use; Clone it per caller.
*/
type TermInfosReader struct {
	te *SegmentTermEnum
}

func NewTermInfosReader(te *SegmentTermEnum) *TermInfosReader {
	return &TermInfosReader{te: te}
}

func (tir *TermInfosReader) setField(fieldNum int) error {
	if tir.te.fieldNum != fieldNum {
		return tir.te.SetField(fieldNum)
	}
	return nil
}

// GetTermInfo returns nil when term is not in the field.
func (tir *TermInfosReader) GetTermInfo(fieldNum int, term string) (*TermInfo, error) {
	if err := tir.setField(fieldNum); err != nil {
		return nil, err
	}
	te := tir.te
	if te.pos < 0 || te.currTerm != term {
		ok, err := te.SkipTo(term)
		if err != nil || !ok {
			return nil, err
		}
	}
	if te.currTerm != term {
		return nil, nil
	}
	ti := te.currTi
	return &ti, nil
}

// GetTerm returns the term with the given ordinal within the field.
func (tir *TermInfosReader) GetTerm(fieldNum, pos int) (string, bool, error) {
	if err := tir.setField(fieldNum); err != nil {
		return "", false, err
	}
	return tir.te.seekOrdinal(pos)
}

func (tir *TermInfosReader) Clone() *TermInfosReader {
	return &TermInfosReader{te: tir.te.Clone().(*SegmentTermEnum)}
}

func (tir *TermInfosReader) Close() error {
	return tir.te.Close()
}
