package index

import (
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
PostingsWriter encodes the postings of a segment, one term at a time,
into .frq and .prx.

Each document is written as doc_code = (doc delta << 1) | (freq == 1),
followed by the frequency when it is not 1. Positions go to .prx as
deltas within the document. Before every skipInterval-th document a
skip entry (doc delta, frq delta, prx delta) is staged, and the
entries are appended to .frq after the term's last document.
*/
type PostingsWriter struct {
	frqOut       store.IndexOutput
	prxOut       store.IndexOutput
	skipBuf      *store.RAMOutput
	skipInterval int

	frqStart    int64
	prxStart    int64
	df          int
	lastDoc     int
	lastPos     int
	lastSkipDoc int
	lastSkipFrq int64
	lastSkipPrx int64
}

func NewPostingsWriter(dir store.Directory, segment string, skipInterval int,
	ctx store.IOContext) (w *PostingsWriter, err error) {
	assert2(skipInterval > 0, "skipInterval must be positive (got %v)", skipInterval)
	w = &PostingsWriter{skipBuf: store.NewRAMBuffer(), skipInterval: skipInterval}
	if w.frqOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_FREQS), ctx); err != nil {
		return nil, err
	}
	if w.prxOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_PROX), ctx); err != nil {
		util.CloseWhileSuppressingError(w.frqOut)
		return nil, err
	}
	return w, nil
}

func (w *PostingsWriter) StartTerm() {
	w.frqStart = w.frqOut.FilePointer()
	w.prxStart = w.prxOut.FilePointer()
	w.df = 0
	w.lastDoc = 0
	w.lastPos = 0
	w.lastSkipDoc = 0
	w.lastSkipFrq = w.frqStart
	w.lastSkipPrx = w.prxStart
	w.skipBuf.Reset()
}

func (w *PostingsWriter) bufferSkip() (err error) {
	frqPtr := w.frqOut.FilePointer()
	prxPtr := w.prxOut.FilePointer()
	if err = w.skipBuf.WriteVInt(int32(w.lastDoc - w.lastSkipDoc)); err != nil {
		return
	}
	if err = w.skipBuf.WriteVLong(frqPtr - w.lastSkipFrq); err != nil {
		return
	}
	if err = w.skipBuf.WriteVLong(prxPtr - w.lastSkipPrx); err != nil {
		return
	}
	w.lastSkipDoc = w.lastDoc
	w.lastSkipFrq = frqPtr
	w.lastSkipPrx = prxPtr
	return nil
}

// AddDoc starts the next document of the current term. Its freq
// positions must follow through AddPosition.
func (w *PostingsWriter) AddDoc(doc, freq int) (err error) {
	assert2(w.df == 0 || doc > w.lastDoc, "docs out of order: %v after %v", doc, w.lastDoc)
	assert2(freq > 0, "freq must be positive (got %v)", freq)
	if w.df > 0 && w.df%w.skipInterval == 0 {
		if err = w.bufferSkip(); err != nil {
			return
		}
	}
	code := int32(doc-w.lastDoc) << 1
	if freq == 1 {
		err = w.frqOut.WriteVInt(code | 1)
	} else if err = w.frqOut.WriteVInt(code); err == nil {
		err = w.frqOut.WriteVInt(int32(freq))
	}
	w.lastDoc = doc
	w.lastPos = 0
	w.df++
	return err
}

func (w *PostingsWriter) AddPosition(pos int) error {
	assert2(pos >= w.lastPos, "positions out of order: %v after %v", pos, w.lastPos)
	err := w.prxOut.WriteVInt(int32(pos - w.lastPos))
	w.lastPos = pos
	return err
}

// FinishTerm appends the skip data and returns where the term's postings live.
func (w *PostingsWriter) FinishTerm() (ti TermInfo, err error) {
	ti = TermInfo{DocFreq: w.df, FrqPtr: w.frqStart, PrxPtr: w.prxStart}
	if w.df >= w.skipInterval {
		ti.SkipOffset = w.frqOut.FilePointer() - w.frqStart
		if err = w.skipBuf.WriteTo(w.frqOut); err != nil {
			return
		}
	}
	return ti, nil
}

func (w *PostingsWriter) Close() error {
	return util.Close(w.frqOut, w.prxOut)
}
