package index

import (
	"io"

	"github.com/ironsweet/goferret/core/util"
)

type multiTermSub struct {
	te       TermEnum
	index    int
	fieldMap []int // union field number -> sub field number; nil is identity
	active   bool  // positioned on a term and queued
}

func (sub *multiTermSub) mapField(fieldNum int) int {
	if sub.fieldMap == nil {
		return fieldNum
	}
	if fieldNum < 0 || fieldNum >= len(sub.fieldMap) {
		return -1
	}
	return sub.fieldMap[fieldNum]
}

func lessMultiTermSub(a, b *multiTermSub) bool {
	if a.te.Term() != b.te.Term() {
		return a.te.Term() < b.te.Term()
	}
	return a.index < b.index
}

// TermMatch is one sub-enum positioned on the current term of a MultiTermEnum.
type TermMatch struct {
	Index    int
	TermInfo TermInfo
}

/*
MultiTermEnum merges the term streams of several segments. Each term
appears once, with the summed document frequency of every segment
holding it. Segments are ordered by (term, segment index), so
Matches lists them in segment order.
*/
type MultiTermEnum struct {
	subs     []*multiTermSub
	queue    *util.PriorityQueue[*multiTermSub]
	fieldNum int
	currTerm string
	docFreq  int
	matches  []TermMatch
}

/*
NewMultiTermEnum takes ownership of subs. fieldMaps may be nil, or
hold for each sub the mapping from union field numbers to the sub's
own numbers (-1 when the sub lacks the field).
*/
func NewMultiTermEnum(subs []TermEnum, fieldMaps [][]int) *MultiTermEnum {
	mte := &MultiTermEnum{
		subs:     make([]*multiTermSub, len(subs)),
		queue:    util.NewPriorityQueue(len(subs), lessMultiTermSub),
		fieldNum: -1,
	}
	for i, te := range subs {
		sub := &multiTermSub{te: te, index: i}
		if fieldMaps != nil {
			sub.fieldMap = fieldMaps[i]
		}
		mte.subs[i] = sub
	}
	return mte
}

func (mte *MultiTermEnum) reset() {
	mte.queue.Clear()
	mte.currTerm = ""
	mte.docFreq = 0
	mte.matches = mte.matches[:0]
	for _, sub := range mte.subs {
		sub.active = false
	}
}

func (mte *MultiTermEnum) push(sub *multiTermSub, ok bool) {
	sub.active = ok
	if ok {
		mte.queue.Push(sub)
	}
}

func (mte *MultiTermEnum) SetField(fieldNum int) error {
	mte.reset()
	mte.fieldNum = fieldNum
	for _, sub := range mte.subs {
		subField := sub.mapField(fieldNum)
		if subField < 0 {
			continue
		}
		if err := sub.te.SetField(subField); err != nil {
			return err
		}
		ok, err := sub.te.Next()
		if err != nil {
			return err
		}
		mte.push(sub, ok)
	}
	return nil
}

func (mte *MultiTermEnum) Next() (bool, error) {
	mte.matches = mte.matches[:0]
	mte.docFreq = 0
	if mte.queue.Len() == 0 {
		mte.currTerm = ""
		return false, nil
	}
	mte.currTerm = mte.queue.Top().te.Term()
	var popped []*multiTermSub
	for mte.queue.Len() > 0 && mte.queue.Top().te.Term() == mte.currTerm {
		sub := mte.queue.Pop()
		mte.docFreq += sub.te.DocFreq()
		mte.matches = append(mte.matches, TermMatch{Index: sub.index, TermInfo: sub.te.TermInfo()})
		popped = append(popped, sub)
	}
	for _, sub := range popped {
		ok, err := sub.te.Next()
		if err != nil {
			return false, err
		}
		mte.push(sub, ok)
	}
	return true, nil
}

func (mte *MultiTermEnum) SkipTo(target string) (bool, error) {
	fieldNum := mte.fieldNum
	mte.reset()
	mte.fieldNum = fieldNum
	for _, sub := range mte.subs {
		if sub.mapField(fieldNum) < 0 {
			continue
		}
		ok, err := sub.te.SkipTo(target)
		if err != nil {
			return false, err
		}
		mte.push(sub, ok)
	}
	return mte.Next()
}

func (mte *MultiTermEnum) Term() string { return mte.currTerm }

// TermInfo of a merged term only carries the summed document frequency.
func (mte *MultiTermEnum) TermInfo() TermInfo { return TermInfo{DocFreq: mte.docFreq} }

func (mte *MultiTermEnum) DocFreq() int { return mte.docFreq }

func (mte *MultiTermEnum) FieldNum() int { return mte.fieldNum }

// Matches lists the segments holding the current term, in segment order.
func (mte *MultiTermEnum) Matches() []TermMatch { return mte.matches }

func (mte *MultiTermEnum) Clone() TermEnum {
	clone := &MultiTermEnum{
		subs:     make([]*multiTermSub, len(mte.subs)),
		queue:    util.NewPriorityQueue(len(mte.subs), lessMultiTermSub),
		fieldNum: mte.fieldNum,
		currTerm: mte.currTerm,
		docFreq:  mte.docFreq,
		matches:  append([]TermMatch(nil), mte.matches...),
	}
	for i, sub := range mte.subs {
		c := &multiTermSub{te: sub.te.Clone(), index: sub.index, fieldMap: sub.fieldMap}
		clone.subs[i] = c
		clone.push(c, sub.active)
	}
	return clone
}

func (mte *MultiTermEnum) Close() error {
	closers := make([]io.Closer, len(mte.subs))
	for i, sub := range mte.subs {
		closers[i] = sub.te
	}
	return util.Close(closers...)
}
