package index

import (
	"fmt"
	"sort"

	"github.com/ironsweet/goferret/core/util"
)

// Offset is the byte range of one token in the field's text.
type Offset struct {
	Start int64
	End   int64
}

// TVTerm is one term of a term vector. Positions index into Offsets.
type TVTerm struct {
	Text      string
	Freq      int
	Positions []int
}

/*
TermVector holds the terms of one field of one document, sorted by
text. Positions are only present when the field stores positions,
offsets only when it stores offsets.
*/
type TermVector struct {
	FieldNum int
	Field    string
	Terms    []TVTerm
	Offsets  []Offset
}

// ScanTerm returns the index of text in Terms, or -1.
func (tv *TermVector) ScanTerm(text string) int {
	i := sort.Search(len(tv.Terms), func(i int) bool { return tv.Terms[i].Text >= text })
	if i < len(tv.Terms) && tv.Terms[i].Text == text {
		return i
	}
	return -1
}

func (tv *TermVector) String() string {
	return fmt.Sprintf("TermVector(%v: %v terms, %v offsets)", tv.Field, len(tv.Terms), len(tv.Offsets))
}

func writeTermVector(out util.DataOutput, tv *TermVector, positions, offsets bool) (err error) {
	if err = out.WriteVInt(int32(len(tv.Terms))); err != nil {
		return
	}
	last := ""
	for _, t := range tv.Terms {
		prefix := commonPrefix(last, t.Text)
		if err = out.WriteVInt(int32(prefix)); err != nil {
			return
		}
		if err = out.WriteString(t.Text[prefix:]); err != nil {
			return
		}
		if err = out.WriteVInt(int32(t.Freq)); err != nil {
			return
		}
		if positions {
			lastPos := 0
			for _, pos := range t.Positions {
				if err = out.WriteVInt(int32(pos - lastPos)); err != nil {
					return
				}
				lastPos = pos
			}
		}
		last = t.Text
	}
	if offsets {
		if err = out.WriteVInt(int32(len(tv.Offsets))); err != nil {
			return
		}
		var lastStart int64
		for _, o := range tv.Offsets {
			if err = out.WriteVLong(o.Start - lastStart); err != nil {
				return
			}
			if err = out.WriteVLong(o.End - o.Start); err != nil {
				return
			}
			lastStart = o.Start
		}
	}
	return nil
}

func readTermVector(in util.DataInput, tv *TermVector, positions, offsets bool) error {
	count, err := in.ReadVInt()
	if err != nil {
		return err
	}
	if count < 0 {
		return util.CorruptError("negative term vector size %v", count)
	}
	tv.Terms = make([]TVTerm, count)
	last := ""
	for i := range tv.Terms {
		prefix, err := in.ReadVInt()
		if err != nil {
			return err
		}
		if prefix < 0 || int(prefix) > len(last) {
			return util.CorruptError("bad term vector prefix %v of %q", prefix, last)
		}
		suffix, err := in.ReadString()
		if err != nil {
			return err
		}
		t := &tv.Terms[i]
		t.Text = last[:prefix] + suffix
		freq, err := in.ReadVInt()
		if err != nil {
			return err
		}
		t.Freq = int(freq)
		if positions {
			t.Positions = make([]int, t.Freq)
			pos := 0
			for j := range t.Positions {
				delta, err := in.ReadVInt()
				if err != nil {
					return err
				}
				pos += int(delta)
				t.Positions[j] = pos
			}
		}
		last = t.Text
	}
	if offsets {
		n, err := in.ReadVInt()
		if err != nil {
			return err
		}
		if n < 0 {
			return util.CorruptError("negative offset count %v", n)
		}
		tv.Offsets = make([]Offset, n)
		var lastStart int64
		for i := range tv.Offsets {
			start, err := in.ReadVLong()
			if err != nil {
				return err
			}
			length, err := in.ReadVLong()
			if err != nil {
				return err
			}
			tv.Offsets[i].Start = lastStart + start
			tv.Offsets[i].End = tv.Offsets[i].Start + length
			lastStart = tv.Offsets[i].Start
		}
	}
	return nil
}
