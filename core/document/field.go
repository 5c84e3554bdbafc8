package document

import (
	"bytes"
	"fmt"
)

/*
Field is a named, possibly multi-valued, part of a document. Values are
opaque bytes; analysis treats them as UTF-8 text. Boost scales the
field's norm.
*/
type Field struct {
	Name  string
	Data  [][]byte
	Boost float32
}

func NewField(name string, data ...[]byte) *Field {
	assert2(name != "", "name cannot be empty")
	return &Field{Name: name, Data: data, Boost: 1.0}
}

func NewStringField(name string, values ...string) *Field {
	f := NewField(name)
	for _, v := range values {
		f.AddString(v)
	}
	return f
}

func (f *Field) AddData(data []byte) *Field {
	f.Data = append(f.Data, data)
	return f
}

func (f *Field) AddString(s string) *Field {
	return f.AddData([]byte(s))
}

func (f *Field) Size() int {
	return len(f.Data)
}

// Strings returns all values as strings.
func (f *Field) Strings() []string {
	ans := make([]string, len(f.Data))
	for i, d := range f.Data {
		ans[i] = string(d)
	}
	return ans
}

// Length is the total byte length of all values.
func (f *Field) Length() int {
	n := 0
	for _, d := range f.Data {
		n += len(d)
	}
	return n
}

func (f *Field) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%v: ", f.Name)
	if len(f.Data) == 1 {
		fmt.Fprintf(&buf, "%q", f.Data[0])
	} else {
		fmt.Fprintf(&buf, "%q", f.Strings())
	}
	if f.Boost != 1.0 {
		fmt.Fprintf(&buf, "^%v", f.Boost)
	}
	return buf.String()
}

func assert2(ok bool, msg string) {
	if !ok {
		panic(msg)
	}
}
