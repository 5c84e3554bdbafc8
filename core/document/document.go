package document

import (
	"bytes"
	"fmt"

	"github.com/ironsweet/goferret/core/util"
)

/*
Documents are the unit of indexing and search.

A Document is a set of fields. Each field has a name and one or more
values. Field names are unique within a document; several values of a
field are indexed as though they were appended, and are stored and
returned separately.

Fields are returned in the order they were added. A document loaded
from an index holds only its stored fields.
*/
type Document struct {
	Boost  float32
	fields []*Field
	byName map[string]*Field
}

/** Constructs a new document with no fields. */
func NewDocument() *Document {
	return &Document{Boost: 1.0, byName: make(map[string]*Field)}
}

func (doc *Document) Fields() []*Field {
	return doc.fields
}

func (doc *Document) Size() int {
	return len(doc.fields)
}

/*
Add adds a field to the document. Adding a second field with the same
name is an argument error; append the values to the existing field
instead.
*/
func (doc *Document) Add(field *Field) error {
	if _, ok := doc.byName[field.Name]; ok {
		return util.ArgError("tried to add %v field which already existed", field.Name)
	}
	doc.byName[field.Name] = field
	doc.fields = append(doc.fields, field)
	return nil
}

// AddString adds a single-valued text field, or appends to an existing one.
func (doc *Document) AddString(name string, values ...string) *Field {
	field, ok := doc.byName[name]
	if !ok {
		field = NewField(name)
		doc.Add(field)
	}
	for _, v := range values {
		field.AddString(v)
	}
	return field
}

/* Returns the field with the given name, or nil. */
func (doc *Document) Field(name string) *Field {
	return doc.byName[name]
}

/*
Returns the first value of the named field as a string, or "" when the
document has no such field.
*/
func (doc *Document) Get(name string) string {
	if f, ok := doc.byName[name]; ok && len(f.Data) > 0 {
		return string(f.Data[0])
	}
	return ""
}

func (doc *Document) String() string {
	var buf bytes.Buffer
	buf.WriteString("Document {\n")
	for _, f := range doc.fields {
		fmt.Fprintf(&buf, "  %v\n", f)
	}
	buf.WriteString("}")
	return buf.String()
}
