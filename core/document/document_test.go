package document

import (
	"errors"
	"testing"

	"github.com/ironsweet/goferret/core/util"
	"github.com/stretchr/testify/assert"
)

func TestDocumentFields(t *testing.T) {
	doc := NewDocument()
	doc.AddString("title", "first")
	doc.AddString("body", "a b", "c d")
	doc.AddString("title", "second")

	assert.Equal(t, 2, doc.Size())
	assert.Equal(t, "first", doc.Get("title"))
	assert.Equal(t, []string{"first", "second"}, doc.Field("title").Strings())
	assert.Equal(t, 6, doc.Field("body").Length())
	assert.Equal(t, "", doc.Get("missing"))
	assert.Equal(t, "title", doc.Fields()[0].Name)

	err := doc.Add(NewStringField("body", "x"))
	assert.True(t, errors.Is(err, util.ErrArg))
}

func TestFieldString(t *testing.T) {
	f := NewStringField("id", "1")
	f.Boost = 2
	assert.Equal(t, `id: "1"^2`, f.String())
}
