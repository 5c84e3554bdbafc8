package index

import (
	"github.com/golang/snappy"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

const FIELDS_IDX_PTR_SIZE = 12

type tvField struct {
	fieldNum int
	size     int64
}

/*
FieldsWriter writes stored fields and term vectors, one document at a
time.

For every document .fdt holds the stored field count, then per field
its number, value count and value lengths, then every value followed
by a space. The term vector index (field number and byte size per
vector) and the vectors follow. .fdx holds a fixed 12-byte entry per
document: the u64 .fdt pointer and the u32 number of term vectors.
Values of compressed fields are snappy blocks.
*/
type FieldsWriter struct {
	fis      *model.FieldInfos
	fdtOut   store.IndexOutput
	fdxOut   store.IndexOutput
	tvBuf    *store.RAMOutput
	tvFields []tvField
	docStart int64
	inDoc    bool
}

func NewFieldsWriter(dir store.Directory, segment string, fis *model.FieldInfos,
	ctx store.IOContext) (fw *FieldsWriter, err error) {
	fw = &FieldsWriter{fis: fis, tvBuf: store.NewRAMBuffer()}
	if fw.fdtOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_FIELDS), ctx); err != nil {
		return nil, err
	}
	if fw.fdxOut, err = dir.CreateOutput(util.SegmentFileName(segment, EXT_FIELDS_INDEX), ctx); err != nil {
		util.CloseWhileSuppressingError(fw.fdtOut)
		return nil, err
	}
	return fw, nil
}

/*
AddDocument writes the stored fields of doc and opens the document
for term vectors. Every field of doc must already be in the
FieldInfos. FinishDocument completes it.
*/
func (fw *FieldsWriter) AddDocument(doc *document.Document) (err error) {
	assert2(!fw.inDoc, "previous document was not finished")
	fw.docStart = fw.fdtOut.FilePointer()
	fw.inDoc = true
	fw.tvFields = fw.tvFields[:0]
	fw.tvBuf.Reset()

	type storedField struct {
		fi     *model.FieldInfo
		values [][]byte
	}
	var stored []storedField
	for _, field := range doc.Fields() {
		fi := fw.fis.Field(field.Name)
		assert2(fi != nil, "unknown field %v", field.Name)
		if !fi.IsStored() {
			continue
		}
		values := field.Data
		if fi.IsCompressed() {
			values = make([][]byte, len(field.Data))
			for i, data := range field.Data {
				values[i] = snappy.Encode(nil, data)
			}
		}
		stored = append(stored, storedField{fi, values})
	}

	out := fw.fdtOut
	if err = out.WriteVInt(int32(len(stored))); err != nil {
		return
	}
	for _, sf := range stored {
		if err = out.WriteVInt(int32(sf.fi.Number)); err != nil {
			return
		}
		if err = out.WriteVInt(int32(len(sf.values))); err != nil {
			return
		}
		for _, v := range sf.values {
			if err = out.WriteVInt(int32(len(v))); err != nil {
				return
			}
		}
	}
	for _, sf := range stored {
		for _, v := range sf.values {
			if err = out.WriteBytes(v); err != nil {
				return
			}
			if err = out.WriteByte(' '); err != nil {
				return
			}
		}
	}
	return nil
}

// AddTermVector buffers the term vector of one field of the open document.
func (fw *FieldsWriter) AddTermVector(tv *TermVector) error {
	assert2(fw.inDoc, "no open document")
	fi := fw.fis.ByNumber(tv.FieldNum)
	start := fw.tvBuf.FilePointer()
	if err := writeTermVector(fw.tvBuf, tv, fi.StorePositions(), fi.StoreOffsets()); err != nil {
		return err
	}
	fw.tvFields = append(fw.tvFields, tvField{tv.FieldNum, fw.tvBuf.FilePointer() - start})
	return nil
}

// FinishDocument writes the term vectors and the .fdx entry.
func (fw *FieldsWriter) FinishDocument() (err error) {
	assert2(fw.inDoc, "no open document")
	fw.inDoc = false
	for _, f := range fw.tvFields {
		if err = fw.fdtOut.WriteVInt(int32(f.fieldNum)); err != nil {
			return
		}
		if err = fw.fdtOut.WriteVLong(f.size); err != nil {
			return
		}
	}
	if err = fw.tvBuf.WriteTo(fw.fdtOut); err != nil {
		return
	}
	if err = fw.fdxOut.WriteLong(fw.docStart); err != nil {
		return
	}
	return fw.fdxOut.WriteInt(int32(len(fw.tvFields)))
}

func (fw *FieldsWriter) Close() error {
	return util.Close(fw.fdtOut, fw.fdxOut)
}
