package index

import (
	"github.com/golang/snappy"
	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
FieldsReader reads what FieldsWriter wrote. Every call works on its
own clones of the inputs, so one FieldsReader may serve concurrent
callers.
*/
type FieldsReader struct {
	fis   *model.FieldInfos
	fdtIn store.IndexInput
	fdxIn store.IndexInput
	size  int
}

func OpenFieldsReader(dir store.Directory, segment string, fis *model.FieldInfos) (fr *FieldsReader, err error) {
	fr = &FieldsReader{fis: fis}
	if fr.fdtIn, err = dir.OpenInput(util.SegmentFileName(segment, EXT_FIELDS), store.IO_CONTEXT_READ); err != nil {
		return nil, err
	}
	if fr.fdxIn, err = dir.OpenInput(util.SegmentFileName(segment, EXT_FIELDS_INDEX), store.IO_CONTEXT_READ); err != nil {
		util.CloseWhileSuppressingError(fr.fdtIn)
		return nil, err
	}
	fr.size = int(fr.fdxIn.Length() / FIELDS_IDX_PTR_SIZE)
	return fr, nil
}

// Size is the number of documents, deleted ones included.
func (fr *FieldsReader) Size() int { return fr.size }

type storedHeader struct {
	fieldNum int
	lengths  []int
}

// openDoc positions a clone of .fdt on doc and reads its field headers.
func (fr *FieldsReader) openDoc(doc int) (fdt store.IndexInput, headers []storedHeader, tvCount int, err error) {
	if doc < 0 || doc >= fr.size {
		return nil, nil, 0, util.ArgError("document %v out of range [0, %v)", doc, fr.size)
	}
	fdx := fr.fdxIn.Clone()
	defer fdx.Close()
	if err = fdx.Seek(int64(doc) * FIELDS_IDX_PTR_SIZE); err != nil {
		return
	}
	ptr, err := fdx.ReadLong()
	if err != nil {
		return
	}
	n, err := fdx.ReadInt()
	if err != nil {
		return
	}
	tvCount = int(n)

	fdt = fr.fdtIn.Clone()
	defer func() {
		if err != nil {
			fdt.Close()
			fdt = nil
		}
	}()
	if err = fdt.Seek(ptr); err != nil {
		return
	}
	count, err := fdt.ReadVInt()
	if err != nil {
		return
	}
	if count < 0 {
		err = util.CorruptError("document %v: negative stored field count %v", doc, count)
		return
	}
	headers = make([]storedHeader, count)
	for i := range headers {
		var v int32
		if v, err = fdt.ReadVInt(); err != nil {
			return
		}
		headers[i].fieldNum = int(v)
		if v, err = fdt.ReadVInt(); err != nil {
			return
		}
		headers[i].lengths = make([]int, v)
		for j := range headers[i].lengths {
			if v, err = fdt.ReadVInt(); err != nil {
				return
			}
			headers[i].lengths[j] = int(v)
		}
	}
	return fdt, headers, tvCount, nil
}

func (fr *FieldsReader) GetDocument(doc int) (d *document.Document, err error) {
	fdt, headers, _, err := fr.openDoc(doc)
	if err != nil {
		return nil, err
	}
	defer fdt.Close()

	d = document.NewDocument()
	for _, h := range headers {
		fi := fr.fis.ByNumber(h.fieldNum)
		field := document.NewField(fi.Name)
		field.Boost = fi.Boost
		for _, length := range h.lengths {
			data := make([]byte, length+1)
			if err = fdt.ReadBytes(data); err != nil {
				return nil, err
			}
			data = data[:length]
			if fi.IsCompressed() {
				if data, err = snappy.Decode(nil, data); err != nil {
					return nil, util.CorruptError("field %v of document %v: %v", fi.Name, doc, err)
				}
			}
			field.AddData(data)
		}
		if err = d.Add(field); err != nil {
			return nil, util.CorruptError("document %v: %v", doc, err)
		}
	}
	return d, nil
}

// GetTermVectors returns the vectors of doc in the order they were stored.
func (fr *FieldsReader) GetTermVectors(doc int) ([]*TermVector, error) {
	return fr.termVectors(doc, -1)
}

// GetTermVector returns nil when doc has no vector for the field.
func (fr *FieldsReader) GetTermVector(doc, fieldNum int) (*TermVector, error) {
	tvs, err := fr.termVectors(doc, fieldNum)
	if err != nil || len(tvs) == 0 {
		return nil, err
	}
	return tvs[0], nil
}

func (fr *FieldsReader) termVectors(doc, only int) (tvs []*TermVector, err error) {
	fdt, headers, tvCount, err := fr.openDoc(doc)
	if err != nil {
		return nil, err
	}
	defer fdt.Close()

	skip := fdt.FilePointer()
	for _, h := range headers {
		for _, length := range h.lengths {
			skip += int64(length) + 1
		}
	}
	if err = fdt.Seek(skip); err != nil {
		return nil, err
	}
	index := make([]tvField, tvCount)
	for i := range index {
		v, err := fdt.ReadVInt()
		if err != nil {
			return nil, err
		}
		index[i].fieldNum = int(v)
		if index[i].size, err = fdt.ReadVLong(); err != nil {
			return nil, err
		}
	}
	pos := fdt.FilePointer()
	for _, f := range index {
		if only >= 0 && f.fieldNum != only {
			pos += f.size
			continue
		}
		if err = fdt.Seek(pos); err != nil {
			return nil, err
		}
		fi := fr.fis.ByNumber(f.fieldNum)
		tv := &TermVector{FieldNum: f.fieldNum, Field: fi.Name}
		if err = readTermVector(fdt, tv, fi.StorePositions(), fi.StoreOffsets()); err != nil {
			return nil, err
		}
		tvs = append(tvs, tv)
		pos += f.size
	}
	return tvs, nil
}

func (fr *FieldsReader) Close() error {
	return util.Close(fr.fdtIn, fr.fdxIn)
}
