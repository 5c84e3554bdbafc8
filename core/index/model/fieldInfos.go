package model

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/ironsweet/goferret/core/util"
)

/*
Collection of FieldInfo(s), accessible by number or by name. Field
numbers are dense and assigned in insertion order. Fields are never
removed, so a number stays valid for the life of the collection.

New fields added through GetOrAddField take the collection's default
store, index and term vector values.
*/
type FieldInfos struct {
	sync.RWMutex
	Store      StoreValue
	Index      IndexValue
	TermVector TermVectorValue

	fields []*FieldInfo
	byName map[string]*FieldInfo
}

func NewFieldInfos(store StoreValue, index IndexValue, termVector TermVectorValue) (*FieldInfos, error) {
	if err := checkValues("default", store, index, termVector); err != nil {
		return nil, err
	}
	return newFieldInfos(store, index, termVector), nil
}

func newFieldInfos(store StoreValue, index IndexValue, termVector TermVectorValue) *FieldInfos {
	return &FieldInfos{
		Store:      store,
		Index:      index,
		TermVector: termVector,
		byName:     make(map[string]*FieldInfo),
	}
}

// DefaultFieldInfos stores, tokenizes and keeps full term vectors.
func DefaultFieldInfos() *FieldInfos {
	return newFieldInfos(STORE_YES, INDEX_YES, TERM_VECTOR_WITH_POSITIONS_OFFSETS)
}

/*
AddField numbers fi and appends it. Adding a second field with the
same name is an argument error.
*/
func (fis *FieldInfos) AddField(fi *FieldInfo) (*FieldInfo, error) {
	fis.Lock()
	defer fis.Unlock()
	return fis.addField(fi)
}

func (fis *FieldInfos) addField(fi *FieldInfo) (*FieldInfo, error) {
	if _, ok := fis.byName[fi.Name]; ok {
		return nil, util.ArgError("Field :%v already exists", fi.Name)
	}
	fi.Number = len(fis.fields)
	fis.fields = append(fis.fields, fi)
	fis.byName[fi.Name] = fi
	return fi, nil
}

/* Return the FieldInfo object referenced by the field name, or nil. */
func (fis *FieldInfos) Field(name string) *FieldInfo {
	fis.RLock()
	defer fis.RUnlock()
	return fis.byName[name]
}

/* Returns the field number, or -1 if there is no such field. */
func (fis *FieldInfos) FieldNum(name string) int {
	if fi := fis.Field(name); fi != nil {
		return fi.Number
	}
	return -1
}

/* Return the FieldInfo object referenced by the field number. */
func (fis *FieldInfos) ByNumber(number int) *FieldInfo {
	fis.RLock()
	defer fis.RUnlock()
	assert2(number >= 0 && number < len(fis.fields), "Illegal field number: %v", number)
	return fis.fields[number]
}

func (fis *FieldInfos) GetOrAddField(name string) (*FieldInfo, error) {
	fis.Lock()
	defer fis.Unlock()
	if fi, ok := fis.byName[name]; ok {
		return fi, nil
	}
	fi, err := NewFieldInfo(name, fis.Store, fis.Index, fis.TermVector)
	if err != nil {
		return nil, err
	}
	return fis.addField(fi)
}

/* Returns the number of fields */
func (fis *FieldInfos) Size() int {
	fis.RLock()
	defer fis.RUnlock()
	return len(fis.fields)
}

/* Returns a snapshot of the fields, ordered by number. */
func (fis *FieldInfos) Fields() []*FieldInfo {
	fis.RLock()
	defer fis.RUnlock()
	ans := make([]*FieldInfo, len(fis.fields))
	copy(ans, fis.fields)
	return ans
}

// HasVectors is true if any field stores term vectors.
func (fis *FieldInfos) HasVectors() bool {
	for _, fi := range fis.Fields() {
		if fi.StoreTermVector() {
			return true
		}
	}
	return false
}

/*
Write stores the defaults, then name, boost and bits of every field.
*/
func (fis *FieldInfos) Write(out util.DataOutput) (err error) {
	fis.RLock()
	defer fis.RUnlock()
	for _, v := range []int32{int32(fis.Store), int32(fis.Index), int32(fis.TermVector),
		int32(len(fis.fields))} {
		if err = out.WriteVInt(v); err != nil {
			return err
		}
	}
	for _, fi := range fis.fields {
		if err = out.WriteString(fi.Name); err == nil {
			if err = out.WriteInt(int32(math.Float32bits(fi.Boost))); err == nil {
				err = out.WriteVInt(int32(fi.Bits))
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func ReadFieldInfos(in util.DataInput) (fis *FieldInfos, err error) {
	var vals [4]int32
	for i := range vals {
		if vals[i], err = in.ReadVInt(); err != nil {
			return nil, err
		}
	}
	fis = newFieldInfos(StoreValue(vals[0]), IndexValue(vals[1]), TermVectorValue(vals[2]))
	for i := int32(0); i < vals[3]; i++ {
		fi := &FieldInfo{}
		if fi.Name, err = in.ReadString(); err != nil {
			return nil, err
		}
		boost, err := in.ReadInt()
		if err != nil {
			return nil, err
		}
		fi.Boost = math.Float32frombits(uint32(boost))
		bits, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		fi.Bits = uint32(bits)
		if _, err = fis.addField(fi); err != nil {
			return nil, util.CorruptError("%v", err)
		}
	}
	return fis, nil
}

func (fis *FieldInfos) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "default:\n  store: %v\n  index: %v\n  term_vector: %v\nfields:\n",
		fis.Store, fis.Index, fis.TermVector)
	for _, fi := range fis.Fields() {
		fmt.Fprintf(&buf, "  %v", fi)
	}
	return buf.String()
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
