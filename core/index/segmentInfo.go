package index

import (
	"bytes"
	"fmt"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

/*
SegmentInfo describes one segment of an index: its name, how many
documents it holds, and which generation of its deletions file and of
each field's norms file is current. A generation of -1 means the file
does not exist.
*/
type SegmentInfo struct {
	Name            string
	DocCount        int
	DelGen          int64
	NormGens        []int64 // indexed by field number
	UseCompoundFile bool

	dir store.Directory
}

func NewSegmentInfo(name string, docCount int, dir store.Directory) *SegmentInfo {
	return &SegmentInfo{
		Name:     name,
		DocCount: docCount,
		DelGen:   -1,
		dir:      dir,
	}
}

func (si *SegmentInfo) Directory() store.Directory {
	return si.dir
}

func (si *SegmentInfo) HasDeletions() bool {
	return si.DelGen >= 0
}

// DelFileName is "" while the segment has no deletions.
func (si *SegmentInfo) DelFileName() string {
	return util.FileNameFromGeneration(si.Name, EXT_DELETES, si.DelGen)
}

// AdvanceDelGen moves deletions to the next generation and returns its file name.
func (si *SegmentInfo) AdvanceDelGen() string {
	si.DelGen++
	return si.DelFileName()
}

/*
HasSeparateNorms is true when a norms file was rewritten after the
segment was packed into a compound file, so it lives outside it.
*/
func (si *SegmentInfo) HasSeparateNorms() bool {
	if !si.UseCompoundFile {
		return false
	}
	for _, gen := range si.NormGens {
		if gen > 0 {
			return true
		}
	}
	return false
}

func (si *SegmentInfo) normGen(fieldNum int) int64 {
	if fieldNum < len(si.NormGens) {
		return si.NormGens[fieldNum]
	}
	return -1
}

/*
NormFileName returns the current norms file of a field, or "" when
the field has no norms in this segment. Norms written after the
segment went into a compound file use the "s" extension.
*/
func (si *SegmentInfo) NormFileName(fieldNum int) string {
	gen := si.normGen(fieldNum)
	if gen < 0 {
		return ""
	}
	ext := EXT_NORMS
	if si.UseCompoundFile && gen > 0 {
		ext = EXT_SEPARATE_NORMS
	}
	return util.FileNameForGenField(si.Name, ext, gen, fieldNum)
}

// NormsInCompound reports whether the field's norms live in the .cfs.
func (si *SegmentInfo) NormsInCompound(fieldNum int) bool {
	return si.UseCompoundFile && si.normGen(fieldNum) == 0
}

/*
AdvanceNormGen moves the norms of a field to the next generation,
growing the generation list with -1 as needed.
*/
func (si *SegmentInfo) AdvanceNormGen(fieldNum int) {
	for len(si.NormGens) <= fieldNum {
		si.NormGens = append(si.NormGens, -1)
	}
	si.NormGens[fieldNum]++
}

/*
Files lists every file this segment currently references. Files
packed into the compound file are represented by the .cfs itself.
*/
func (si *SegmentInfo) Files() []string {
	var files []string
	if si.UseCompoundFile {
		files = append(files, util.SegmentFileName(si.Name, EXT_COMPOUND))
	} else {
		for _, ext := range COMPOUND_EXTENSIONS {
			files = append(files, util.SegmentFileName(si.Name, ext))
		}
	}
	if si.HasDeletions() {
		files = append(files, si.DelFileName())
	}
	for i := range si.NormGens {
		if name := si.NormFileName(i); name != "" && !si.NormsInCompound(i) {
			files = append(files, name)
		}
	}
	return files
}

// DeleteFiles removes every file of the segment, ignoring failures.
func (si *SegmentInfo) DeleteFiles() {
	util.DeleteFilesIgnoringErrors(si.dir, si.Files()...)
}

// Clone copies the descriptor. The directory is shared.
func (si *SegmentInfo) Clone() *SegmentInfo {
	clone := *si
	clone.NormGens = append([]int64(nil), si.NormGens...)
	return &clone
}

func (si *SegmentInfo) Write(out util.DataOutput) (err error) {
	if err = out.WriteString(si.Name); err != nil {
		return
	}
	if err = out.WriteVInt(int32(si.DocCount)); err != nil {
		return
	}
	if err = out.WriteVInt(int32(si.DelGen)); err != nil {
		return
	}
	if err = out.WriteVInt(int32(len(si.NormGens))); err != nil {
		return
	}
	for i := len(si.NormGens) - 1; i >= 0; i-- {
		if err = out.WriteVInt(int32(si.NormGens[i])); err != nil {
			return
		}
	}
	var compound byte
	if si.UseCompoundFile {
		compound = 1
	}
	return out.WriteByte(compound)
}

func ReadSegmentInfo(in util.DataInput, dir store.Directory) (si *SegmentInfo, err error) {
	si = &SegmentInfo{dir: dir}
	if si.Name, err = in.ReadString(); err != nil {
		return nil, err
	}
	var n int32
	if n, err = in.ReadVInt(); err != nil {
		return nil, err
	}
	si.DocCount = int(n)
	if n, err = in.ReadVInt(); err != nil {
		return nil, err
	}
	si.DelGen = int64(n)
	if n, err = in.ReadVInt(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, util.CorruptError("segment %v: negative norm generation count %v", si.Name, n)
	}
	if n > 0 {
		si.NormGens = make([]int64, n)
		for i := int(n) - 1; i >= 0; i-- {
			gen, err := in.ReadVInt()
			if err != nil {
				return nil, err
			}
			si.NormGens[i] = int64(gen)
		}
	}
	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	si.UseCompoundFile = b != 0
	return si, nil
}

func (si *SegmentInfo) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%v:%v", si.Name, si.DocCount)
	if si.UseCompoundFile {
		buf.WriteString(":c")
	}
	if si.HasDeletions() {
		fmt.Fprintf(&buf, ":del%v", si.DelGen)
	}
	return buf.String()
}
