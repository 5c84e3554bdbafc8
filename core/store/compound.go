package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ironsweet/goferret/core/util"
)

/*
Compound file layout:

	VInt    entry count
	entries (Long data offset, String file name), in insertion order
	the file data, concatenated in the same order

The length of an entry is the distance to the next offset, or to the
end of the compound file for the last one.
*/

type FileSlice struct {
	offset, length int64
}

/*
CompoundFileDirectory is a read-only view of a compound file as a
Directory of its sub-files. Locks are taken on the parent directory.
*/
type CompoundFileDirectory struct {
	sync.Mutex

	directory Directory
	fileName  string
	entries   map[string]FileSlice
	handle    IndexInput
	isOpen    bool
}

func OpenCompoundFileDirectory(directory Directory, fileName string,
	context IOContext) (d *CompoundFileDirectory, err error) {

	d = &CompoundFileDirectory{directory: directory, fileName: fileName}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(d.handle)
		}
	}()
	if d.handle, err = directory.OpenInput(fileName, context); err != nil {
		return nil, err
	}
	if d.entries, err = readEntries(d.handle); err != nil {
		return nil, err
	}
	success = true
	d.isOpen = true
	return d, nil
}

func readEntries(handle IndexInput) (mapping map[string]FileSlice, err error) {
	count, err := handle.ReadVInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, util.CorruptError("negative compound entry count %v: %v", count, handle)
	}
	names := make([]string, count)
	offsets := make([]int64, count)
	for i := range names {
		if offsets[i], err = handle.ReadLong(); err != nil {
			return nil, err
		}
		if names[i], err = handle.ReadString(); err != nil {
			return nil, err
		}
	}
	mapping = make(map[string]FileSlice)
	for i, name := range names {
		end := handle.Length()
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if offsets[i] < 0 || end < offsets[i] || end > handle.Length() {
			return nil, util.CorruptError("invalid compound entry %v [%v,%v): %v",
				name, offsets[i], end, handle)
		}
		mapping[name] = FileSlice{offsets[i], end - offsets[i]}
	}
	return mapping, nil
}

func (d *CompoundFileDirectory) ensureOpen() error {
	if !d.isOpen {
		return util.StateError("this Directory is closed")
	}
	return nil
}

func (d *CompoundFileDirectory) Close() error {
	d.Lock() // syncronized
	defer d.Unlock()
	if !d.isOpen {
		// allow double close
		return nil
	}
	d.isOpen = false
	return util.Close(d.handle)
}

func (d *CompoundFileDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	entry, ok := d.entries[name]
	if !ok {
		return nil, util.FileNotFoundError("No sub-file with id %v found (fileName=%v)", name, d.fileName)
	}
	return d.handle.Slice(name, entry.offset, entry.length)
}

func (d *CompoundFileDirectory) ListAll() (paths []string, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	for name := range d.entries {
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *CompoundFileDirectory) FileExists(name string) bool {
	_, ok := d.entries[name]
	return ok
}

func (d *CompoundFileDirectory) DeleteFile(name string) error {
	return util.StateError("compound file %v is read-only", d.fileName)
}

func (d *CompoundFileDirectory) FileLength(name string) (n int64, err error) {
	if err = d.ensureOpen(); err != nil {
		return 0, err
	}
	if e, ok := d.entries[name]; ok {
		return e.length, nil
	}
	return 0, util.FileNotFoundError("%v", name)
}

func (d *CompoundFileDirectory) CreateOutput(name string, context IOContext) (out IndexOutput, err error) {
	return nil, util.StateError("compound file %v is read-only", d.fileName)
}

func (d *CompoundFileDirectory) MakeLock(name string) Lock {
	return d.directory.MakeLock(name)
}

func (d *CompoundFileDirectory) ClearLock(name string) error {
	return d.directory.ClearLock(name)
}

func (d *CompoundFileDirectory) String() string {
	return fmt.Sprintf("CompoundFileDirectory(file='%v' in dir=%v)", d.fileName, d.directory)
}

/*
CompoundFileWriter combines several files of a directory into a
single compound file. Files are added by name and only read when the
writer is closed. The source files are left in place.
*/
type CompoundFileWriter struct {
	directory Directory
	fileName  string
	names     []string
	seen      map[string]bool
	closed    bool
}

func NewCompoundFileWriter(dir Directory, name string) *CompoundFileWriter {
	assert2(dir != nil, "directory cannot be nil")
	return &CompoundFileWriter{
		directory: dir,
		fileName:  name,
		seen:      make(map[string]bool),
	}
}

func (w *CompoundFileWriter) AddFile(name string) error {
	if w.closed {
		return util.StateError("Can't add extensions after merge has been called")
	}
	if w.seen[name] {
		return util.ArgError("File %v already added", name)
	}
	w.seen[name] = true
	w.names = append(w.names, name)
	return nil
}

func vintLength(i int64) int64 {
	n := int64(1)
	for ; i >= 0x80; i >>= 7 {
		n++
	}
	return n
}

/*
Close writes the compound file. Offsets are computed before any data
is written, so the output is written strictly front to back.
*/
func (w *CompoundFileWriter) Close() (err error) {
	if w.closed {
		return nil
	}
	w.closed = true
	if len(w.names) == 0 {
		return util.StateError("No entries to merge have been defined")
	}

	offset := vintLength(int64(len(w.names)))
	lengths := make([]int64, len(w.names))
	for i, name := range w.names {
		if lengths[i], err = w.directory.FileLength(name); err != nil {
			return err
		}
		offset += 8 + vintLength(int64(len(name))) + int64(len(name))
	}

	out, err := w.directory.CreateOutput(w.fileName, IO_CONTEXT_MERGE)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if success {
			err = util.Close(out)
		} else {
			util.CloseWhileSuppressingError(out)
		}
	}()

	if err = out.WriteVInt(int32(len(w.names))); err != nil {
		return err
	}
	for i, name := range w.names {
		if err = out.WriteLong(offset); err != nil {
			return err
		}
		if err = out.WriteString(name); err != nil {
			return err
		}
		offset += lengths[i]
	}
	for i, name := range w.names {
		if err = w.copyFile(out, name, lengths[i]); err != nil {
			return err
		}
	}
	log.Debugf("wrote compound file %v with %v entries", w.fileName, len(w.names))
	success = true
	return nil
}

func (w *CompoundFileWriter) copyFile(out IndexOutput, name string, length int64) error {
	in, err := w.directory.OpenInput(name, IO_CONTEXT_MERGE)
	if err != nil {
		return err
	}
	start := out.FilePointer()
	err = out.CopyBytes(in, length)
	if err = util.CloseWhileHandlingError(err, in); err != nil {
		return err
	}
	if copied := out.FilePointer() - start; copied != length {
		return util.IOError("Non-zero remainder length after copying: %v (id: %v, length: %v)",
			length-copied, name, length)
	}
	return nil
}
