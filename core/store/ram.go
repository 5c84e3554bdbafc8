package store

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ironsweet/goferret/core/util"
)

/*
A memory-resident Directory implementation. Locking implementation
is by default the SingleInstanceLockFactory.

This directory is meant for tests and small, short-lived indexes.
*/
type RAMDirectory struct {
	*BaseDirectory

	fileMap     map[string]*RAMFile // synchronized
	fileMapLock sync.RWMutex
}

func NewRAMDirectory() *RAMDirectory {
	return &RAMDirectory{
		BaseDirectory: NewBaseDirectory(NewSingleInstanceLockFactory()),
		fileMap:       make(map[string]*RAMFile),
	}
}

func (rd *RAMDirectory) ListAll() (names []string, err error) {
	if err = rd.ensureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	names = make([]string, 0, len(rd.fileMap))
	for name := range rd.fileMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Returns true iff the named file exists in this directory
func (rd *RAMDirectory) FileExists(name string) bool {
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	_, ok := rd.fileMap[name]
	return ok
}

func (rd *RAMDirectory) file(name string) (*RAMFile, error) {
	if err := rd.ensureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	if file, ok := rd.fileMap[name]; ok {
		return file, nil
	}
	return nil, util.FileNotFoundError("%v", name)
}

// Returns the length in bytes of a file in the directory.
func (rd *RAMDirectory) FileLength(name string) (length int64, err error) {
	file, err := rd.file(name)
	if err != nil {
		return 0, err
	}
	return file.Length(), nil
}

// Removes an existing file in the directory
func (rd *RAMDirectory) DeleteFile(name string) error {
	if err := rd.ensureOpen(); err != nil {
		return err
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	if _, ok := rd.fileMap[name]; !ok {
		return util.FileNotFoundError("%v", name)
	}
	delete(rd.fileMap, name)
	return nil
}

// Creates a new, empty file in the directory with the given name.
// Returns a stream writing this file.
func (rd *RAMDirectory) CreateOutput(name string, context IOContext) (out IndexOutput, err error) {
	if err = rd.ensureOpen(); err != nil {
		return nil, err
	}
	file := new(RAMFile)
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	rd.fileMap[name] = file
	return newRAMOutput(name, file), nil
}

// Returns a stream reading an existing file.
func (rd *RAMDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	file, err := rd.file(name)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("RAMInput(name=%v)", name)
	return newBufferedIndexInput(desc, file, nil, 0, file.Length(), bufferSize(context)), nil
}

// Closes the store to future operations, releasing associated memory.
func (rd *RAMDirectory) Close() error {
	rd.IsOpen = false
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	rd.fileMap = make(map[string]*RAMFile)
	return nil
}

func (rd *RAMDirectory) String() string {
	return fmt.Sprintf("RAMDirectory@%p", rd)
}

// Represents a file in RAM as one growing []byte.
type RAMFile struct {
	sync.RWMutex
	data []byte
}

func (rf *RAMFile) Length() int64 {
	rf.RLock()
	defer rf.RUnlock()
	return int64(len(rf.data))
}

func (rf *RAMFile) ReadAt(p []byte, off int64) (n int, err error) {
	rf.RLock()
	defer rf.RUnlock()
	if off >= int64(len(rf.data)) {
		return 0, io.EOF
	}
	n = copy(p, rf.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (rf *RAMFile) write(p []byte) {
	rf.Lock()
	defer rf.Unlock()
	rf.data = append(rf.data, p...)
}

/*
RAMOutput appends to a RAMFile. Created through NewRAMBuffer it
doubles as a scratch buffer which can be copied into another output
and reset, which is how skip data is staged before it is written.
*/
type RAMOutput struct {
	*IndexOutputImpl
	name string
	file *RAMFile
}

func newRAMOutput(name string, file *RAMFile) *RAMOutput {
	out := &RAMOutput{name: name, file: file}
	out.IndexOutputImpl = NewIndexOutput(out)
	return out
}

// NewRAMBuffer returns an output which is not attached to a Directory.
func NewRAMBuffer() *RAMOutput {
	return newRAMOutput("RAMBuffer", new(RAMFile))
}

func (out *RAMOutput) WriteByte(b byte) error {
	out.file.write([]byte{b})
	return nil
}

func (out *RAMOutput) WriteBytes(buf []byte) error {
	out.file.write(buf)
	return nil
}

func (out *RAMOutput) FilePointer() int64 {
	return out.file.Length()
}

func (out *RAMOutput) Length() int64 {
	return out.file.Length()
}

// WriteTo copies the bytes written so far to another output.
func (out *RAMOutput) WriteTo(other util.DataOutput) error {
	out.file.RLock()
	defer out.file.RUnlock()
	return other.WriteBytes(out.file.data)
}

// Reset truncates the buffer so it can be reused.
func (out *RAMOutput) Reset() {
	out.file.Lock()
	defer out.file.Unlock()
	out.file.data = out.file.data[:0]
}

func (out *RAMOutput) Close() error {
	return nil
}

func (out *RAMOutput) String() string {
	return out.name
}

/*
Implements LockFactory for a single in-process instance, meaning all
locking will take place through this one instance. This is the
locking of RAMDirectory.
*/
type SingleInstanceLockFactory struct {
	locksLock sync.Mutex
	locks     map[string]bool
}

func NewSingleInstanceLockFactory() *SingleInstanceLockFactory {
	return &SingleInstanceLockFactory{locks: make(map[string]bool)}
}

func (fac *SingleInstanceLockFactory) Make(name string) Lock {
	ans := &SingleInstanceLock{name: name, factory: fac}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (fac *SingleInstanceLockFactory) Clear(name string) error {
	fac.locksLock.Lock() // synchronized
	defer fac.locksLock.Unlock()
	delete(fac.locks, name)
	return nil
}

type SingleInstanceLock struct {
	*LockImpl
	name    string
	factory *SingleInstanceLockFactory
	held    bool
}

func (lock *SingleInstanceLock) Obtain() (ok bool, err error) {
	lock.factory.locksLock.Lock() // synchronized
	defer lock.factory.locksLock.Unlock()
	if lock.factory.locks[lock.name] {
		return false, nil
	}
	lock.factory.locks[lock.name] = true
	lock.held = true
	return true, nil
}

func (lock *SingleInstanceLock) Close() error {
	lock.factory.locksLock.Lock() // synchronized
	defer lock.factory.locksLock.Unlock()
	if lock.held {
		delete(lock.factory.locks, lock.name)
		lock.held = false
	}
	return nil
}

func (lock *SingleInstanceLock) IsLocked() bool {
	lock.factory.locksLock.Lock() // synchronized
	defer lock.factory.locksLock.Unlock()
	return lock.factory.locks[lock.name]
}

func (lock *SingleInstanceLock) String() string {
	return fmt.Sprintf("SingleInstanceLock: %v", lock.name)
}
