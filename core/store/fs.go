package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ironsweet/goferret/core/util"
)

/*
FSDirectory stores every file of the index as a plain file inside one
operating-system directory. Locks are lock files in the same place.
*/
type FSDirectory struct {
	*BaseDirectory
	sync.Mutex
	path string
}

/*
OpenFSDirectory opens the directory at path. When create is true and
the directory does not exist yet, it is created.
*/
func OpenFSDirectory(path string, create bool) (d *FSDirectory, err error) {
	fi, err := os.Stat(path)
	switch {
	case err == nil && !fi.IsDir():
		return nil, util.IOError("file '%v' exists but is not a directory", path)
	case os.IsNotExist(err) && create:
		if err = os.MkdirAll(path, 0755); err != nil {
			return nil, util.IOError("Cannot create directory %v: %v", path, err)
		}
	case os.IsNotExist(err):
		return nil, util.FileNotFoundError("directory '%v' does not exist", path)
	case err != nil:
		return nil, util.IOError("%v", err)
	}
	return &FSDirectory{
		BaseDirectory: NewBaseDirectory(NewSimpleFSLockFactory(path)),
		path:          path,
	}, nil
}

func (d *FSDirectory) Path() string {
	return d.path
}

func (d *FSDirectory) ListAll() (paths []string, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, util.IOError("listing %v: %v", d.path, err)
	}
	// Exclude subdirs
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, e.Name())
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *FSDirectory) FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(d.path, name))
	return err == nil
}

// Returns the length in bytes of a file in the directory.
func (d *FSDirectory) FileLength(name string) (n int64, err error) {
	if err = d.ensureOpen(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(filepath.Join(d.path, name))
	if os.IsNotExist(err) {
		return 0, util.FileNotFoundError("%v", name)
	} else if err != nil {
		return 0, util.IOError("%v", err)
	}
	return fi.Size(), nil
}

// Removes an existing file in the directory.
func (d *FSDirectory) DeleteFile(name string) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.path, name))
	if os.IsNotExist(err) {
		return util.FileNotFoundError("%v", name)
	} else if err != nil {
		return util.IOError("Couldn't delete %v: %v", name, err)
	}
	return nil
}

/*
Creates an IndexOutput for the file with the given name.
*/
func (d *FSDirectory) CreateOutput(name string, ctx IOContext) (out IndexOutput, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	if err = d.ensureCanWrite(name); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(d.path, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, util.IOError("Cannot create %v: %v", name, err)
	}
	return newOutputStreamIndexOutput(fmt.Sprintf("FSIndexOutput(path=%v)", f.Name()),
		f, bufferSize(ctx)), nil
}

func (d *FSDirectory) ensureCanWrite(name string) error {
	filename := filepath.Join(d.path, name)
	if _, err := os.Stat(filename); err == nil {
		if err = os.Remove(filename); err != nil {
			return util.IOError("Cannot overwrite %v/%v: %v", d.path, name, err)
		}
	}
	return nil
}

func (d *FSDirectory) OpenInput(name string, ctx IOContext) (in IndexInput, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.path, name)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, util.FileNotFoundError("%v", name)
	} else if err != nil {
		return nil, util.IOError("%v", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, util.IOError("%v", err)
	}
	desc := fmt.Sprintf("FSIndexInput(path=%v)", path)
	return newBufferedIndexInput(desc, f, f, 0, fi.Size(), bufferSize(ctx)), nil
}

func (d *FSDirectory) Close() error {
	d.Lock() // synchronized
	defer d.Unlock()
	d.IsOpen = false
	return nil
}

func (d *FSDirectory) String() string {
	return fmt.Sprintf("FSDirectory@%v", d.path)
}

/*
Implements LockFactory using os.OpenFile with O_EXCL. A lock file left
behind by a crashed process must be removed with ClearLock before the
index can be written again.
*/
type SimpleFSLockFactory struct {
	lockDir string
}

func NewSimpleFSLockFactory(path string) *SimpleFSLockFactory {
	return &SimpleFSLockFactory{lockDir: path}
}

func (f *SimpleFSLockFactory) Make(name string) Lock {
	ans := &SimpleFSLock{path: filepath.Join(f.lockDir, name)}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (f *SimpleFSLockFactory) Clear(name string) error {
	err := os.Remove(filepath.Join(f.lockDir, name))
	if err != nil && !os.IsNotExist(err) {
		return util.IOError("Cannot delete %v: %v", name, err)
	}
	return nil
}

type SimpleFSLock struct {
	*LockImpl
	path string
	held bool
}

func (lock *SimpleFSLock) Obtain() (ok bool, err error) {
	f, err := os.OpenFile(lock.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	lock.held = true
	return true, f.Close()
}

func (lock *SimpleFSLock) Close() error {
	if !lock.held {
		return nil
	}
	lock.held = false
	if err := os.Remove(lock.path); err != nil && !os.IsNotExist(err) {
		return util.LockError("Cannot release %v: %v", lock, err)
	}
	return nil
}

func (lock *SimpleFSLock) IsLocked() bool {
	_, err := os.Stat(lock.path)
	return err == nil
}

func (lock *SimpleFSLock) String() string {
	return fmt.Sprintf("SimpleFSLock@%v", lock.path)
}
