package store

import (
	"fmt"
	"io"
	"time"

	"github.com/ironsweet/goferret/core/util"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("store")

// Library tracing is off until the application picks a level.
func init() { logging.SetLevel(logging.WARNING, "store") }

const (
	IO_CONTEXT_TYPE_MERGE   = 1
	IO_CONTEXT_TYPE_READ    = 2
	IO_CONTEXT_TYPE_FLUSH   = 3
	IO_CONTEXT_TYPE_DEFAULT = 4
)

type IOContextType int

var (
	IO_CONTEXT_DEFAULT = IOContext{IO_CONTEXT_TYPE_DEFAULT}
	IO_CONTEXT_READ    = IOContext{IO_CONTEXT_TYPE_READ}
	IO_CONTEXT_FLUSH   = IOContext{IO_CONTEXT_TYPE_FLUSH}
	IO_CONTEXT_MERGE   = IOContext{IO_CONTEXT_TYPE_MERGE}
)

/*
IOContext tells a Directory what a stream is opened for. Merges read
every file front to back and get a larger read buffer.
*/
type IOContext struct {
	context IOContextType
}

func (ctx IOContext) String() string {
	return fmt.Sprintf("IOContext [context=%v]", ctx.context)
}

// How long ObtainWithin() waits in between attempts to acquire the lock.
const LOCK_POLL_INTERVAL = 10 * time.Millisecond

// Pass this value to ObtainWithin() to try forever to obtain the lock.
const LOCK_OBTAIN_WAIT_FOREVER = time.Duration(-1)

const (
	LOCK_PREFIX = "ferret-"
	LOCK_EXT    = ".lck"
)

// LockFileName maps a lock name like "write" to its file name.
func LockFileName(name string) string {
	return LOCK_PREFIX + name + LOCK_EXT
}

/*
An interprocess mutex lock.

Typical use might look like:

	lock := directory.MakeLock("write")
	if ok, err := lock.ObtainWithin(time.Second); !ok {
		return err
	}
	defer lock.Close()
*/
type Lock interface {
	// Releases exclusive access.
	io.Closer
	// Attempts to obtain exclusive access and immediately return
	// upon success or failure.
	Obtain() (ok bool, err error)
	// Attempts to obtain an exclusive lock within the given time,
	// polling every LOCK_POLL_INTERVAL.
	ObtainWithin(lockWaitTimeout time.Duration) (ok bool, err error)
	// Returns true if the resource is currently locked. Note that one
	// must still call Obtain() before using the resource.
	IsLocked() bool
}

type LockImpl struct {
	self Lock
}

func NewLockImpl(self Lock) *LockImpl {
	return &LockImpl{self: self}
}

func (lock *LockImpl) ObtainWithin(lockWaitTimeout time.Duration) (locked bool, err error) {
	assert2(lockWaitTimeout >= 0 || lockWaitTimeout == LOCK_OBTAIN_WAIT_FOREVER,
		"lockWaitTimeout should be LOCK_OBTAIN_WAIT_FOREVER or a non-negative duration (got %v)",
		lockWaitTimeout)

	deadline := time.Now().Add(lockWaitTimeout)
	for locked, err = lock.self.Obtain(); !locked; locked, err = lock.self.Obtain() {
		if err != nil {
			return false, util.LockError("Lock obtain failed: %v: %v", lock.self, err)
		}
		if lockWaitTimeout != LOCK_OBTAIN_WAIT_FOREVER && !time.Now().Before(deadline) {
			return false, util.LockError("Lock obtain timed out: %v", lock.self)
		}
		time.Sleep(LOCK_POLL_INTERVAL)
	}
	return true, nil
}

type LockFactory interface {
	Make(name string) Lock
	Clear(name string) error
}

/*
Directory is the storage contract of the engine: a flat namespace of
named files which are written once, front to back, and then read with
random access. Every open IndexInput keeps its own position; clones
share the underlying file.
*/
type Directory interface {
	io.Closer
	ListAll() (names []string, err error)
	// Returns true iff a file with the given name exists.
	FileExists(name string) bool
	// Removes an existing file in the directory.
	DeleteFile(name string) error
	// Returns the length of a file in the directory, or an error if
	// the file doesn't exist.
	FileLength(name string) (n int64, err error)
	// Creates a new, empty file in the directory with the given name,
	// replacing any existing file. Returns a stream writing this file.
	CreateOutput(name string, ctx IOContext) (out IndexOutput, err error)
	// Returns a stream reading an existing file.
	OpenInput(name string, ctx IOContext) (in IndexInput, err error)
	// Locks related methods
	MakeLock(name string) Lock
	ClearLock(name string) error
}

/* Base implementation for a concrete Directory. */
type BaseDirectory struct {
	IsOpen      bool
	lockFactory LockFactory
}

func NewBaseDirectory(lockFactory LockFactory) *BaseDirectory {
	assertOK(lockFactory != nil)
	return &BaseDirectory{IsOpen: true, lockFactory: lockFactory}
}

func (d *BaseDirectory) MakeLock(name string) Lock {
	return d.lockFactory.Make(LockFileName(name))
}

func (d *BaseDirectory) ClearLock(name string) error {
	return d.lockFactory.Clear(LockFileName(name))
}

func (d *BaseDirectory) LockFactory() LockFactory {
	return d.lockFactory
}

func (d *BaseDirectory) ensureOpen() error {
	if !d.IsOpen {
		return util.StateError("this Directory is closed")
	}
	return nil
}

/*
Copy copies the file src in from to the file dest in to. dest is
overwritten if it exists, and removed again when the copy fails.
*/
func Copy(from, to Directory, src, dest string) (err error) {
	var os IndexOutput
	var is IndexInput
	var success = false
	defer func() {
		if success {
			err = util.Close(os, is)
		} else {
			if os != nil {
				util.CloseWhileSuppressingError(os)
			}
			if is != nil {
				util.CloseWhileSuppressingError(is)
			}
			to.DeleteFile(dest) // ignore error
		}
	}()

	if is, err = from.OpenInput(src, IO_CONTEXT_MERGE); err != nil {
		return err
	}
	if os, err = to.CreateOutput(dest, IO_CONTEXT_MERGE); err != nil {
		return err
	}
	if err = os.CopyBytes(is, is.Length()); err != nil {
		return err
	}
	success = true
	return nil
}

func assertOK(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
