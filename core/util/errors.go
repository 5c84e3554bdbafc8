package util

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Every error raised by the engine wraps one of these, so
// callers can classify failures with errors.Is.
var (
	ErrIO           = errors.New("io error")
	ErrFileNotFound = errors.New("file not found")
	ErrEOF          = errors.New("read past end of file")
	ErrArg          = errors.New("argument error")
	ErrState        = errors.New("state error")
	ErrLock         = errors.New("lock error")
	ErrCorrupt      = errors.New("corrupt index")
)

func IOError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIO, format, args...)
}

func FileNotFoundError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFileNotFound, format, args...)
}

func EOFError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrEOF, format, args...)
}

func ArgError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrArg, format, args...)
}

func StateError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrState, format, args...)
}

func LockError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrLock, format, args...)
}

func CorruptError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorrupt, format, args...)
}

/*
IsReadRetryable reports whether err is one of the failures generation
discovery treats as "a commit may have been in progress".
*/
func IsReadRetryable(err error) bool {
	return errors.Is(err, ErrIO) || errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrEOF) || errors.Is(err, ErrCorrupt)
}

func assertOK(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
