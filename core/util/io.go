package util

import (
	"io"

	"go.uber.org/multierr"
)

/*
CloseWhileHandlingError closes all given objects. If priorErr is not
nil it is returned unchanged, otherwise the combined close errors.
*/
func CloseWhileHandlingError(priorErr error, objects ...io.Closer) error {
	err := Close(objects...)
	if priorErr != nil {
		return priorErr
	}
	return err
}

// CloseWhileSuppressingError closes everything and drops the errors.
func CloseWhileSuppressingError(objects ...io.Closer) {
	for _, object := range objects {
		safeClose(object)
	}
}

// Close closes every non-nil object and returns all failures combined.
func Close(objects ...io.Closer) error {
	var err error
	for _, object := range objects {
		err = multierr.Append(err, safeClose(object))
	}
	return err
}

func safeClose(obj io.Closer) error {
	if obj == nil {
		return nil
	}
	return obj.Close()
}

type FileDeleter interface {
	DeleteFile(name string) error
}

/*
Deletes all given files, suppressing all errors.

Note that the files should not be empty.
*/
func DeleteFilesIgnoringErrors(dir FileDeleter, files ...string) {
	for _, name := range files {
		dir.DeleteFile(name) // ignore error
	}
}
