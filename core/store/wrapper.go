package store

import (
	"fmt"
	"sort"
	"sync"
)

/*
TrackingDirectoryWrapper remembers the files created through it that
have not been deleted since. A flush or merge writes through one so it
can pack its output into a compound file, or remove it when it fails.
*/
type TrackingDirectoryWrapper struct {
	Directory
	mu      sync.Mutex
	created map[string]struct{}
}

func NewTrackingDirectoryWrapper(dir Directory) *TrackingDirectoryWrapper {
	return &TrackingDirectoryWrapper{Directory: dir, created: make(map[string]struct{})}
}

func (w *TrackingDirectoryWrapper) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	w.mu.Lock()
	w.created[name] = struct{}{}
	w.mu.Unlock()
	return w.Directory.CreateOutput(name, ctx)
}

func (w *TrackingDirectoryWrapper) DeleteFile(name string) error {
	w.mu.Lock()
	delete(w.created, name)
	w.mu.Unlock()
	return w.Directory.DeleteFile(name)
}

// CreatedFiles returns the tracked names in sorted order.
func (w *TrackingDirectoryWrapper) CreatedFiles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.created))
	for name := range w.created {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *TrackingDirectoryWrapper) ContainsFile(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.created[name]
	return ok
}

func (w *TrackingDirectoryWrapper) String() string {
	return fmt.Sprintf("tracking(%v)", w.Directory)
}
