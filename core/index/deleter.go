package index

import (
	"sort"
	"sync"

	"github.com/ironsweet/goferret/core/store"
)

/*
Deleter removes index files that no generation references any more.

Some operating systems refuse to delete a file that is still open, so
a failed delete of a file that still exists puts it on the pending
list and it is tried again on the next pass.
*/
type Deleter struct {
	sync.Mutex
	dir     store.Directory
	sis     *SegmentInfos
	pending map[string]bool
	metrics *Metrics
}

func NewDeleter(dir store.Directory, sis *SegmentInfos, metrics *Metrics) *Deleter {
	return &Deleter{
		dir:     dir,
		sis:     sis,
		pending: make(map[string]bool),
		metrics: metrics,
	}
}

// SetSegmentInfos points the deleter at the generation to protect.
func (d *Deleter) SetSegmentInfos(sis *SegmentInfos) {
	d.Lock()
	defer d.Unlock()
	d.sis = sis
}

// PendingFiles lists the files waiting for another delete attempt.
func (d *Deleter) PendingFiles() []string {
	d.Lock()
	defer d.Unlock()
	ans := make([]string, 0, len(d.pending))
	for name := range d.pending {
		ans = append(ans, name)
	}
	sort.Strings(ans)
	return ans
}

func (d *Deleter) DeleteFile(name string) {
	d.Lock()
	defer d.Unlock()
	d.deleteFile(name)
}

func (d *Deleter) DeleteFiles(names ...string) {
	d.Lock()
	defer d.Unlock()
	d.deletePendingFiles()
	for _, name := range names {
		d.deleteFile(name)
	}
}

/*
QueueFile schedules name for the next CommitPendingFiles, for files
the published generation still references.
*/
func (d *Deleter) QueueFile(name string) {
	d.Lock()
	defer d.Unlock()
	d.pending[name] = true
}

func (d *Deleter) deleteFile(name string) {
	log.Debugf("delete '%v'", name)
	if err := d.dir.DeleteFile(name); err != nil {
		if d.dir.FileExists(name) {
			log.Warningf("unable to remove file '%v': %v; will re-try later.", name, err)
			d.pending[name] = true
			d.metrics.deletionRequeued()
		}
		return
	}
	delete(d.pending, name)
	d.metrics.fileDeleted()
}

// CommitPendingFiles makes another attempt at every queued file.
func (d *Deleter) CommitPendingFiles() {
	d.Lock()
	defer d.Unlock()
	d.deletePendingFiles()
}

func (d *Deleter) deletePendingFiles() {
	if len(d.pending) == 0 {
		return
	}
	old := d.pending
	d.pending = make(map[string]bool)
	names := make([]string, 0, len(old))
	for name := range old {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Debugf("delete pending file %v", name)
		d.deleteFile(name)
	}
}

// ClearPendingFiles forgets the queue without touching the files.
func (d *Deleter) ClearPendingFiles() {
	d.Lock()
	defer d.Unlock()
	d.pending = make(map[string]bool)
}

/*
FindDeletableFiles scans the directory and deletes every index file
the current generation does not reference: segments that were merged
away, files now packed inside a compound file, superseded deletion
and norms generations, stray compound files and old segments_N
files. The current segments_N and the pointer file always survive.
*/
func (d *Deleter) FindDeletableFiles() error {
	d.Lock()
	defer d.Unlock()
	files, err := d.dir.ListAll()
	if err != nil {
		return err
	}
	referenced := d.referencedFiles()
	for _, name := range files {
		if !IsIndexFile(name, false) || referenced[name] {
			continue
		}
		d.deleteFile(name)
	}
	d.deletePendingFiles()
	return nil
}

func (d *Deleter) referencedFiles() map[string]bool {
	referenced := map[string]bool{SEGMENTS_GEN_FILENAME: true}
	if d.sis == nil {
		return referenced
	}
	if name := d.sis.SegmentsFileName(); name != "" {
		referenced[name] = true
	}
	for _, si := range d.sis.Segments {
		for _, name := range si.Files() {
			referenced[name] = true
		}
	}
	return referenced
}
