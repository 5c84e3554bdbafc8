package index

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

const SEGMENTS_FORMAT = 0

// Generation discovery budgets.
const (
	GEN_FILE_RETRY_COUNT  = 10
	GEN_FILE_RETRY_PAUSE  = 50 * time.Millisecond
	GEN_LOOKAHEAD_COUNT   = 10
	SAME_GEN_RETRY_PAUSE  = 50 * time.Millisecond
	SEGMENTS_GEN_FILENAME = util.SEGMENTS_GEN_FILE
)

/*
SegmentInfos is one generation of an index: the ordered segments, the
FieldInfos they share, the counter used to name new segments and a
version bumped on every commit. It is persisted as segments_<gen36>.
*/
type SegmentInfos struct {
	Fis        *model.FieldInfos
	Counter    int64
	Version    int64
	Generation int64
	Format     int32
	Segments   []*SegmentInfo

	dir store.Directory
}

func NewSegmentInfos(fis *model.FieldInfos, dir store.Directory) *SegmentInfos {
	return &SegmentInfos{
		Fis:        fis,
		Version:    time.Now().Unix(),
		Generation: -1,
		Format:     SEGMENTS_FORMAT,
		dir:        dir,
	}
}

// NewSegmentName reserves the next segment name, "_<counter36>".
func (sis *SegmentInfos) NewSegmentName() string {
	name := "_" + util.FormatBase36(sis.Counter)
	sis.Counter++
	return name
}

func (sis *SegmentInfos) Size() int {
	return len(sis.Segments)
}

func (sis *SegmentInfos) Add(si *SegmentInfo) {
	sis.Segments = append(sis.Segments, si)
}

func (sis *SegmentInfos) DelAt(at int) {
	sis.DelFromTo(at, at+1)
}

// DelFromTo removes the segments in [from, to).
func (sis *SegmentInfos) DelFromTo(from, to int) {
	assert2(from >= 0 && from <= to && to <= len(sis.Segments),
		"illegal segment range [%v, %v) of %v", from, to, len(sis.Segments))
	sis.Segments = append(sis.Segments[:from], sis.Segments[to:]...)
}

func (sis *SegmentInfos) Clear() {
	sis.Segments = nil
}

// DocCount sums the document counts, deleted documents included.
func (sis *SegmentInfos) DocCount() int {
	n := 0
	for _, si := range sis.Segments {
		n += si.DocCount
	}
	return n
}

func (sis *SegmentInfos) HasSegment(name string) bool {
	for _, si := range sis.Segments {
		if si.Name == name {
			return true
		}
	}
	return false
}

// Clone deep-copies the segment list. FieldInfos are shared.
func (sis *SegmentInfos) Clone() *SegmentInfos {
	clone := *sis
	clone.Segments = make([]*SegmentInfo, len(sis.Segments))
	for i, si := range sis.Segments {
		clone.Segments[i] = si.Clone()
	}
	return &clone
}

func (sis *SegmentInfos) SegmentsFileName() string {
	if sis.Generation < 0 {
		return ""
	}
	return util.SegmentsFileName(sis.Generation)
}

/*
Write publishes the next generation: segments_N first, then the
segments pointer file. Failing to write the pointer file is not
fatal, discovery falls back to the directory listing. The previous
segments file is handed to deleter, which may be nil.
*/
func (sis *SegmentInfos) Write(dir store.Directory, deleter *Deleter) (err error) {
	sis.Generation++
	fileName := util.SegmentsFileName(sis.Generation)
	out, err := dir.CreateOutput(fileName, store.IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	var success = false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(out)
			dir.DeleteFile(fileName) // ignore error
		}
	}()

	sis.Version++
	if err = out.WriteInt(int32(sis.Format)); err != nil {
		return err
	}
	if err = out.WriteLong(sis.Version); err != nil {
		return err
	}
	if err = out.WriteLong(sis.Counter); err != nil {
		return err
	}
	if err = out.WriteVInt(int32(len(sis.Segments))); err != nil {
		return err
	}
	for _, si := range sis.Segments {
		if err = si.Write(out); err != nil {
			return err
		}
	}
	if err = sis.Fis.Write(out); err != nil {
		return err
	}
	success = true
	if err = out.Close(); err != nil {
		dir.DeleteFile(fileName) // ignore error
		return err
	}
	sis.dir = dir
	log.Debugf("wrote %v (version %v, %v segments)", fileName, sis.Version, len(sis.Segments))

	if err := writeSegmentsGen(dir, sis.Generation); err != nil {
		log.Warningf("unable to write %v: %v", SEGMENTS_GEN_FILENAME, err)
	}
	if deleter != nil && sis.Generation > 0 {
		deleter.DeleteFile(util.SegmentsFileName(sis.Generation - 1))
	}
	return nil
}

func writeSegmentsGen(dir store.Directory, gen int64) (err error) {
	out, err := dir.CreateOutput(SEGMENTS_GEN_FILENAME, store.IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()
	if err = out.WriteLong(gen); err == nil {
		err = out.WriteLong(gen)
	}
	return err
}

/*
ReadSegmentInfos loads the current generation of the index in dir,
retrying as described by findSegmentsFile.
*/
func ReadSegmentInfos(dir store.Directory) (sis *SegmentInfos, err error) {
	err = findSegmentsFile(dir, func(fileName string) (err error) {
		sis, err = readSegmentInfosFile(dir, fileName)
		return err
	})
	return sis, err
}

func readSegmentInfosFile(dir store.Directory, fileName string) (sis *SegmentInfos, err error) {
	in, err := dir.OpenInput(fileName, store.IO_CONTEXT_READ)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()

	sis = &SegmentInfos{
		Generation: util.GenerationFromSegmentsFileName(fileName),
		dir:        dir,
	}
	if sis.Format, err = in.ReadInt(); err != nil {
		return nil, err
	}
	if sis.Format != SEGMENTS_FORMAT {
		return nil, util.CorruptError("%v: unknown format %v", fileName, sis.Format)
	}
	if sis.Version, err = in.ReadLong(); err != nil {
		return nil, err
	}
	if sis.Counter, err = in.ReadLong(); err != nil {
		return nil, err
	}
	count, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, util.CorruptError("%v: negative segment count %v", fileName, count)
	}
	for i := int32(0); i < count; i++ {
		si, err := ReadSegmentInfo(in, dir)
		if err != nil {
			return nil, err
		}
		sis.Segments = append(sis.Segments, si)
	}
	if sis.Fis, err = model.ReadFieldInfos(in); err != nil {
		return nil, err
	}
	return sis, nil
}

// ReadCurrentVersion reads only the version of the current generation.
func ReadCurrentVersion(dir store.Directory) (version int64, err error) {
	err = findSegmentsFile(dir, func(fileName string) error {
		in, err := dir.OpenInput(fileName, store.IO_CONTEXT_READ)
		if err != nil {
			return err
		}
		defer in.Close()
		format, err := in.ReadInt()
		if err != nil {
			return err
		}
		if format != SEGMENTS_FORMAT {
			return util.CorruptError("%v: unknown format %v", fileName, format)
		}
		version, err = in.ReadLong()
		return err
	})
	return version, err
}

// LastCommitGeneration is the highest segments_N generation among files, or -1.
func LastCommitGeneration(files []string) int64 {
	max := int64(-1)
	for _, file := range files {
		if gen := util.GenerationFromSegmentsFileName(file); gen > max {
			max = gen
		}
	}
	return max
}

func CurrentSegmentGeneration(dir store.Directory) (int64, error) {
	files, err := dir.ListAll()
	if err != nil {
		return -1, err
	}
	return LastCommitGeneration(files), nil
}

// Generation discovery methods, tried in order.
type findMethod int

const (
	FIND_BY_LISTING findMethod = iota
	FIND_BY_GEN_FILE
	FIND_BY_LOOKAHEAD
)

func (m findMethod) String() string {
	switch m {
	case FIND_BY_LISTING:
		return "listing"
	case FIND_BY_GEN_FILE:
		return "gen file"
	default:
		return "lookahead"
	}
}

/*
segmentsFinder locates the current segments_N. A failed read most
likely means a commit was in progress, so the same generation may be
tried exactly twice before the finder demands progress. When the
directory listing looks stale it falls back to the pointer file, and
when that looks stale too it probes the next generations blindly.
*/
type segmentsFinder struct {
	dir       store.Directory
	method    findMethod
	gen       int64
	lastGen   int64
	retry     bool
	lookahead int
	firstErr  error
	sleep     func(time.Duration)
}

func findSegmentsFile(dir store.Directory, run func(fileName string) error) error {
	f := &segmentsFinder{dir: dir, gen: -1, lastGen: -1, sleep: time.Sleep}
	return f.find(run)
}

func (f *segmentsFinder) find(run func(fileName string) error) error {
	for {
		if err := f.nextGeneration(); err != nil {
			return err
		}
		fileName := util.SegmentsFileName(f.gen)
		err := run(fileName)
		if err == nil {
			return nil
		}
		if !util.IsReadRetryable(err) {
			return err
		}
		if f.firstErr == nil {
			f.firstErr = err
		}
		log.Debugf("failed reading %v (method %v, retry %v): %v", fileName, f.method, f.retry, err)

		// first attempt at this generation: a segments_(N-1) may still be there
		if !f.retry && f.gen > 1 {
			prev := util.SegmentsFileName(f.gen - 1)
			if f.dir.FileExists(prev) {
				err = run(prev)
				if err == nil {
					return nil
				}
				if !util.IsReadRetryable(err) {
					return err
				}
				log.Debugf("failed reading fallback %v: %v", prev, err)
			}
		}
	}
}

// nextGeneration moves the state machine to the generation to try next.
func (f *segmentsFinder) nextGeneration() error {
	if f.method == FIND_BY_LISTING {
		gen, err := CurrentSegmentGeneration(f.dir)
		if err != nil {
			return err
		}
		if gen == -1 {
			return util.FileNotFoundError("no segments file found in %v", f.dir)
		}
		f.gen = gen
		if f.lastGen == f.gen && f.retry {
			f.method = FIND_BY_GEN_FILE
		}
	}

	if f.method == FIND_BY_GEN_FILE {
		f.readGenFile()
		if f.lastGen == f.gen && f.retry {
			f.method = FIND_BY_LOOKAHEAD
		}
	}

	if f.method == FIND_BY_LOOKAHEAD {
		if f.lookahead >= GEN_LOOKAHEAD_COUNT {
			if f.firstErr != nil {
				return f.firstErr
			}
			return util.IOError("unable to find a readable segments file in %v", f.dir)
		}
		f.gen++
		f.lookahead++
		log.Debugf("look ahead increment gen to %v", f.gen)
	}

	if f.lastGen == f.gen {
		// the same segments_N once more: allowed once, since a writer
		// may have been halfway through it last time
		if f.retry {
			return util.IOError("error reading %v: %v", util.SegmentsFileName(f.gen), f.firstErr)
		}
		f.sleep(SAME_GEN_RETRY_PAUSE)
		f.retry = true
	} else {
		f.retry = false
	}
	f.lastGen = f.gen
	return nil
}

/*
readGenFile takes the generation from the pointer file when both of
its copies agree and it is ahead of what we have. A missing or
inconsistent pointer file is not an error.
*/
func (f *segmentsFinder) readGenFile() {
	for i := 0; i < GEN_FILE_RETRY_COUNT; i++ {
		gen0, gen1, err := readSegmentsGen(f.dir)
		if err == nil {
			log.Debugf("fallback check: %v; %v", gen0, gen1)
			if gen0 == gen1 && gen0 > f.gen {
				f.gen = gen0
			}
			return
		}
		f.sleep(GEN_FILE_RETRY_PAUSE)
	}
}

func readSegmentsGen(dir store.Directory) (gen0, gen1 int64, err error) {
	in, err := dir.OpenInput(SEGMENTS_GEN_FILENAME, store.IO_CONTEXT_READ)
	if err != nil {
		return -1, -1, err
	}
	defer in.Close()
	if gen0, err = in.ReadLong(); err != nil {
		return -1, -1, err
	}
	if gen1, err = in.ReadLong(); err != nil {
		return -1, -1, err
	}
	return gen0, gen1, nil
}

func (sis *SegmentInfos) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%v (version %v, counter %v):", sis.SegmentsFileName(), sis.Version, sis.Counter)
	for _, si := range sis.Segments {
		fmt.Fprintf(&buf, " %v", si)
	}
	return buf.String()
}
