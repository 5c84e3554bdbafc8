package index

import (
	"strings"

	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
)

// Per-segment file extensions.
const (
	EXT_FREQS          = "frq"
	EXT_PROX           = "prx"
	EXT_FIELDS_INDEX   = "fdx"
	EXT_FIELDS         = "fdt"
	EXT_TERM_FIELDS    = "tfx"
	EXT_TERMS_INDEX    = "tix"
	EXT_TERMS          = "tis"
	EXT_DELETES        = "del"
	EXT_GEN            = "gen"
	EXT_COMPOUND       = "cfs"
	EXT_NORMS          = "f"
	EXT_SEPARATE_NORMS = "s"
)

const (
	WRITE_LOCK_NAME  = "write"
	COMMIT_LOCK_NAME = "commit"
)

// Every extension the engine may create.
var INDEX_EXTENSIONS = []string{
	EXT_FREQS, EXT_PROX, EXT_FIELDS_INDEX, EXT_FIELDS, EXT_TERM_FIELDS,
	EXT_TERMS_INDEX, EXT_TERMS, EXT_DELETES, EXT_GEN, EXT_COMPOUND,
}

// Extensions bundled into a segment's compound file, norms aside.
var COMPOUND_EXTENSIONS = []string{
	EXT_FREQS, EXT_PROX, EXT_FIELDS_INDEX, EXT_FIELDS, EXT_TERM_FIELDS,
	EXT_TERMS_INDEX, EXT_TERMS,
}

var indexExtensionSet = func() map[string]bool {
	m := make(map[string]bool)
	for _, ext := range INDEX_EXTENSIONS {
		m[ext] = true
	}
	return m
}()

var compoundExtensionSet = func() map[string]bool {
	m := make(map[string]bool)
	for _, ext := range COMPOUND_EXTENSIONS {
		m[ext] = true
	}
	return m
}()

// isNormExtension matches "f12" or "s3".
func isNormExtension(ext string, prefix byte) bool {
	if len(ext) < 2 || ext[0] != prefix {
		return false
	}
	for i := 1; i < len(ext); i++ {
		if ext[i] < '0' || ext[i] > '9' {
			return false
		}
	}
	return true
}

/*
IsIndexFile reports whether name looks like a file this engine wrote
into an index directory. Lock files count only when includeLocks is
set.
*/
func IsIndexFile(name string, includeLocks bool) bool {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		ext := name[idx+1:]
		switch {
		case indexExtensionSet[ext]:
			return true
		case isNormExtension(ext, 'f') || isNormExtension(ext, 's'):
			return true
		case includeLocks && ext == "lck":
			return strings.HasPrefix(name, store.LOCK_PREFIX)
		}
		return false
	}
	return strings.HasPrefix(name, util.SEGMENTS)
}

// IsCompoundFile reports whether name belongs inside a .cfs bundle.
func IsCompoundFile(name string) bool {
	ext := util.FileExtension(name)
	return compoundExtensionSet[ext] || isNormExtension(ext, 'f')
}
