package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsweet/goferret/core/analysis"
	"github.com/ironsweet/goferret/core/store"
	"github.com/ironsweet/goferret/core/util"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(`
merge_factor: 4
max_buffered_docs: 100
use_compound_file: false
write_lock_timeout: 250ms
analyzer: whitespace
term_vector: no
`))
	require.NoError(t, err)
	assert.Equal(t, 4, conf.MergeFactor)
	assert.Equal(t, 100, conf.MaxBufferedDocs)
	assert.False(t, conf.UseCompoundFile)
	assert.Equal(t, 250*time.Millisecond, conf.WriteLockTimeout)
	assert.Equal(t, DEFAULT_SKIP_INTERVAL, conf.SkipInterval, "missing keys keep their default")
	a, err := conf.analyzer()
	require.NoError(t, err)
	assert.IsType(t, &analysis.WhiteSpaceAnalyzer{}, a)
	fis, err := conf.DefaultFieldInfos()
	require.NoError(t, err)
	fi, err := fis.GetOrAddField("body")
	require.NoError(t, err)
	assert.False(t, fi.StoreTermVector())
}

func TestParseConfigInvalid(t *testing.T) {
	for _, data := range []string{
		"merge_factor: 1",
		"skip_interval: 0",
		"analyzer: klingon",
		"index: sometimes",
		"write_lock_timeout: -1s",
		"merge_factor: [",
	} {
		_, err := ParseConfig([]byte(data))
		assert.True(t, errors.Is(err, util.ErrArg), "%v: %v", data, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferret.yml")
	require.NoError(t, os.WriteFile(path, []byte("index_interval: 64\n"), 0644))
	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, conf.IndexInterval)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.Is(err, util.ErrFileNotFound))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	conf := testConfig().SetMetrics(m).SetMaxBufferedDocs(2).SetMergeFactor(2)
	buildIndex(t, store.NewRAMDirectory(), conf, "a", "b", "c", "d")

	assert.Equal(t, 4.0, testutil.ToFloat64(m.DocsAdded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Flushes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Merges))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.MergedDocs))
	assert.Greater(t, testutil.ToFloat64(m.FilesDeleted), 0.0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestLoggingQuietByDefault(t *testing.T) {
	assert.Equal(t, logging.WARNING, logging.GetLevel("index"))
	assert.False(t, log.IsEnabledFor(logging.DEBUG))
}
