package index

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ironsweet/goferret/core/analysis"
	"github.com/ironsweet/goferret/core/index/model"
	"github.com/ironsweet/goferret/core/util"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_CHUNK_SIZE         = 0x100000
	DEFAULT_MAX_BUFFER_MEMORY  = 0x1000000
	DEFAULT_INDEX_INTERVAL     = 128
	DEFAULT_SKIP_INTERVAL      = 16
	DEFAULT_MERGE_FACTOR       = 10
	DEFAULT_MAX_BUFFERED_DOCS  = 10000
	DEFAULT_MAX_MERGE_DOCS     = math.MaxInt32
	DEFAULT_MAX_FIELD_LENGTH   = 10000
	DEFAULT_USE_COMPOUND_FILE  = true
	DEFAULT_WRITE_LOCK_TIMEOUT = time.Second
)

/*
Config holds the settings of an IndexWriter and of readers opened for
modification. Zero values are not meaningful; start from
DefaultConfig() or LoadConfig().
*/
type Config struct {
	ChunkSize        int           `yaml:"chunk_size"`
	MaxBufferMemory  int           `yaml:"max_buffer_memory"`
	IndexInterval    int           `yaml:"index_interval"`
	SkipInterval     int           `yaml:"skip_interval"`
	MergeFactor      int           `yaml:"merge_factor"`
	MaxBufferedDocs  int           `yaml:"max_buffered_docs"`
	MaxMergeDocs     int           `yaml:"max_merge_docs"`
	MaxFieldLength   int           `yaml:"max_field_length"`
	UseCompoundFile  bool          `yaml:"use_compound_file"`
	WriteLockTimeout time.Duration `yaml:"write_lock_timeout"`

	// Defaults for fields first seen while adding documents.
	Store      string `yaml:"store"`
	Index      string `yaml:"index"`
	TermVector string `yaml:"term_vector"`

	AnalyzerName string `yaml:"analyzer"`

	// Create wipes any existing index when the writer opens.
	Create bool `yaml:"create"`

	// Not loaded from YAML.
	Analyzer analysis.Analyzer `yaml:"-"`
	Metrics  *Metrics          `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		ChunkSize:        DEFAULT_CHUNK_SIZE,
		MaxBufferMemory:  DEFAULT_MAX_BUFFER_MEMORY,
		IndexInterval:    DEFAULT_INDEX_INTERVAL,
		SkipInterval:     DEFAULT_SKIP_INTERVAL,
		MergeFactor:      DEFAULT_MERGE_FACTOR,
		MaxBufferedDocs:  DEFAULT_MAX_BUFFERED_DOCS,
		MaxMergeDocs:     DEFAULT_MAX_MERGE_DOCS,
		MaxFieldLength:   DEFAULT_MAX_FIELD_LENGTH,
		UseCompoundFile:  DEFAULT_USE_COMPOUND_FILE,
		WriteLockTimeout: DEFAULT_WRITE_LOCK_TIMEOUT,
		Store:            "yes",
		Index:            "yes",
		TermVector:       "with_positions_offsets",
	}
}

/*
LoadConfig reads a YAML file over DefaultConfig(), so keys missing
from the file keep their default, and validates the result.
*/
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, util.FileNotFoundError("config %v: %v", path, err)
		}
		return nil, util.IOError("config %v: %v", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	conf := DefaultConfig()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, util.ArgError("invalid config: %v", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"chunk_size", conf.ChunkSize},
		{"max_buffer_memory", conf.MaxBufferMemory},
		{"index_interval", conf.IndexInterval},
		{"skip_interval", conf.SkipInterval},
		{"max_buffered_docs", conf.MaxBufferedDocs},
		{"max_merge_docs", conf.MaxMergeDocs},
		{"max_field_length", conf.MaxFieldLength},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return util.ArgError("%v must be greater than 0 (got %v)", p.name, p.value)
		}
	}
	if conf.MergeFactor < 2 {
		return util.ArgError("merge_factor must be at least 2 (got %v)", conf.MergeFactor)
	}
	if conf.WriteLockTimeout < 0 {
		return util.ArgError("write_lock_timeout must not be negative (got %v)", conf.WriteLockTimeout)
	}
	if _, err := conf.DefaultFieldInfos(); err != nil {
		return err
	}
	_, err := conf.analyzer()
	return err
}

// DefaultFieldInfos builds an empty FieldInfos carrying the field defaults.
func (conf *Config) DefaultFieldInfos() (*model.FieldInfos, error) {
	store, err := model.ParseStoreValue(conf.Store)
	if err != nil {
		return nil, err
	}
	index, err := model.ParseIndexValue(conf.Index)
	if err != nil {
		return nil, err
	}
	tv, err := model.ParseTermVectorValue(conf.TermVector)
	if err != nil {
		return nil, err
	}
	return model.NewFieldInfos(store, index, tv)
}

func (conf *Config) analyzer() (analysis.Analyzer, error) {
	if conf.Analyzer != nil {
		return conf.Analyzer, nil
	}
	return analysis.AnalyzerByName(conf.AnalyzerName)
}

func (conf *Config) SetAnalyzer(analyzer analysis.Analyzer) *Config {
	conf.Analyzer = analyzer
	return conf
}

func (conf *Config) SetMaxBufferedDocs(maxBufferedDocs int) *Config {
	conf.MaxBufferedDocs = maxBufferedDocs
	return conf
}

func (conf *Config) SetMergeFactor(mergeFactor int) *Config {
	conf.MergeFactor = mergeFactor
	return conf
}

func (conf *Config) SetUseCompoundFile(useCompoundFile bool) *Config {
	conf.UseCompoundFile = useCompoundFile
	return conf
}

func (conf *Config) SetCreate(create bool) *Config {
	conf.Create = create
	return conf
}

func (conf *Config) SetMetrics(metrics *Metrics) *Config {
	conf.Metrics = metrics
	return conf
}

func (conf *Config) Clone() *Config {
	clone := *conf
	return &clone
}

func (conf *Config) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "chunk_size=%v\n", conf.ChunkSize)
	fmt.Fprintf(&buf, "max_buffer_memory=%v\n", conf.MaxBufferMemory)
	fmt.Fprintf(&buf, "index_interval=%v\n", conf.IndexInterval)
	fmt.Fprintf(&buf, "skip_interval=%v\n", conf.SkipInterval)
	fmt.Fprintf(&buf, "merge_factor=%v\n", conf.MergeFactor)
	fmt.Fprintf(&buf, "max_buffered_docs=%v\n", conf.MaxBufferedDocs)
	fmt.Fprintf(&buf, "max_merge_docs=%v\n", conf.MaxMergeDocs)
	fmt.Fprintf(&buf, "max_field_length=%v\n", conf.MaxFieldLength)
	fmt.Fprintf(&buf, "use_compound_file=%v\n", conf.UseCompoundFile)
	fmt.Fprintf(&buf, "write_lock_timeout=%v\n", conf.WriteLockTimeout)
	return buf.String()
}
