package main

import (
	"errors"
	"io/fs"
	"slices"
	"strings"

	"github.com/23skdu/annreports/internal/engine"
	"github.com/23skdu/annreports/internal/harness"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every configuration variable, e.g. ANNBENCH_MAX_SHARDS.
const EnvPrefix = "ANNBENCH"

// Config is the process configuration, read from the environment.
type Config struct {
	DataDir    string   `envconfig:"DATA_DIR" default:"data"`
	ReportsDir string   `envconfig:"REPORTS_DIR" default:"reports"`
	Datasets   []string `envconfig:"DATASETS" default:"random-10000-32:euclidean,random-10000-32:cosine"`
	MaxShards  int      `envconfig:"MAX_SHARDS" default:"8"`
	KValues    []int    `envconfig:"K_VALUES" default:"1,10,100"`
	Workers    int      `envconfig:"WORKERS" default:"0"` // 0 means GOMAXPROCS
	Seed       int64    `envconfig:"SEED" default:"42"`
	EfSearch   int      `envconfig:"EF_SEARCH" default:"0"` // 0 keeps the graph default
	Recall     bool     `envconfig:"RECALL" default:"true"`

	// Algorithm names as in engine.Algorithm; rnn sweeps need Linear first
	// in the knn list.
	KnnAlgorithms []string `envconfig:"KNN_ALGORITHMS" default:"Linear,HNSW,HNSWOversample"`
	RnnAlgorithms []string `envconfig:"RNN_ALGORITHMS" default:"Linear,HNSWExpand"`

	// QueryFraction sets synthetic query counts to cardinality/QueryFraction
	QueryFraction int `envconfig:"QUERY_FRACTION" default:"100"`

	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""` // empty disables /metrics
}

// Config validation errors
var (
	ErrInvalidReportsDir = errors.New("reports_dir cannot be empty")
	ErrInvalidDataDir    = errors.New("data_dir cannot be empty")
	ErrNoDatasets        = errors.New("datasets cannot be empty")
	ErrInvalidDataset    = errors.New("datasets entries must have the form name:metric")
	ErrInvalidMaxShards  = errors.New("max_shards must be positive")
	ErrNoKValues         = errors.New("k_values cannot be empty")
	ErrInvalidK          = errors.New("k_values must be positive")
	ErrInvalidWorkers    = errors.New("workers cannot be negative")
	ErrInvalidAlgorithm  = errors.New("knn_algorithms and rnn_algorithms must name known algorithms")
	ErrInvalidPlan       = errors.New("algorithms do not form a runnable plan")
	ErrInvalidLogFormat  = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel   = errors.New("log_level must be debug, info, warn, or error")
)

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		DataDir:       "data",
		ReportsDir:    "reports",
		Datasets:      []string{"random-10000-32:euclidean", "random-10000-32:cosine"},
		MaxShards:     8,
		KValues:       []int{1, 10, 100},
		Seed:          42,
		Recall:        true,
		KnnAlgorithms: []string{"Linear", "HNSW", "HNSWOversample"},
		RnnAlgorithms: []string{"Linear", "HNSWExpand"},
		QueryFraction: 100,
		LogFormat:     "json",
		LogLevel:      "info",
	}
}

// LoadConfig applies envFile, when it exists, to the environment and then
// reads the configuration. Variables already set win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.ReportsDir == "" {
		return ErrInvalidReportsDir
	}
	if cfg.DataDir == "" {
		return ErrInvalidDataDir
	}
	if len(cfg.Datasets) == 0 {
		return ErrNoDatasets
	}
	if _, err := harness.ParseDatasetSpecs(cfg.Datasets); err != nil {
		return ErrInvalidDataset
	}
	if cfg.MaxShards <= 0 {
		return ErrInvalidMaxShards
	}
	if len(cfg.KValues) == 0 {
		return ErrNoKValues
	}
	if slices.Min(cfg.KValues) <= 0 {
		return ErrInvalidK
	}
	if cfg.Workers < 0 {
		return ErrInvalidWorkers
	}
	plan, err := cfg.Plan()
	if err != nil {
		return ErrInvalidAlgorithm
	}
	if err := plan.Validate(); err != nil {
		return ErrInvalidPlan
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return nil
}

// Plan derives the sweep grid from the configuration.
func (c *Config) Plan() (harness.Plan, error) {
	knn, err := parseAlgorithms(c.KnnAlgorithms)
	if err != nil {
		return harness.Plan{}, err
	}
	rnn, err := parseAlgorithms(c.RnnAlgorithms)
	if err != nil {
		return harness.Plan{}, err
	}

	p := harness.DefaultPlan()
	p.MaxShards = c.MaxShards
	p.KValues = slices.Clone(c.KValues)
	p.Recall = c.Recall
	p.Seed = c.Seed
	p.EfSearch = c.EfSearch
	p.KnnAlgorithms = knn
	p.RnnAlgorithms = rnn
	return p, nil
}

func parseAlgorithms(names []string) ([]engine.Algorithm, error) {
	out := make([]engine.Algorithm, 0, len(names))
	for _, name := range names {
		a, err := engine.ParseAlgorithm(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
