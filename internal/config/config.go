// Package config holds the argfeat configuration: defaults, YAML file and
// ARGFEAT_* environment overrides, loaded with koanf.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/japaniel/argfeat/pkg/feature"
)

// Config is the full configuration tree.
type Config struct {
	// Language is the ISO code of the processed texts. It replaces "{}" in
	// every path below.
	Language  string          `koanf:"language"`
	Log       LogConfig       `koanf:"log"`
	Lexicon   LexiconConfig   `koanf:"lexicon"`
	Stopwords StopwordsConfig `koanf:"stopwords"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Extract   ExtractConfig   `koanf:"extract"`
	Store     StoreConfig     `koanf:"store"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Annotator AnnotatorConfig `koanf:"annotator"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "console" or "json"
}

// LexiconConfig locates the linker CSV and filters its entries.
type LexiconConfig struct {
	Path    string   `koanf:"path"`
	Valid   []string `koanf:"valid"`
	Invalid []string `koanf:"invalid"`
}

// StopwordsConfig extends the built-in stopword list of the language.
type StopwordsConfig struct {
	Extra []string `koanf:"extra"`
}

// DatasetConfig locates the proposition CSV, the feature JSON output and
// the argument labels.
type DatasetConfig struct {
	Path            string `koanf:"path"`
	FeaturesPath    string `koanf:"features_path"`
	AnnotationsPath string `koanf:"annotations_path"`
	// Create rebuilds the proposition CSV from the proposal store.
	Create bool `koanf:"create"`
}

// ExtractConfig controls a batch run.
type ExtractConfig struct {
	Mode      string        `koanf:"mode"`
	Workers   int           `koanf:"workers"`
	Timeout   time.Duration `koanf:"timeout"`
	BatchSize int           `koanf:"batch_size"`
}

// StoreConfig configures persistence. DSN is the sqlite feature store;
// empty disables it. Driver and ProposalsDSN select the proposal source.
type StoreConfig struct {
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	ProposalsDSN string `koanf:"proposals_dsn"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// AnnotatorConfig selects the NLP backend.
type AnnotatorConfig struct {
	Kind string `koanf:"kind"` // "simple", "kagome" or "precomputed"
	Path string `koanf:"path"` // JSON-lines file for "precomputed"
}

const maxWorkers = 256

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Language: "es",
		Log:      LogConfig{Level: "info", Format: "console"},
		Lexicon:  LexiconConfig{Path: "lexicon/lexicon_{}.csv"},
		Dataset: DatasetConfig{
			Path:         "dataset/propositions_{}.csv",
			FeaturesPath: "dataset/features_{}.json",
		},
		Extract: ExtractConfig{
			Mode:      string(feature.ModeDetection),
			Workers:   min(runtime.NumCPU(), maxWorkers),
			Timeout:   30 * time.Second,
			BatchSize: 50,
		},
		Store:     StoreConfig{Driver: "mysql"},
		Annotator: AnnotatorConfig{Kind: "simple"},
	}
}

// LangPath substitutes the configured language into p.
func (c *Config) LangPath(p string) string {
	return strings.ReplaceAll(p, "{}", c.Language)
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Language) == "" {
		errs = append(errs, errors.New("language is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if _, err := feature.ParseMode(c.Extract.Mode); err != nil {
		errs = append(errs, fmt.Errorf("extract.mode: %w", err))
	}
	if c.Extract.Workers < 1 || c.Extract.Workers > maxWorkers {
		errs = append(errs, fmt.Errorf("extract.workers must be between 1 and %d, got %d", maxWorkers, c.Extract.Workers))
	}
	if c.Extract.Timeout < 0 {
		errs = append(errs, fmt.Errorf("extract.timeout must not be negative, got %s", c.Extract.Timeout))
	}
	if c.Extract.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("extract.batch_size must be positive, got %d", c.Extract.BatchSize))
	}
	if c.Store.Driver != "mysql" && c.Store.Driver != "sqlite3" {
		errs = append(errs, fmt.Errorf("store.driver %q must be mysql or sqlite3", c.Store.Driver))
	}
	switch c.Annotator.Kind {
	case "simple", "kagome":
	case "precomputed":
		if c.Annotator.Path == "" {
			errs = append(errs, errors.New("annotator.path is required for the precomputed annotator"))
		}
	default:
		errs = append(errs, fmt.Errorf("annotator.kind %q must be simple, kagome or precomputed", c.Annotator.Kind))
	}
	return errors.Join(errs...)
}
