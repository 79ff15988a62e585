package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every knob the pipeline, batch runner and CLI use.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// MoneyTolerance is the monetary reconciliation tolerance, kept as a
	// decimal string so it survives env/yaml round trips losslessly.
	MoneyTolerance string `mapstructure:"money_tolerance"`

	// HeuristicConfidence is the fixed score assigned to heuristic clinical
	// entities. Must stay strictly below Model.ConfidenceFloor so heuristic
	// provenance is always distinguishable by score.
	HeuristicConfidence float64 `mapstructure:"heuristic_confidence"`

	Model  ModelConfig  `mapstructure:"model"`
	Batch  BatchConfig  `mapstructure:"batch"`
	Store  StoreConfig  `mapstructure:"store"`
	Export ExportConfig `mapstructure:"export"`
}

// ModelConfig configures the transformer-model extraction strategy.
type ModelConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Path            string        `mapstructure:"path"`
	LocalFilesOnly  bool          `mapstructure:"local_files_only"`
	ConfidenceFloor float64       `mapstructure:"confidence_floor"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// BatchConfig bounds the batch worker pool.
type BatchConfig struct {
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	PairTimeout time.Duration `mapstructure:"pair_timeout"`
}

// StoreConfig selects and configures the job store.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // "sqlite" | "postgres"
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ExportConfig controls flat-file rendering.
type ExportConfig struct {
	Delimiter     string `mapstructure:"delimiter"`
	DecimalPlaces int    `mapstructure:"decimal_places"`
}

// Load reads configuration from defaults, an optional YAML file and
// RIPSGEN_-prefixed environment variables, in increasing precedence.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("money_tolerance", "1.00")
	v.SetDefault("heuristic_confidence", 0.4)
	v.SetDefault("model.enabled", false)
	v.SetDefault("model.endpoint", "")
	v.SetDefault("model.path", "")
	v.SetDefault("model.local_files_only", false)
	v.SetDefault("model.confidence_floor", 0.5)
	v.SetDefault("model.timeout", 30*time.Second)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.queue_size", 64)
	v.SetDefault("batch.pair_timeout", 3*time.Minute)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:ripsgen.db?mode=rwc")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("export.delimiter", ",")
	v.SetDefault("export.decimal_places", 2)

	v.SetEnvPrefix("RIPSGEN")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Tolerance parses MoneyTolerance. Callers run Validate first, so a bad
// string here falls back to the default rather than failing mid-pipeline.
func (c *Config) Tolerance() decimal.Decimal {
	d, err := decimal.NewFromString(c.MoneyTolerance)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

// Validate rejects nonsensical values before any work starts.
func (c *Config) Validate() error {
	if _, err := decimal.NewFromString(c.MoneyTolerance); err != nil {
		return fmt.Errorf("money_tolerance %q is not a decimal: %w", c.MoneyTolerance, err)
	}
	if c.HeuristicConfidence < 0 || c.HeuristicConfidence > 1 {
		return fmt.Errorf("heuristic_confidence %v out of [0,1]", c.HeuristicConfidence)
	}
	if c.Model.ConfidenceFloor < 0 || c.Model.ConfidenceFloor > 1 {
		return fmt.Errorf("model.confidence_floor %v out of [0,1]", c.Model.ConfidenceFloor)
	}
	if c.HeuristicConfidence >= c.Model.ConfidenceFloor {
		return fmt.Errorf("heuristic_confidence %v must be below model.confidence_floor %v",
			c.HeuristicConfidence, c.Model.ConfidenceFloor)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	if c.Batch.PairTimeout <= 0 {
		return fmt.Errorf("batch.pair_timeout must be positive, got %s", c.Batch.PairTimeout)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, postgres", c.Store.Driver)
	}
	if c.Export.DecimalPlaces < 0 {
		return fmt.Errorf("export.decimal_places must not be negative, got %d", c.Export.DecimalPlaces)
	}
	return nil
}
