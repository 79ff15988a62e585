package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "1.00", cfg.MoneyTolerance)
	assert.True(t, decimal.NewFromInt(1).Equal(cfg.Tolerance()))
	assert.InDelta(t, 0.4, cfg.HeuristicConfidence, 1e-9)
	assert.InDelta(t, 0.5, cfg.Model.ConfidenceFloor, 1e-9)
	assert.False(t, cfg.Model.Enabled)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ",", cfg.Export.Delimiter)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ripsgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
money_tolerance: "5.50"
batch:
  workers: 8
store:
  driver: postgres
  dsn: postgres://localhost/rips
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, decimal.RequireFromString("5.50").Equal(cfg.Tolerance()))
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.MoneyTolerance = "not-a-number"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.HeuristicConfidence = 0.6 // at or above the model floor
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Batch.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Store.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
