package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "tiercache", cfg.App.Name)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 1000, cfg.L1.MaxEntries)
	assert.Equal(t, int64(50*1024*1024), cfg.L1.MaxBytes)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Badger.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Warming.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.Interval)
	assert.Equal(t, 10, cfg.Prediction.MinDataPoints)

	require.NoError(t, NewStandardValidator().Validate(cfg))
}

func TestPresetConfigs(t *testing.T) {
	dev := DevelopmentConfig()
	assert.Equal(t, "debug", dev.App.LogLevel)
	assert.True(t, dev.Badger.InMemory)

	prod := ProductionConfig()
	assert.Equal(t, "warn", prod.App.LogLevel)
	assert.True(t, prod.Redis.Enabled)
	assert.True(t, prod.Badger.Enabled)
	assert.True(t, prod.Compression.Enabled)

	validator := NewStandardValidator()
	require.NoError(t, validator.Validate(dev))
	require.NoError(t, validator.Validate(prod))
}

func TestLoader_FileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiercache.yaml")
	content := `
app:
  log_level: debug
l1:
  max_entries: 500
redis:
  enabled: true
  addr: redis.internal:6379
warming:
  interval: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewLoader()
	loader.AddSource(NewFileSource(path))
	loader.AddValidator(NewStandardValidator())

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 500, cfg.L1.MaxEntries)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Warming.Interval)

	// Untouched fields keep their defaults
	assert.Equal(t, int64(50*1024*1024), cfg.L1.MaxBytes)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.Interval)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	loader := NewLoader()
	loader.AddSource(NewFileSource("/nonexistent/tiercache.yaml"))
	loader.AddValidator(NewStandardValidator())

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.L1.MaxEntries)
}

func TestLoader_EnvSource(t *testing.T) {
	t.Setenv("TIERCACHE_REDIS_ADDR", "env-redis:6379")
	t.Setenv("TIERCACHE_L1_MAX_ENTRIES", "250")

	loader := NewLoader()
	loader.AddSource(NewEnvSource("TIERCACHE"))

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 250, cfg.L1.MaxEntries)
}

func TestDefaultMerger(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	override.App.LogLevel = "error"
	override.L1.MaxEntries = 42
	override.Redis.Enabled = true

	merged := (&DefaultMerger{}).Merge(base, override)

	assert.Equal(t, "error", merged.App.LogLevel)
	assert.Equal(t, 42, merged.L1.MaxEntries)
	assert.True(t, merged.Redis.Enabled)

	// Zero-valued override fields keep the base values
	assert.Equal(t, "tiercache", merged.App.Name)
	assert.Equal(t, int64(50*1024*1024), merged.L1.MaxBytes)
	assert.Equal(t, "localhost:6379", merged.Redis.Addr)
}

func TestDefaultMerger_PropagatesNegativeValues(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	override.L1.MaxEntries = -1
	override.Redis.PoolSize = -5

	// Invalid values must survive the merge so the validator can reject them
	merged := (&DefaultMerger{}).Merge(base, override)
	assert.Equal(t, -1, merged.L1.MaxEntries)
	assert.Equal(t, -5, merged.Redis.PoolSize)
	assert.Error(t, NewStandardValidator().Validate(merged))
}

func TestLoader_RejectsInvalidFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiercache.yaml")
	content := "l1:\n  max_entries: -1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewLoader()
	loader.AddSource(NewFileSource(path))
	loader.AddValidator(NewStandardValidator())

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_entries")
}

func TestDefaultMerger_NilArguments(t *testing.T) {
	m := &DefaultMerger{}
	base := DefaultConfig()

	assert.Equal(t, base, m.Merge(base, nil))
	assert.Equal(t, base, m.Merge(nil, base))
}
