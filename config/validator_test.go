package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "warning", "error", "DEBUG"} {
		assert.NoError(t, ValidateLogLevel(level), "level %q", level)
	}
	assert.Error(t, ValidateLogLevel("verbose"))
}

func TestValidateTheme(t *testing.T) {
	assert.NoError(t, ValidateTheme(""))
	assert.NoError(t, ValidateTheme("dark"))
	assert.NoError(t, ValidateTheme("light"))
	assert.Error(t, ValidateTheme("solarized"))
}

func TestStandardValidator(t *testing.T) {
	v := NewStandardValidator()

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, v.Validate(DefaultConfig()))
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.App.LogLevel = "loud"
		assert.Error(t, v.Validate(cfg))
	})

	t.Run("negative l1 budgets", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.L1.MaxEntries = -1
		assert.Error(t, v.Validate(cfg))
	})

	t.Run("enabled redis without addr", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = ""
		assert.Error(t, v.Validate(cfg))
	})

	t.Run("disabled redis skips checks", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Redis.Addr = ""
		cfg.Redis.DB = 99
		assert.NoError(t, v.Validate(cfg))
	})

	t.Run("enabled badger without path", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Badger.Enabled = true
		cfg.Badger.Path = ""
		assert.Error(t, v.Validate(cfg))
	})

	t.Run("in-memory badger needs no path", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Badger.Enabled = true
		cfg.Badger.Path = ""
		cfg.Badger.InMemory = true
		assert.NoError(t, v.Validate(cfg))
	})

	t.Run("compression level out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Compression.Enabled = true
		cfg.Compression.Level = 11
		assert.Error(t, v.Validate(cfg))
	})
}
