package config

import (
	"fmt"
	"strings"
)

// StandardValidator provides standard configuration validation
type StandardValidator struct{}

// NewStandardValidator creates a new standard validator
func NewStandardValidator() *StandardValidator {
	return &StandardValidator{}
}

// Validate validates the entire configuration
func (v *StandardValidator) Validate(cfg *Config) error {
	var errors []string

	if err := v.validateApp(&cfg.App); err != nil {
		errors = append(errors, fmt.Sprintf("app: %v", err))
	}
	if err := v.validateL1(&cfg.L1); err != nil {
		errors = append(errors, fmt.Sprintf("l1: %v", err))
	}
	if err := v.validateRedis(&cfg.Redis); err != nil {
		errors = append(errors, fmt.Sprintf("redis: %v", err))
	}
	if err := v.validateBadger(&cfg.Badger); err != nil {
		errors = append(errors, fmt.Sprintf("badger: %v", err))
	}
	if err := v.validateBehavior(cfg); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (v *StandardValidator) validateApp(app *AppConfig) error {
	if err := ValidateLogLevel(app.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func (v *StandardValidator) validateL1(l1 *L1Config) error {
	var errors []string
	if l1.MaxEntries < 0 {
		errors = append(errors, "max_entries cannot be negative")
	}
	if l1.MaxBytes < 0 {
		errors = append(errors, "max_bytes cannot be negative")
	}
	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

func (v *StandardValidator) validateRedis(redis *RedisConfig) error {
	if !redis.Enabled {
		return nil
	}

	var errors []string
	if redis.Addr == "" {
		errors = append(errors, "addr is required when enabled")
	}
	if redis.DB < 0 || redis.DB > 15 {
		errors = append(errors, "db must be between 0 and 15")
	}
	if redis.PoolSize < 0 {
		errors = append(errors, "pool_size cannot be negative")
	}
	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

func (v *StandardValidator) validateBadger(badger *BadgerConfig) error {
	if !badger.Enabled {
		return nil
	}

	var errors []string
	if badger.Path == "" && !badger.InMemory {
		errors = append(errors, "path is required when enabled and not in-memory")
	}
	if badger.MaxSize < 0 {
		errors = append(errors, "max_size cannot be negative")
	}
	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

func (v *StandardValidator) validateBehavior(cfg *Config) error {
	var errors []string
	if cfg.Warming.Interval < 0 {
		errors = append(errors, "warming: interval cannot be negative")
	}
	if cfg.Analytics.Interval < 0 {
		errors = append(errors, "analytics: interval cannot be negative")
	}
	if cfg.Prediction.MinDataPoints < 0 {
		errors = append(errors, "prediction: min_data_points cannot be negative")
	}
	if cfg.Compression.Enabled && (cfg.Compression.Level < 1 || cfg.Compression.Level > 9) {
		errors = append(errors, "compression: level must be between 1 and 9")
	}
	if err := ValidateTheme(cfg.UI.Theme); err != nil {
		errors = append(errors, fmt.Sprintf("ui: %v", err))
	}
	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// ValidateLogLevel validates a log level string
func ValidateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

// ValidateTheme validates a UI theme name
func ValidateTheme(theme string) error {
	if theme == "" {
		return nil
	}
	switch theme {
	case "dark", "light":
		return nil
	default:
		return fmt.Errorf("invalid theme: %s (must be dark or light)", theme)
	}
}
