package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Source represents a configuration source
type Source interface {
	Name() string
	Load() (*Config, error)
	Priority() int
}

// Validator validates configuration
type Validator interface {
	Validate(cfg *Config) error
}

// Merger merges configurations from multiple sources
type Merger interface {
	Merge(base, override *Config) *Config
}

// Loader loads configuration from multiple sources
type Loader struct {
	sources    []Source
	validators []Validator
	merger     Merger
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		sources:    make([]Source, 0),
		validators: make([]Validator, 0),
		merger:     &DefaultMerger{},
	}
}

// AddSource adds a configuration source
func (l *Loader) AddSource(source Source) {
	l.sources = append(l.sources, source)
}

// AddValidator adds a configuration validator
func (l *Loader) AddValidator(validator Validator) {
	l.validators = append(l.validators, validator)
}

// SetMerger sets the configuration merger
func (l *Loader) SetMerger(merger Merger) {
	l.merger = merger
}

// Load loads configuration with defaults as the base, overlaying each
// source in priority order. Sources that fail to load are skipped.
func (l *Loader) Load() (*Config, error) {
	sort.Slice(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	config := DefaultConfig()
	for _, source := range l.sources {
		cfg, err := source.Load()
		if err != nil {
			continue
		}
		config = l.merger.Merge(config, cfg)
	}

	for _, validator := range l.validators {
		if err := validator.Validate(config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return config, nil
}

// FileSource loads configuration from a YAML, JSON or TOML file
type FileSource struct {
	path string
}

// NewFileSource creates a new file configuration source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source name
func (f *FileSource) Name() string {
	return fmt.Sprintf("file:%s", f.path)
}

// Priority returns the source priority (lower loads first)
func (f *FileSource) Priority() int {
	return 100
}

// Load loads configuration from the file
func (f *FileSource) Load() (*Config, error) {
	expandedPath := expandPath(f.path)

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", expandedPath)
	}

	v := viper.New()
	v.SetConfigFile(expandedPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", expandedPath, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config from %s: %w", expandedPath, err)
	}

	return &config, nil
}

// FirstConfigFile returns the first existing path from ConfigPaths, or
// empty when none exists
func FirstConfigFile() string {
	for _, path := range ConfigPaths() {
		expanded := expandPath(strings.ReplaceAll(path, "$HOME", homeDir()))
		if _, err := os.Stat(expanded); err == nil {
			return expanded
		}
	}
	return ""
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// EnvSource loads configuration from environment variables
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new environment variable configuration source.
// Variables are named PREFIX_SECTION_FIELD, e.g. TIERCACHE_REDIS_ADDR.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

// Name returns the source name
func (e *EnvSource) Name() string {
	return fmt.Sprintf("env:%s", e.prefix)
}

// Priority returns the source priority (lower loads first)
func (e *EnvSource) Priority() int {
	return 200
}

// Load loads configuration from environment variables
func (e *EnvSource) Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(e.prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	e.setAllKeys(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config from environment: %w", err)
	}

	return &config, nil
}

// setAllKeys registers every configuration key so AutomaticEnv can see it
func (e *EnvSource) setAllKeys(v *viper.Viper) {
	v.SetDefault("app.name", "")
	v.SetDefault("app.version", "")
	v.SetDefault("app.log_level", "")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.verbose", false)

	v.SetDefault("l1.max_entries", 0)
	v.SetDefault("l1.max_bytes", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.namespace", "")
	v.SetDefault("redis.dial_timeout", "0s")
	v.SetDefault("redis.read_timeout", "0s")
	v.SetDefault("redis.write_timeout", "0s")
	v.SetDefault("redis.pool_size", 0)

	v.SetDefault("badger.enabled", false)
	v.SetDefault("badger.path", "")
	v.SetDefault("badger.in_memory", false)
	v.SetDefault("badger.max_size", 0)
	v.SetDefault("badger.gc_interval", "0s")

	v.SetDefault("warming.enabled", false)
	v.SetDefault("warming.interval", "0s")
	v.SetDefault("analytics.enabled", false)
	v.SetDefault("analytics.interval", "0s")

	v.SetDefault("prediction.model_update_interval", "0s")
	v.SetDefault("prediction.pattern_retention", "0s")
	v.SetDefault("prediction.min_data_points", 0)

	v.SetDefault("compression.enabled", false)
	v.SetDefault("compression.level", 0)

	v.SetDefault("breaker.max_failures", 0)
	v.SetDefault("breaker.cooldown", "0s")
	v.SetDefault("breaker.success_threshold", 0)

	v.SetDefault("ui.theme", "")
	v.SetDefault("ui.refresh_rate", "0s")
	v.SetDefault("ui.table_page_size", 0)
	v.SetDefault("ui.no_color", false)
}

// FlagSource loads configuration from command-line flags
type FlagSource struct {
	flags *pflag.FlagSet
}

// NewFlagSource creates a new flag configuration source
func NewFlagSource(flags *pflag.FlagSet) *FlagSource {
	return &FlagSource{flags: flags}
}

// Name returns the source name
func (f *FlagSource) Name() string {
	return "flags"
}

// Priority returns the source priority (lower loads first)
func (f *FlagSource) Priority() int {
	return 300
}

// Load loads configuration from command-line flags that were set
func (f *FlagSource) Load() (*Config, error) {
	config := &Config{}

	f.flags.VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			return
		}

		switch flag.Name {
		case "log-level":
			if val, err := f.flags.GetString("log-level"); err == nil {
				config.App.LogLevel = val
			}
		case "verbose":
			if val, err := f.flags.GetBool("verbose"); err == nil {
				config.App.Verbose = val
			}
		case "redis-addr":
			if val, err := f.flags.GetString("redis-addr"); err == nil {
				config.Redis.Addr = val
				config.Redis.Enabled = true
			}
		case "badger-path":
			if val, err := f.flags.GetString("badger-path"); err == nil {
				config.Badger.Path = val
				config.Badger.Enabled = true
			}
		case "no-color":
			if val, err := f.flags.GetBool("no-color"); err == nil {
				config.UI.NoColor = val
			}
		}
	})

	return config, nil
}

// DefaultMerger is the default configuration merger
type DefaultMerger struct{}

// Merge merges two configurations, with override taking precedence for
// every non-zero field
func (m *DefaultMerger) Merge(base, override *Config) *Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := *base

	if override.App.Name != "" {
		result.App.Name = override.App.Name
	}
	if override.App.Version != "" {
		result.App.Version = override.App.Version
	}
	if override.App.LogLevel != "" {
		result.App.LogLevel = override.App.LogLevel
	}
	if override.App.LogFile != "" {
		result.App.LogFile = override.App.LogFile
	}
	if override.App.Verbose {
		result.App.Verbose = true
	}

	if override.L1.MaxEntries != 0 {
		result.L1.MaxEntries = override.L1.MaxEntries
	}
	if override.L1.MaxBytes != 0 {
		result.L1.MaxBytes = override.L1.MaxBytes
	}

	if override.Redis.Enabled {
		result.Redis.Enabled = true
	}
	if override.Redis.Addr != "" {
		result.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Password != "" {
		result.Redis.Password = override.Redis.Password
	}
	if override.Redis.DB != 0 {
		result.Redis.DB = override.Redis.DB
	}
	if override.Redis.Namespace != "" {
		result.Redis.Namespace = override.Redis.Namespace
	}
	if override.Redis.DialTimeout != 0 {
		result.Redis.DialTimeout = override.Redis.DialTimeout
	}
	if override.Redis.ReadTimeout != 0 {
		result.Redis.ReadTimeout = override.Redis.ReadTimeout
	}
	if override.Redis.WriteTimeout != 0 {
		result.Redis.WriteTimeout = override.Redis.WriteTimeout
	}
	if override.Redis.PoolSize != 0 {
		result.Redis.PoolSize = override.Redis.PoolSize
	}

	if override.Badger.Enabled {
		result.Badger.Enabled = true
	}
	if override.Badger.Path != "" {
		result.Badger.Path = override.Badger.Path
	}
	if override.Badger.InMemory {
		result.Badger.InMemory = true
	}
	if override.Badger.MaxSize != 0 {
		result.Badger.MaxSize = override.Badger.MaxSize
	}
	if override.Badger.GCInterval != 0 {
		result.Badger.GCInterval = override.Badger.GCInterval
	}

	if override.Warming.Enabled {
		result.Warming.Enabled = true
	}
	if override.Warming.Interval != 0 {
		result.Warming.Interval = override.Warming.Interval
	}
	if override.Analytics.Enabled {
		result.Analytics.Enabled = true
	}
	if override.Analytics.Interval != 0 {
		result.Analytics.Interval = override.Analytics.Interval
	}

	if override.Prediction.ModelUpdateInterval != 0 {
		result.Prediction.ModelUpdateInterval = override.Prediction.ModelUpdateInterval
	}
	if override.Prediction.PatternRetention != 0 {
		result.Prediction.PatternRetention = override.Prediction.PatternRetention
	}
	if override.Prediction.MinDataPoints != 0 {
		result.Prediction.MinDataPoints = override.Prediction.MinDataPoints
	}

	if override.Compression.Enabled {
		result.Compression.Enabled = true
	}
	if override.Compression.Level != 0 {
		result.Compression.Level = override.Compression.Level
	}

	if override.Breaker.MaxFailures != 0 {
		result.Breaker.MaxFailures = override.Breaker.MaxFailures
	}
	if override.Breaker.Cooldown != 0 {
		result.Breaker.Cooldown = override.Breaker.Cooldown
	}
	if override.Breaker.SuccessThreshold != 0 {
		result.Breaker.SuccessThreshold = override.Breaker.SuccessThreshold
	}

	if override.UI.Theme != "" {
		result.UI.Theme = override.UI.Theme
	}
	if override.UI.RefreshRate != 0 {
		result.UI.RefreshRate = override.UI.RefreshRate
	}
	if override.UI.TablePageSize != 0 {
		result.UI.TablePageSize = override.UI.TablePageSize
	}
	if override.UI.NoColor {
		result.UI.NoColor = true
	}

	return &result
}

// expandPath resolves env vars and a leading ~ in a filesystem path
func expandPath(path string) string {
	expanded := os.ExpandEnv(path)
	if strings.HasPrefix(expanded, "~/") {
		expanded = filepath.Join(homeDir(), expanded[2:])
	}
	return expanded
}
