package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// Application
	App AppConfig `yaml:"app" json:"app" mapstructure:"app"`

	// In-process tier
	L1 L1Config `yaml:"l1" json:"l1" mapstructure:"l1"`

	// Remote tiers
	Redis  RedisConfig  `yaml:"redis" json:"redis" mapstructure:"redis"`
	Badger BadgerConfig `yaml:"badger" json:"badger" mapstructure:"badger"`

	// Background behavior
	Warming    WarmingConfig    `yaml:"warming" json:"warming" mapstructure:"warming"`
	Analytics  AnalyticsConfig  `yaml:"analytics" json:"analytics" mapstructure:"analytics"`
	Prediction PredictionConfig `yaml:"prediction" json:"prediction" mapstructure:"prediction"`

	// Remote value handling
	Compression CompressionConfig `yaml:"compression" json:"compression" mapstructure:"compression"`
	Breaker     BreakerConfig     `yaml:"breaker" json:"breaker" mapstructure:"breaker"`

	// User Interface
	UI UIConfig `yaml:"ui" json:"ui" mapstructure:"ui"`
}

// AppConfig contains general application settings
type AppConfig struct {
	Name     string `yaml:"name" json:"name" mapstructure:"name"`
	Version  string `yaml:"version" json:"version" mapstructure:"version"`
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file" mapstructure:"log_file"`
	Verbose  bool   `yaml:"verbose" json:"verbose" mapstructure:"verbose"`
}

// L1Config sizes the in-process tier
type L1Config struct {
	MaxEntries int   `yaml:"max_entries" json:"max_entries" mapstructure:"max_entries"`
	MaxBytes   int64 `yaml:"max_bytes" json:"max_bytes" mapstructure:"max_bytes"`
}

// RedisConfig contains the L2 tier connection settings
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Addr         string        `yaml:"addr" json:"addr" mapstructure:"addr"`
	Password     string        `yaml:"password" json:"password" mapstructure:"password"`
	DB           int           `yaml:"db" json:"db" mapstructure:"db"`
	Namespace    string        `yaml:"namespace" json:"namespace" mapstructure:"namespace"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size" mapstructure:"pool_size"`
}

// BadgerConfig contains the L3 tier storage settings
type BadgerConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path       string        `yaml:"path" json:"path" mapstructure:"path"`
	InMemory   bool          `yaml:"in_memory" json:"in_memory" mapstructure:"in_memory"`
	MaxSize    int64         `yaml:"max_size" json:"max_size" mapstructure:"max_size"`
	GCInterval time.Duration `yaml:"gc_interval" json:"gc_interval" mapstructure:"gc_interval"`
}

// WarmingConfig controls the background warming pass
type WarmingConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval" mapstructure:"interval"`
}

// AnalyticsConfig controls the background analytics pass
type AnalyticsConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval" mapstructure:"interval"`
}

// PredictionConfig tunes the access-pattern model
type PredictionConfig struct {
	ModelUpdateInterval time.Duration `yaml:"model_update_interval" json:"model_update_interval" mapstructure:"model_update_interval"`
	PatternRetention    time.Duration `yaml:"pattern_retention" json:"pattern_retention" mapstructure:"pattern_retention"`
	MinDataPoints       int           `yaml:"min_data_points" json:"min_data_points" mapstructure:"min_data_points"`
}

// CompressionConfig controls gzip compression of remote tier values
type CompressionConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   int  `yaml:"level" json:"level" mapstructure:"level"`
}

// BreakerConfig tunes the per-tier circuit breakers
type BreakerConfig struct {
	MaxFailures      int           `yaml:"max_failures" json:"max_failures" mapstructure:"max_failures"`
	Cooldown         time.Duration `yaml:"cooldown" json:"cooldown" mapstructure:"cooldown"`
	SuccessThreshold int           `yaml:"success_threshold" json:"success_threshold" mapstructure:"success_threshold"`
}

// UIConfig contains monitor dashboard settings
type UIConfig struct {
	Theme         string        `yaml:"theme" json:"theme" mapstructure:"theme"`
	RefreshRate   time.Duration `yaml:"refresh_rate" json:"refresh_rate" mapstructure:"refresh_rate"`
	TablePageSize int           `yaml:"table_page_size" json:"table_page_size" mapstructure:"table_page_size"`
	NoColor       bool          `yaml:"no_color" json:"no_color" mapstructure:"no_color"`
}

// ConfigPaths returns the default configuration file paths in order of precedence
func ConfigPaths() []string {
	return []string{
		"./tiercache.yaml",
		"$HOME/.config/tiercache/config.yaml",
		"$HOME/.tiercache/config.yaml",
		"/etc/tiercache/config.yaml",
	}
}

// Version will be set at build time
var Version = "dev"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "tiercache",
			Version:  Version,
			LogLevel: "info",
		},
		L1: L1Config{
			MaxEntries: 1000,
			MaxBytes:   50 * 1024 * 1024, // 50MB
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			Namespace:    "tiercache",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		},
		Badger: BadgerConfig{
			Enabled:    false,
			Path:       "./tiercache-data",
			MaxSize:    256 * 1024 * 1024, // 256MB
			GCInterval: 10 * time.Minute,
		},
		Warming: WarmingConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:  true,
			Interval: 10 * time.Minute,
		},
		Prediction: PredictionConfig{
			ModelUpdateInterval: time.Hour,
			PatternRetention:    7 * 24 * time.Hour,
			MinDataPoints:       10,
		},
		Compression: CompressionConfig{
			Enabled: false,
			Level:   6,
		},
		Breaker: BreakerConfig{
			MaxFailures:      5,
			Cooldown:         30 * time.Second,
			SuccessThreshold: 2,
		},
		UI: UIConfig{
			Theme:         "dark",
			RefreshRate:   time.Second,
			TablePageSize: 10,
		},
	}
}

// DevelopmentConfig returns a configuration optimized for development
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.App.LogLevel = "debug"
	cfg.Badger.InMemory = true
	cfg.UI.RefreshRate = 500 * time.Millisecond
	return cfg
}

// ProductionConfig returns a configuration optimized for production
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.App.LogLevel = "warn"
	cfg.Redis.Enabled = true
	cfg.Badger.Enabled = true
	cfg.Compression.Enabled = true
	return cfg
}
