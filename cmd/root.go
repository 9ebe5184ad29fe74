package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penwyp/tiercache/cache"
	"github.com/penwyp/tiercache/config"
	"github.com/penwyp/tiercache/logging"
)

var (
	cfgFile    string
	logLevel   string
	verbose    bool
	noColor    bool
	redisAddr  string
	badgerPath string
)

var rootCmd = &cobra.Command{
	Use:   "tiercache",
	Short: "Multi-tier cache engine",
	Long: `tiercache is a multi-tier caching engine with an in-process LRU tier,
optional Redis and Badger remote tiers, access-pattern tracking,
predictive preloading and cache warming.

Run a subcommand, or run without arguments to open the live monitor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches the standard locations)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the L2 tier (enables it)")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger-path", "", "Badger directory for the L3 tier (enables it)")
}

// newLoader assembles the source chain: defaults, file, environment, flags,
// in that precedence order. Returns the loader and the config file path, if
// any file was found.
func newLoader(cmd *cobra.Command) (*config.Loader, string) {
	loader := config.NewLoader()

	path := cfgFile
	if path == "" {
		path = config.FirstConfigFile()
	}
	if path != "" {
		loader.AddSource(config.NewFileSource(path))
	}
	loader.AddSource(config.NewEnvSource("TIERCACHE"))
	loader.AddSource(config.NewFlagSource(cmd.Flags()))
	loader.AddValidator(config.NewStandardValidator())
	return loader, path
}

// loadConfiguration runs the loader chain once
func loadConfiguration(cmd *cobra.Command) (*config.Config, error) {
	loader, _ := newLoader(cmd)

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.App.Verbose = true
		if cfg.App.LogLevel != "debug" {
			cfg.App.LogLevel = "debug"
		}
	}
	return cfg, nil
}

// setupLogger initializes the global logger from configuration
func setupLogger(cfg *config.Config) (logging.LoggerInterface, error) {
	if err := logging.InitGlobalLogger(cfg.App.LogLevel, cfg.App.LogFile); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logging.GetLogger(), nil
}

// buildEngine creates the remote stores the configuration enables and
// wires them into an engine. The returned cleanup closes the stores.
func buildEngine(cfg *config.Config, logger logging.LoggerInterface) (*cache.Engine, func(), error) {
	var l2, l3 cache.RemoteStore

	if cfg.Redis.Enabled {
		l2 = cache.NewRedisStore(cache.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Namespace:    cfg.Redis.Namespace,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
		})
	}

	if cfg.Badger.Enabled {
		store, err := cache.NewBadgerStore(cache.BadgerConfig{
			DBPath:         cfg.Badger.Path,
			InMemory:       cfg.Badger.InMemory,
			MaxMemoryUsage: cfg.Badger.MaxSize,
			GCInterval:     cfg.Badger.GCInterval,
		}, logger)
		if err != nil {
			if l2 != nil {
				_ = l2.Close()
			}
			return nil, nil, fmt.Errorf("failed to open the L3 tier: %w", err)
		}
		l3 = store
	}

	engineCfg := cache.Config{
		L1MaxEntries:            cfg.L1.MaxEntries,
		L1MaxBytes:              cfg.L1.MaxBytes,
		WarmingInterval:         cfg.Warming.Interval,
		AnalyticsInterval:       cfg.Analytics.Interval,
		ModelUpdateInterval:     cfg.Prediction.ModelUpdateInterval,
		PatternRetention:        cfg.Prediction.PatternRetention,
		MinPredictionDataPoints: cfg.Prediction.MinDataPoints,
		EnableCompression:       cfg.Compression.Enabled,
		CompressionLevel:        cfg.Compression.Level,
		Breaker: cache.BreakerConfig{
			MaxFailures:      cfg.Breaker.MaxFailures,
			Cooldown:         cfg.Breaker.Cooldown,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
		},
		DisableBackground: !cfg.Warming.Enabled && !cfg.Analytics.Enabled,
	}

	engine := cache.NewEngine(engineCfg, l2, l3, logger)

	cleanup := func() {
		engine.Close()
		if l2 != nil {
			_ = l2.Close()
		}
		if l3 != nil {
			_ = l3.Close()
		}
	}
	return engine, cleanup, nil
}
