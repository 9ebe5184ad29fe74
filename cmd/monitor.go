package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/penwyp/tiercache/cache"
	"github.com/penwyp/tiercache/config"
	"github.com/penwyp/tiercache/logging"
	"github.com/penwyp/tiercache/ui"
)

var monitorDemo bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the live cache dashboard",
	Long: `Open a terminal dashboard showing live hit rates, tier usage, top keys
and operator recommendations. With --demo a synthetic workload runs in
the background so the dashboard has something to show.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorDemo, "demo", false, "generate a synthetic workload")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Follow config file edits while the dashboard runs; only the log level
	// can change live, store topology needs a restart.
	loader, cfgPath := newLoader(cmd)
	if cfgPath != "" {
		watcher, err := config.NewWatcher(cfgPath, loader, func(next *config.Config) {
			logging.GetLogger().SetLevel(next.App.LogLevel)
		}, logger)
		if err != nil {
			logger.Warnf("config watch disabled: %v", err)
		} else if err := watcher.Start(cfg); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	stopDemo := func() {}
	if monitorDemo {
		stopDemo = startDemoWorkload(engine)
	}
	defer stopDemo()

	dashboard := ui.NewDashboard(engine, ui.Config{
		Theme:       cfg.UI.Theme,
		RefreshRate: cfg.UI.RefreshRate,
		PageSize:    cfg.UI.TablePageSize,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	program := tea.NewProgram(dashboard, opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// startDemoWorkload drives a skewed read/write mix against the engine so
// the dashboard shows live numbers. Returns a stop function.
func startDemoWorkload(engine *cache.Engine) func() {
	stop := make(chan struct{})

	go func() {
		ctx := context.Background()
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// Zipf-ish hot set: low keys are touched far more often
				key := fmt.Sprintf("demo:item:%d", int(rng.ExpFloat64()*20)%200)
				if rng.Float64() < 0.8 {
					_, _ = engine.GetOrSet(ctx, key, func() (interface{}, error) {
						return fmt.Sprintf("value-%s", key), nil
					}, &cache.Options{Predictive: true})
				} else {
					engine.Set(ctx, key, rng.Int63(), nil)
				}
			}
		}
	}()

	return func() { close(stop) }
}
