package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/penwyp/tiercache/cache"
)

var statsOutput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Check tier health and print engine statistics",
	Long: `Connect to the configured remote tiers, report their health, and print
a statistics and analytics snapshot. Useful as a deployment smoke test.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "text", "output format (text, json)")
	rootCmd.AddCommand(statsCmd)
}

type statsReport struct {
	Healthy   bool             `json:"healthy"`
	PingError string           `json:"ping_error,omitempty"`
	Stats     cache.Stats      `json:"stats"`
	Analytics *cache.Analytics `json:"analytics"`
}

func runStats(cmd *cobra.Command) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Warming.Enabled = false
	cfg.Analytics.Enabled = false

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := statsReport{Healthy: true}
	if err := engine.Ping(ctx); err != nil {
		report.Healthy = false
		report.PingError = err.Error()
	}
	report.Stats = engine.GetStats()
	report.Analytics = engine.GetAnalytics()

	if statsOutput == "json" {
		data, err := sonic.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}

	if report.Healthy {
		fmt.Println("tier health: ok")
	} else {
		fmt.Printf("tier health: DEGRADED (%s)\n", report.PingError)
	}
	fmt.Println()
	fmt.Println(cache.FormatStats(report.Stats))
	fmt.Printf("\ntrend: %s\n", report.Analytics.Trend)
	for _, rec := range report.Analytics.Recommendations {
		fmt.Printf("[%s] %s: %s\n", rec.Priority, rec.Action, rec.Reason)
	}
	return nil
}
