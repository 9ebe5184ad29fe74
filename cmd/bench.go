package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/tiercache/cache"
)

var (
	benchOps       int
	benchWorkers   int
	benchKeySpace  int
	benchValueSize int
	benchReadRatio float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a synthetic benchmark against the configured tiers",
	Long: `Run a mixed read/write workload against the engine with the tiers the
configuration enables, then print throughput, hit rate and latency
percentiles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd)
	},
}

func init() {
	benchCmd.Flags().IntVarP(&benchOps, "ops", "n", 100000, "total operations")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "c", 8, "concurrent workers")
	benchCmd.Flags().IntVar(&benchKeySpace, "keys", 10000, "distinct key count")
	benchCmd.Flags().IntVar(&benchValueSize, "value-size", 256, "value size in bytes")
	benchCmd.Flags().Float64Var(&benchReadRatio, "read-ratio", 0.9, "fraction of operations that are reads")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	// Background cycles only add noise to a benchmark run
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

	value := strings.Repeat("x", benchValueSize)
	ctx := context.Background()

	fmt.Printf("tiercache bench: %d ops, %d workers, %d keys, %dB values, %.0f%% reads\n",
		benchOps, benchWorkers, benchKeySpace, benchValueSize, benchReadRatio*100)

	var completed int64
	start := time.Now()

	var wg sync.WaitGroup
	opsPerWorker := benchOps / benchWorkers
	for w := 0; w < benchWorkers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("bench:%d", rng.Intn(benchKeySpace))
				if rng.Float64() < benchReadRatio {
					_, _ = engine.GetOrSet(ctx, key, func() (interface{}, error) {
						return value, nil
					}, nil)
				} else {
					engine.Set(ctx, key, value, nil)
				}
				atomic.AddInt64(&completed, 1)
			}
		}(int64(w) + 1)
	}
	wg.Wait()

	elapsed := time.Since(start)
	stats := engine.GetStats()

	fmt.Printf("\ncompleted %d ops in %v (%.0f ops/sec)\n\n",
		atomic.LoadInt64(&completed), elapsed.Round(time.Millisecond),
		float64(completed)/elapsed.Seconds())
	fmt.Println(cache.FormatStats(stats))
	return nil
}
