package cache

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics keeps running counters per tier plus read-latency samples
type Metrics struct {
	l1Hits    int64
	l2Hits    int64
	l3Hits    int64
	l1Misses  int64
	l2Misses  int64
	l3Misses  int64
	misses    int64
	sets      int64
	errors    int64
	fetches   int64
	startTime time.Time

	readLatencies *LatencyTracker
}

// TierStats is the per-tier slice of Stats
type TierStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewMetrics creates a metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		startTime:     time.Now(),
		readLatencies: NewLatencyTracker(10000),
	}
}

// RecordHit records a hit on the given tier with its read latency
func (m *Metrics) RecordHit(tier Tier, latency time.Duration) {
	switch tier {
	case TierL1:
		atomic.AddInt64(&m.l1Hits, 1)
	case TierL2:
		atomic.AddInt64(&m.l2Hits, 1)
	case TierL3:
		atomic.AddInt64(&m.l3Hits, 1)
	}
	m.readLatencies.Record(latency)
}

// RecordTierMiss records a probe miss on one tier
func (m *Metrics) RecordTierMiss(tier Tier) {
	switch tier {
	case TierL1:
		atomic.AddInt64(&m.l1Misses, 1)
	case TierL2:
		atomic.AddInt64(&m.l2Misses, 1)
	case TierL3:
		atomic.AddInt64(&m.l3Misses, 1)
	}
}

// TierMisses returns the probe miss count for one tier
func (m *Metrics) TierMisses(tier Tier) int64 {
	switch tier {
	case TierL1:
		return atomic.LoadInt64(&m.l1Misses)
	case TierL2:
		return atomic.LoadInt64(&m.l2Misses)
	case TierL3:
		return atomic.LoadInt64(&m.l3Misses)
	default:
		return 0
	}
}

// RecordMiss records an all-tier miss
func (m *Metrics) RecordMiss(latency time.Duration) {
	atomic.AddInt64(&m.misses, 1)
	m.readLatencies.Record(latency)
}

// RecordSet records a completed write
func (m *Metrics) RecordSet() {
	atomic.AddInt64(&m.sets, 1)
}

// RecordError records an absorbed failure
func (m *Metrics) RecordError() {
	atomic.AddInt64(&m.errors, 1)
}

// RecordFetch records an invocation of a caller-supplied fetch function
func (m *Metrics) RecordFetch() {
	atomic.AddInt64(&m.fetches, 1)
}

// Hits returns total hits across tiers
func (m *Metrics) Hits() int64 {
	return atomic.LoadInt64(&m.l1Hits) + atomic.LoadInt64(&m.l2Hits) + atomic.LoadInt64(&m.l3Hits)
}

// Misses returns the all-tier miss count
func (m *Metrics) Misses() int64 {
	return atomic.LoadInt64(&m.misses)
}

// HitRate returns hits/(hits+misses), zero with no data
func (m *Metrics) HitRate() float64 {
	hits := m.Hits()
	total := hits + m.Misses()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// TierHits returns the hit count for one tier
func (m *Metrics) TierHits(tier Tier) int64 {
	switch tier {
	case TierL1:
		return atomic.LoadInt64(&m.l1Hits)
	case TierL2:
		return atomic.LoadInt64(&m.l2Hits)
	case TierL3:
		return atomic.LoadInt64(&m.l3Hits)
	default:
		return 0
	}
}

// Sets returns the write count
func (m *Metrics) Sets() int64 {
	return atomic.LoadInt64(&m.sets)
}

// Errors returns the absorbed-failure count
func (m *Metrics) Errors() int64 {
	return atomic.LoadInt64(&m.errors)
}

// Fetches returns the fetch invocation count
func (m *Metrics) Fetches() int64 {
	return atomic.LoadInt64(&m.fetches)
}

// Uptime returns time since the collector was created or reset
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// AvgReadLatency returns the mean of the retained read samples
func (m *Metrics) AvgReadLatency() time.Duration {
	return m.readLatencies.Average()
}

// P95ReadLatency returns the 95th percentile of the retained read samples
func (m *Metrics) P95ReadLatency() time.Duration {
	return m.readLatencies.Percentile(0.95)
}

// Reset zeroes all counters and samples
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.l1Hits, 0)
	atomic.StoreInt64(&m.l2Hits, 0)
	atomic.StoreInt64(&m.l3Hits, 0)
	atomic.StoreInt64(&m.l1Misses, 0)
	atomic.StoreInt64(&m.l2Misses, 0)
	atomic.StoreInt64(&m.l3Misses, 0)
	atomic.StoreInt64(&m.misses, 0)
	atomic.StoreInt64(&m.sets, 0)
	atomic.StoreInt64(&m.errors, 0)
	atomic.StoreInt64(&m.fetches, 0)
	m.readLatencies.Reset()
	m.startTime = time.Now()
}

// LatencyTracker retains a bounded window of duration samples
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker retaining up to maxSize samples
func NewLatencyTracker(maxSize int) *LatencyTracker {
	return &LatencyTracker{
		samples: make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record appends a sample, dropping the oldest past capacity
func (lt *LatencyTracker) Record(latency time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.samples = append(lt.samples, latency)
	if len(lt.samples) > lt.maxSize {
		lt.samples = lt.samples[len(lt.samples)-lt.maxSize:]
	}
}

// Average returns the mean sample
func (lt *LatencyTracker) Average() time.Duration {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) == 0 {
		return 0
	}

	var sum time.Duration
	for _, s := range lt.samples {
		sum += s
	}
	return sum / time.Duration(len(lt.samples))
}

// Percentile returns the p-th percentile sample
func (lt *LatencyTracker) Percentile(p float64) time.Duration {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(lt.samples))
	copy(sorted, lt.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// Reset drops all samples
func (lt *LatencyTracker) Reset() {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.samples = lt.samples[:0]
}

// Stats is the snapshot returned by Engine.GetStats
type Stats struct {
	Tiers       map[Tier]TierStats `json:"tiers"`
	Hits        int64              `json:"hits"`
	Misses      int64              `json:"misses"`
	HitRate     float64            `json:"hit_rate"`
	Sets        int64              `json:"sets"`
	Errors      int64              `json:"errors"`
	Fetches     int64              `json:"fetches"`
	L1          L1Stats            `json:"l1"`
	Predictions PredictionStats    `json:"predictions"`
	Warming     WarmingStats       `json:"warming"`

	AvgReadLatency time.Duration `json:"avg_read_latency"`
	P95ReadLatency time.Duration `json:"p95_read_latency"`
	Uptime         time.Duration `json:"uptime"`
}

// L1Stats describes the in-process tier
type L1Stats struct {
	Entries        int   `json:"entries"`
	MaxEntries     int   `json:"max_entries"`
	MemoryBytes    int64 `json:"memory_bytes"`
	MaxMemoryBytes int64 `json:"max_memory_bytes"`
	Evictions      int64 `json:"evictions"`
	HotKeys        int   `json:"hot_keys"`
}

// FormatStats renders a stats snapshot for terminal display
func FormatStats(s Stats) string {
	return fmt.Sprintf(`Cache Statistics
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Hit Rate:     %.1f%% (%d hits, %d misses)
Per Tier:     L1 %d | L2 %d | L3 %d
Writes:       %d sets, %d fetches, %d errors
L1:           %d/%d entries, %.2f/%.2f MB, %d evictions, %d hot keys
Predictions:  %d live, %.1f%% accuracy (%d/%d)
Warming:      %d runs, last %s
Latency:      avg %v, p95 %v
Uptime:       %v
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`,
		s.HitRate*100, s.Hits, s.Misses,
		s.Tiers[TierL1].Hits, s.Tiers[TierL2].Hits, s.Tiers[TierL3].Hits,
		s.Sets, s.Fetches, s.Errors,
		s.L1.Entries, s.L1.MaxEntries,
		float64(s.L1.MemoryBytes)/1024/1024, float64(s.L1.MaxMemoryBytes)/1024/1024,
		s.L1.Evictions, s.L1.HotKeys,
		s.Predictions.DataPoints, s.Predictions.Accuracy*100,
		s.Predictions.Correct, s.Predictions.Opportunities,
		s.Warming.Runs, formatLastRun(s.Warming.LastRun),
		s.AvgReadLatency, s.P95ReadLatency,
		s.Uptime,
	)
}

func formatLastRun(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}
