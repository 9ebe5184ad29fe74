package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordHit(TierL1, time.Millisecond)
	m.RecordHit(TierL1, time.Millisecond)
	m.RecordHit(TierL2, 2*time.Millisecond)
	m.RecordHit(TierL3, 5*time.Millisecond)
	m.RecordMiss(time.Millisecond)
	m.RecordTierMiss(TierL1)
	m.RecordSet()
	m.RecordError()
	m.RecordFetch()

	assert.Equal(t, int64(2), m.TierHits(TierL1))
	assert.Equal(t, int64(1), m.TierHits(TierL2))
	assert.Equal(t, int64(1), m.TierHits(TierL3))
	assert.Equal(t, int64(1), m.TierMisses(TierL1))
	assert.Equal(t, int64(4), m.Hits())
	assert.Equal(t, int64(1), m.Misses())
	assert.Equal(t, 0.8, m.HitRate())
	assert.Equal(t, int64(1), m.Sets())
	assert.Equal(t, int64(1), m.Errors())
	assert.Equal(t, int64(1), m.Fetches())
}

func TestMetrics_HitRateNoTraffic(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, m.HitRate())
	assert.Equal(t, time.Duration(0), m.AvgReadLatency())
	assert.Equal(t, time.Duration(0), m.P95ReadLatency())
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()

	m.RecordHit(TierL1, time.Millisecond)
	m.RecordMiss(time.Millisecond)
	m.RecordSet()
	m.Reset()

	assert.Equal(t, int64(0), m.Hits())
	assert.Equal(t, int64(0), m.Misses())
	assert.Equal(t, int64(0), m.Sets())
	assert.Equal(t, time.Duration(0), m.AvgReadLatency())
}

func TestLatencyTracker_Average(t *testing.T) {
	lt := NewLatencyTracker(100)

	lt.Record(time.Millisecond)
	lt.Record(3 * time.Millisecond)

	assert.Equal(t, 2*time.Millisecond, lt.Average())
}

func TestLatencyTracker_Percentile(t *testing.T) {
	lt := NewLatencyTracker(1000)

	for i := 1; i <= 100; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 95*time.Millisecond, lt.Percentile(0.95))
	assert.Equal(t, 50*time.Millisecond, lt.Percentile(0.5))
}

func TestLatencyTracker_BoundedWindow(t *testing.T) {
	lt := NewLatencyTracker(10)

	for i := 0; i < 100; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	// Only the latest ten samples (90..99ms) remain
	assert.Equal(t, 90*time.Millisecond, lt.Percentile(0))
	assert.Equal(t, 99*time.Millisecond, lt.Percentile(1))
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(Stats{
		Tiers:   map[Tier]TierStats{TierL1: {Hits: 3}},
		Hits:    3,
		Misses:  1,
		HitRate: 0.75,
		L1:      L1Stats{Entries: 2, MaxEntries: 1000},
	})

	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "2/1000 entries")
	assert.Contains(t, out, "last never")
}
