package cache

import (
	"time"
)

// Trend classifies recent cache performance against fixed thresholds. It
// is a coarse signal, not a time-series regression.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// Trend classification thresholds.
const (
	trendGoodHitRate     = 0.8
	trendBadHitRate      = 0.5
	trendGoodReadLatency = 5 * time.Millisecond
)

// Recommendation rule thresholds.
const (
	recommendLowHitRate       = 0.6
	recommendMemoryPressure   = 0.9
	recommendEvictionPressure = 100
)

// RecommendationPriority orders recommendations for operators
type RecommendationPriority string

const (
	RecommendationHigh   RecommendationPriority = "high"
	RecommendationMedium RecommendationPriority = "medium"
	RecommendationLow    RecommendationPriority = "low"
)

// Recommendation is an operator hint derived from fixed rules
type Recommendation struct {
	Priority RecommendationPriority `json:"priority"`
	Action   string                 `json:"action"`
	Reason   string                 `json:"reason"`
}

// TopKeyStat is one entry of the top-accessed-keys report
type TopKeyStat struct {
	Key             string  `json:"key"`
	AccessCount     int64   `json:"access_count"`
	AccessesPerHour float64 `json:"accesses_per_hour"`
}

// Analytics is the snapshot returned by Engine.GetAnalytics and emitted on
// the analytics event
type Analytics struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	TopKeys         []TopKeyStat     `json:"top_keys"`
	Patterns        []PatternStat    `json:"patterns"`
	Trend           Trend            `json:"trend"`
	Recommendations []Recommendation `json:"recommendations"`
}

// analyticsTopKeys is how many keys the top-accessed report carries
const analyticsTopKeys = 10

// buildAnalytics assembles a snapshot from the tracker, metrics and L1 state
func buildAnalytics(now time.Time, tracker *PatternTracker, metrics *Metrics, lru *SizedLRU) *Analytics {
	snapshot := lru.Snapshot()

	top := tracker.TopKeys(analyticsTopKeys)
	topStats := make([]TopKeyStat, 0, len(top))
	for _, ka := range top {
		stat := TopKeyStat{Key: ka.Key, AccessCount: ka.AccessCount}
		if entry, ok := snapshot[ka.Key]; ok {
			hours := now.Sub(entry.CreatedAt).Hours()
			if hours < 1 {
				hours = 1
			}
			stat.AccessesPerHour = float64(entry.AccessCount) / hours
		}
		topStats = append(topStats, stat)
	}

	return &Analytics{
		GeneratedAt:     now,
		TopKeys:         topStats,
		Patterns:        tracker.PatternStats(),
		Trend:           classifyTrend(metrics),
		Recommendations: buildRecommendations(metrics, lru),
	}
}

// classifyTrend compares current hit rate and read latency to fixed
// good/bad thresholds
func classifyTrend(metrics *Metrics) Trend {
	hitRate := metrics.HitRate()
	if metrics.Hits()+metrics.Misses() == 0 {
		return TrendStable
	}
	if hitRate >= trendGoodHitRate && metrics.AvgReadLatency() <= trendGoodReadLatency {
		return TrendImproving
	}
	if hitRate < trendBadHitRate {
		return TrendDegrading
	}
	return TrendStable
}

// buildRecommendations applies the fixed rule table
func buildRecommendations(metrics *Metrics, lru *SizedLRU) []Recommendation {
	var recs []Recommendation

	if metrics.Hits()+metrics.Misses() > 0 && metrics.HitRate() < recommendLowHitRate {
		recs = append(recs, Recommendation{
			Priority: RecommendationHigh,
			Action:   "increase TTLs or revisit key design",
			Reason:   "hit rate is below 60%",
		})
	}

	if lru.maxBytes > 0 {
		usage := float64(lru.MemoryUsage()) / float64(lru.maxBytes)
		if usage >= recommendMemoryPressure {
			recs = append(recs, Recommendation{
				Priority: RecommendationMedium,
				Action:   "raise the L1 memory budget",
				Reason:   "L1 is above 90% of its byte budget",
			})
		}
	}

	if lru.Evictions() > recommendEvictionPressure {
		recs = append(recs, Recommendation{
			Priority: RecommendationMedium,
			Action:   "raise L1 capacity or shift large values to L2/L3",
			Reason:   "eviction count exceeds 100",
		})
	}

	return recs
}
