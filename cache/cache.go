package cache

import (
	"errors"
	"time"
)

// Tier identifies a cache level. L1 is in-process, L2 and L3 are remote
// stores with increasing latency and capacity.
type Tier string

const (
	TierL1   Tier = "L1"
	TierL2   Tier = "L2"
	TierL3   Tier = "L3"
	TierAuto Tier = "auto"
)

// Priority influences tier placement. It is a signal, not a hard pin.
type Priority int

const (
	priorityUnset Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the string representation of the priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unset"
	}
}

// Default TTLs per tier. L2/L3 values apply when the caller does not
// override them per operation.
const (
	DefaultTTL   = time.Hour
	DefaultL2TTL = time.Hour
	DefaultL3TTL = 30 * time.Minute
)

// Tier selection thresholds. Small, frequently accessed values land in L1;
// medium sized values in L2; everything else in L3.
const (
	autoTierL1SizeLimit    = 10 * 1024
	autoTierL2SizeLimit    = 256 * 1024
	autoTierHotAccessCount = 5
)

// Dynamic TTL computation from observed fetch latency: expensive fetches
// are cached longer.
const (
	fastFetchThreshold = 100 * time.Millisecond
	slowFetchThreshold = time.Second
	dynamicTTLCap      = 24 * time.Hour
)

// Prediction tuning.
const (
	hotKeyThreshold       = 10.0 // accesses per hour
	preloadScoreThreshold = 0.7
	predictionHitScore    = 0.5
	recencyDecayHours     = 24.0
	frequencySaturation   = 10.0
	relatedKeyLimit       = 5
)

// Background cycle defaults.
const (
	defaultWarmingInterval     = 5 * time.Minute
	defaultAnalyticsInterval   = 10 * time.Minute
	defaultModelUpdateInterval = time.Hour
	defaultPatternRetention    = 7 * 24 * time.Hour
	defaultMinDataPoints       = 10
	frequentKeyWarmLimit       = 50
)

var (
	// ErrClosed is returned by operations on a closed engine or store
	ErrClosed = errors.New("cache: closed")
	// ErrEntryTooLarge is returned when a single value exceeds the L1 byte budget
	ErrEntryTooLarge = errors.New("cache: entry exceeds capacity")
)

// Entry is an L1 cache record with access metadata
type Entry struct {
	Value           interface{} `json:"value"`
	CreatedAt       time.Time   `json:"created_at"`
	ExpiresAt       time.Time   `json:"expires_at"`
	AccessCount     int64       `json:"access_count"`
	LastAccessed    time.Time   `json:"last_accessed"`
	Size            int64       `json:"size"`
	Tags            []string    `json:"tags,omitempty"`
	Tier            Tier        `json:"tier"`
	Priority        Priority    `json:"priority"`
	AccessFrequency float64     `json:"access_frequency"`
	HotKey          bool        `json:"hot_key"`
}

// refreshDerived recomputes the access frequency and hot-key flag
func (e *Entry) refreshDerived(now time.Time) {
	hours := now.Sub(e.CreatedAt).Hours()
	if hours < 1 {
		hours = 1
	}
	e.AccessFrequency = float64(e.AccessCount) / hours
	e.HotKey = e.AccessFrequency >= hotKeyThreshold
}

// hasTag reports whether the entry carries the given tag
func (e *Entry) hasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Options configures a single cache operation. The zero value means
// defaults everywhere; Engine applies them at the boundary.
type Options struct {
	// TTL overrides the tier default when positive
	TTL time.Duration
	// Prefix is an optional namespace segment for remote-tier keys
	Prefix string
	// Tags enable bulk invalidation via InvalidateByTag
	Tags []string
	// Priority influences tier placement and promotion
	Priority Priority
	// Tier pins the operation to one level; TierAuto (or empty) probes
	// L1 through L3 and selects the write tier heuristically
	Tier Tier
	// Predictive opts this operation into prediction bookkeeping and
	// slow-fetch preloading
	Predictive bool
	// Raw stores []byte values verbatim on remote tiers instead of JSON
	Raw bool
}

// withDefaults returns a copy with unset fields filled in
func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Priority == priorityUnset {
		opts.Priority = PriorityMedium
	}
	if opts.Tier == "" {
		opts.Tier = TierAuto
	}
	return opts
}

// ttlFor resolves the effective TTL for a write to the given tier
func (o Options) ttlFor(tier Tier) time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	switch tier {
	case TierL3:
		return DefaultL3TTL
	case TierL2:
		return DefaultL2TTL
	default:
		return DefaultTTL
	}
}

// FetchFunc supplies a value on a full cache miss in GetOrSet. The engine
// treats it as opaque; errors propagate to the caller.
type FetchFunc func() (interface{}, error)

// selectTier applies the size/frequency rule table for auto placement
func selectTier(size int64, accessCount int64, priority Priority) Tier {
	if size <= autoTierL1SizeLimit &&
		(accessCount >= autoTierHotAccessCount || priority >= PriorityHigh) {
		return TierL1
	}
	if size <= autoTierL2SizeLimit {
		return TierL2
	}
	return TierL3
}

// dynamicTTL scales the base TTL by observed fetch latency
func dynamicTTL(base, fetchDuration time.Duration) time.Duration {
	ttl := base
	switch {
	case fetchDuration >= slowFetchThreshold:
		ttl = base * 4
	case fetchDuration >= fastFetchThreshold:
		ttl = base * 2
	}
	if ttl > dynamicTTLCap {
		ttl = dynamicTTLCap
	}
	return ttl
}
