package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PatternTracker records per-key access counts and recency, generalizing
// colon-delimited keys into wildcard patterns (user:123 -> user:*). It
// feeds both tier promotion and predictive scoring.
type PatternTracker struct {
	mu      sync.Mutex
	records map[string]*accessRecord
	clock   func() time.Time
}

// accessRecord tracks accesses for one key
type accessRecord struct {
	count      int64
	lastAccess time.Time
	pattern    string
}

// KeyAccess is one key's aggregate access data, used in analytics
type KeyAccess struct {
	Key         string    `json:"key"`
	AccessCount int64     `json:"access_count"`
	LastAccess  time.Time `json:"last_access"`
}

// PatternStat aggregates access data over one wildcard pattern
type PatternStat struct {
	Pattern    string    `json:"pattern"`
	Count      int64     `json:"count"`
	Keys       int       `json:"keys"`
	LastAccess time.Time `json:"last_access"`
}

// NewPatternTracker creates an empty tracker
func NewPatternTracker() *PatternTracker {
	return &PatternTracker{
		records: make(map[string]*accessRecord),
		clock:   time.Now,
	}
}

// generalizePattern replaces the text after the last colon with a wildcard;
// keys without a colon are their own pattern
func generalizePattern(key string) string {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return key
	}
	return key[:idx+1] + "*"
}

// RecordAccess notes one access of key, hit or miss
func (t *PatternTracker) RecordAccess(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	if rec, ok := t.records[key]; ok {
		rec.count++
		rec.lastAccess = now
		return
	}
	t.records[key] = &accessRecord{
		count:      1,
		lastAccess: now,
		pattern:    generalizePattern(key),
	}
}

// AccessInfo returns the recorded count and last access time for a key
func (t *PatternTracker) AccessInfo(key string) (int64, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		return 0, time.Time{}, false
	}
	return rec.count, rec.lastAccess, true
}

// Related returns up to limit other keys sharing key's pattern, most
// accessed first
func (t *PatternTracker) Related(key string, limit int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	pattern := generalizePattern(key)
	type candidate struct {
		key   string
		count int64
	}
	var candidates []candidate
	for k, rec := range t.records {
		if k == key || rec.pattern != pattern {
			continue
		}
		candidates = append(candidates, candidate{key: k, count: rec.count})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].count > candidates[j].count
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	keys := make([]string, len(candidates))
	for i, c := range candidates {
		keys[i] = c.key
	}
	return keys
}

// KeysMatching returns keys whose pattern equals the given wildcard pattern
func (t *PatternTracker) KeysMatching(pattern string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []string
	for k, rec := range t.records {
		if rec.pattern == pattern {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// TopKeys returns the n most accessed keys
func (t *PatternTracker) TopKeys(n int) []KeyAccess {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := make([]KeyAccess, 0, len(t.records))
	for k, rec := range t.records {
		all = append(all, KeyAccess{Key: k, AccessCount: rec.count, LastAccess: rec.lastAccess})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].AccessCount != all[j].AccessCount {
			return all[i].AccessCount > all[j].AccessCount
		}
		return all[i].Key < all[j].Key
	})

	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// PatternStats aggregates records by pattern, sorted by descending count
func (t *PatternTracker) PatternStats() []PatternStat {
	t.mu.Lock()
	defer t.mu.Unlock()

	byPattern := make(map[string]*PatternStat)
	for _, rec := range t.records {
		stat, ok := byPattern[rec.pattern]
		if !ok {
			stat = &PatternStat{Pattern: rec.pattern}
			byPattern[rec.pattern] = stat
		}
		stat.Count += rec.count
		stat.Keys++
		if rec.lastAccess.After(stat.LastAccess) {
			stat.LastAccess = rec.lastAccess
		}
	}

	stats := make([]PatternStat, 0, len(byPattern))
	for _, s := range byPattern {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Pattern < stats[j].Pattern
	})
	return stats
}

// Cleanup drops records not accessed within the retention window and
// returns how many were removed
func (t *PatternTracker) Cleanup(retention time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.clock().Add(-retention)
	removed := 0
	for k, rec := range t.records {
		if rec.lastAccess.Before(cutoff) {
			delete(t.records, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (t *PatternTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
