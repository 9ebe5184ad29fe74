package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneralizePattern(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"user:123", "user:*"},
		{"user:123:profile", "user:123:*"},
		{"session:abc-def", "session:*"},
		{"plain", "plain"},
		{"", ""},
		{"trailing:", "trailing:*"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, generalizePattern(tt.key), "key %q", tt.key)
	}
}

func TestPatternTracker_RecordAccess(t *testing.T) {
	tracker := NewPatternTracker()

	tracker.RecordAccess("user:1")
	tracker.RecordAccess("user:1")
	tracker.RecordAccess("user:2")

	count, _, ok := tracker.AccessInfo("user:1")
	require.True(t, ok)
	assert.Equal(t, int64(2), count)

	count, _, ok = tracker.AccessInfo("user:2")
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	_, _, ok = tracker.AccessInfo("user:3")
	assert.False(t, ok)

	assert.Equal(t, 2, tracker.Len())
}

func TestPatternTracker_Related(t *testing.T) {
	tracker := NewPatternTracker()

	tracker.RecordAccess("user:1")
	for i := 0; i < 3; i++ {
		tracker.RecordAccess("user:2")
	}
	for i := 0; i < 2; i++ {
		tracker.RecordAccess("user:3")
	}
	tracker.RecordAccess("post:9")

	related := tracker.Related("user:1", relatedKeyLimit)
	assert.Equal(t, []string{"user:2", "user:3"}, related)
	assert.NotContains(t, related, "user:1", "a key is never related to itself")
	assert.NotContains(t, related, "post:9")
}

func TestPatternTracker_RelatedLimit(t *testing.T) {
	tracker := NewPatternTracker()

	for i := 0; i < 10; i++ {
		tracker.RecordAccess("item:" + string(rune('a'+i)))
	}

	related := tracker.Related("item:a", 5)
	assert.Len(t, related, 5)
}

func TestPatternTracker_KeysMatching(t *testing.T) {
	tracker := NewPatternTracker()

	tracker.RecordAccess("user:2")
	tracker.RecordAccess("user:1")
	tracker.RecordAccess("post:9")

	assert.Equal(t, []string{"user:1", "user:2"}, tracker.KeysMatching("user:*"))
	assert.Empty(t, tracker.KeysMatching("session:*"))
}

func TestPatternTracker_TopKeys(t *testing.T) {
	tracker := NewPatternTracker()

	for i := 0; i < 5; i++ {
		tracker.RecordAccess("hot")
	}
	for i := 0; i < 3; i++ {
		tracker.RecordAccess("warm")
	}
	tracker.RecordAccess("cold")

	top := tracker.TopKeys(2)
	require.Len(t, top, 2)
	assert.Equal(t, "hot", top[0].Key)
	assert.Equal(t, int64(5), top[0].AccessCount)
	assert.Equal(t, "warm", top[1].Key)
}

func TestPatternTracker_PatternStats(t *testing.T) {
	tracker := NewPatternTracker()

	tracker.RecordAccess("user:1")
	tracker.RecordAccess("user:1")
	tracker.RecordAccess("user:2")
	tracker.RecordAccess("post:9")

	stats := tracker.PatternStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "user:*", stats[0].Pattern)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, 2, stats[0].Keys)
	assert.Equal(t, "post:*", stats[1].Pattern)
}

func TestPatternTracker_Cleanup(t *testing.T) {
	tracker := NewPatternTracker()

	now := time.Now()
	tracker.clock = func() time.Time { return now }

	tracker.RecordAccess("old")
	now = now.Add(8 * 24 * time.Hour)
	tracker.RecordAccess("fresh")

	removed := tracker.Cleanup(defaultPatternRetention)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tracker.Len())

	_, _, ok := tracker.AccessInfo("fresh")
	assert.True(t, ok)
	_, _, ok = tracker.AccessInfo("old")
	assert.False(t, ok)
}
