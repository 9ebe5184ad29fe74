package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		count    int64
		priority Priority
		want     Tier
	}{
		{"small hot", 1024, 10, PriorityMedium, TierL1},
		{"small high priority", 1024, 0, PriorityHigh, TierL1},
		{"small critical priority", 1024, 0, PriorityCritical, TierL1},
		{"small cold", 1024, 1, PriorityMedium, TierL2},
		{"medium hot", 64 * 1024, 100, PriorityCritical, TierL2},
		{"large", 512 * 1024, 100, PriorityCritical, TierL3},
		{"boundary L1 size", autoTierL1SizeLimit, autoTierHotAccessCount, PriorityMedium, TierL1},
		{"boundary L2 size", autoTierL2SizeLimit, 0, PriorityLow, TierL2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectTier(tt.size, tt.count, tt.priority))
		})
	}
}

func TestDynamicTTL(t *testing.T) {
	base := time.Hour

	assert.Equal(t, base, dynamicTTL(base, 50*time.Millisecond))
	assert.Equal(t, 2*base, dynamicTTL(base, 500*time.Millisecond))
	assert.Equal(t, 4*base, dynamicTTL(base, 2*time.Second))

	// The scaled TTL never exceeds the cap
	assert.Equal(t, dynamicTTLCap, dynamicTTL(10*time.Hour, 2*time.Second))
}

func TestOptions_Defaults(t *testing.T) {
	var nilOpts *Options
	o := nilOpts.withDefaults()
	assert.Equal(t, PriorityMedium, o.Priority)
	assert.Equal(t, TierAuto, o.Tier)

	o = (&Options{Priority: PriorityLow, Tier: TierL3}).withDefaults()
	assert.Equal(t, PriorityLow, o.Priority)
	assert.Equal(t, TierL3, o.Tier)
}

func TestOptions_TTLFor(t *testing.T) {
	o := Options{}
	assert.Equal(t, DefaultTTL, o.ttlFor(TierL1))
	assert.Equal(t, DefaultL2TTL, o.ttlFor(TierL2))
	assert.Equal(t, DefaultL3TTL, o.ttlFor(TierL3))

	o = Options{TTL: time.Minute}
	assert.Equal(t, time.Minute, o.ttlFor(TierL3))
}

func TestEntry_RefreshDerived(t *testing.T) {
	now := time.Now()
	e := Entry{CreatedAt: now, AccessCount: 20}

	// Within the first hour the denominator is floored at one hour
	e.refreshDerived(now.Add(10 * time.Minute))
	assert.Equal(t, 20.0, e.AccessFrequency)
	assert.True(t, e.HotKey)

	e.refreshDerived(now.Add(4 * time.Hour))
	assert.Equal(t, 5.0, e.AccessFrequency)
	assert.False(t, e.HotKey)
}
