package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tiercache/logging"
)

func testEntry(value interface{}, size int64, ttl time.Duration, tags ...string) Entry {
	now := time.Now()
	e := Entry{
		Value:        value,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
		Size:         size,
		Tags:         tags,
		Tier:         TierL1,
		Priority:     PriorityMedium,
	}
	return e
}

func TestNewSizedLRU(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.NotNil(t, c.head)
	assert.NotNil(t, c.tail)
	assert.Equal(t, c.tail, c.head.next)
	assert.Equal(t, c.head, c.tail.prev)
}

func TestSizedLRU_SetAndGet(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	require.NoError(t, c.Set("key1", testEntry("value1", 10, time.Hour)))

	entry, ok := c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", entry.Value)
	assert.Equal(t, int64(1), entry.AccessCount)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(10), c.MemoryUsage())

	_, ok = c.Get("nonexistent")
	assert.False(t, ok)
}

func TestSizedLRU_CountBudget(t *testing.T) {
	c := NewSizedLRU(3, 10240, logging.NewNopLogger())

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key%d", i)
		require.NoError(t, c.Set(key, testEntry(i, 10, time.Hour)))
		assert.LessOrEqual(t, c.Len(), 3)
	}

	// Only the three most recent inserts survive
	_, ok := c.Get("key6")
	assert.False(t, ok)
	for i := 7; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("key%d", i))
		assert.True(t, ok)
	}
}

func TestSizedLRU_ByteBudget(t *testing.T) {
	c := NewSizedLRU(100, 100, logging.NewNopLogger())

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("key%d", i), testEntry(i, 30, time.Hour)))
		assert.LessOrEqual(t, c.MemoryUsage(), int64(100))
	}
	assert.Equal(t, 3, c.Len())
}

func TestSizedLRU_EvictionOrder(t *testing.T) {
	c := NewSizedLRU(3, 10240, logging.NewNopLogger())

	require.NoError(t, c.Set("a", testEntry(1, 10, time.Hour)))
	require.NoError(t, c.Set("b", testEntry(2, 10, time.Hour)))
	require.NoError(t, c.Set("c", testEntry(3, 10, time.Hour)))

	// Touch "a" so "b" becomes least recently used
	_, ok := c.Get("a")
	require.True(t, ok)

	require.NoError(t, c.Set("d", testEntry(4, 10, time.Hour)))

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used key should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
	assert.Equal(t, int64(1), c.Evictions())
}

func TestSizedLRU_CapacityOne(t *testing.T) {
	c := NewSizedLRU(1, 10240, logging.NewNopLogger())

	require.NoError(t, c.Set("a", testEntry(1, 10, time.Hour)))
	require.NoError(t, c.Set("b", testEntry(2, 10, time.Hour)))

	_, ok := c.Get("a")
	assert.False(t, ok)
	entry, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, entry.Value)
}

func TestSizedLRU_ReplacementAccounting(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	require.NoError(t, c.Set("other", testEntry("x", 100, time.Hour)))
	require.NoError(t, c.Set("k", testEntry("v1", 50, time.Hour)))
	require.Equal(t, int64(150), c.MemoryUsage())

	require.NoError(t, c.Set("k", testEntry("v2", 80, time.Hour)))

	assert.Equal(t, int64(180), c.MemoryUsage(), "replacement must not double-count")
	assert.Equal(t, 2, c.Len())
}

func TestSizedLRU_EntryTooLarge(t *testing.T) {
	c := NewSizedLRU(10, 100, logging.NewNopLogger())

	err := c.Set("huge", testEntry("x", 101, time.Hour))
	assert.ErrorIs(t, err, ErrEntryTooLarge)
	assert.Equal(t, 0, c.Len())
}

func TestSizedLRU_Expiry(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	now := time.Now()
	c.clock = func() time.Time { return now }

	entry := testEntry("v", 10, 0)
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(time.Second)
	require.NoError(t, c.Set("k", entry))

	_, ok := c.Get("k")
	assert.True(t, ok)

	// Advance past the TTL
	now = now.Add(1100 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must be absent")
	assert.Equal(t, 0, c.Len(), "expired entry must be removed")
	assert.Equal(t, int64(0), c.MemoryUsage())
}

func TestSizedLRU_Delete(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	require.NoError(t, c.Set("key1", testEntry(1, 10, time.Hour)))
	require.NoError(t, c.Set("key2", testEntry(2, 10, time.Hour)))

	assert.True(t, c.Delete("key1"))
	assert.False(t, c.Delete("key1"))
	assert.False(t, c.Delete("nonexistent"))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(10), c.MemoryUsage())
}

func TestSizedLRU_Clear(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("key%d", i), testEntry(i, 10, time.Hour)))
	}

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.MemoryUsage())
	_, ok := c.Get("key0")
	assert.False(t, ok)

	// Clear is idempotent and the store stays usable
	c.Clear()
	require.NoError(t, c.Set("new", testEntry(1, 10, time.Hour)))
	assert.Equal(t, 1, c.Len())
}

func TestSizedLRU_DeleteByTag(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	require.NoError(t, c.Set("x", testEntry(1, 10, time.Hour, "grp")))
	require.NoError(t, c.Set("y", testEntry(2, 10, time.Hour, "grp", "other")))
	require.NoError(t, c.Set("z", testEntry(3, 10, time.Hour, "other")))

	removed := c.DeleteByTag("grp")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("x")
	assert.False(t, ok)
	_, ok = c.Get("y")
	assert.False(t, ok)
	_, ok = c.Get("z")
	assert.True(t, ok)
}

func TestSizedLRU_HotKeyDerivation(t *testing.T) {
	c := NewSizedLRU(10, 1024, logging.NewNopLogger())

	require.NoError(t, c.Set("hot", testEntry(1, 10, time.Hour)))

	// Accesses within the first hour divide by one hour minimum
	var entry Entry
	for i := 0; i < 10; i++ {
		var ok bool
		entry, ok = c.Get("hot")
		require.True(t, ok)
	}

	assert.Equal(t, int64(10), entry.AccessCount)
	assert.GreaterOrEqual(t, entry.AccessFrequency, 10.0)
	assert.True(t, entry.HotKey)
	assert.Equal(t, 1, c.HotKeyCount())
}

func TestSizedLRU_ConcurrentAccess(t *testing.T) {
	c := NewSizedLRU(100, 1024*1024, logging.NewNopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key%d", j%20)
				_ = c.Set(key, testEntry(j, 10, time.Hour))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 100)
	assert.LessOrEqual(t, c.MemoryUsage(), int64(1024*1024))
}
