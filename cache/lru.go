package cache

import (
	"sync"
	"time"

	"github.com/penwyp/tiercache/logging"
)

// SizedLRU is the L1 tier: an in-process bounded cache that evicts by
// recency when either the entry-count or the total-byte budget would be
// exceeded. Eviction happens before insertion, so neither budget ever
// overflows transiently.
type SizedLRU struct {
	maxEntries int
	maxBytes   int64
	size       int64
	items      map[string]*lruItem
	head       *lruItem
	tail       *lruItem
	evictions  int64
	mu         sync.Mutex
	clock      func() time.Time
	logger     logging.LoggerInterface
}

// lruItem is a node in the recency list
type lruItem struct {
	key   string
	entry Entry
	prev  *lruItem
	next  *lruItem
}

// NewSizedLRU creates a new L1 store bounded by entry count and total bytes
func NewSizedLRU(maxEntries int, maxBytes int64, logger logging.LoggerInterface) *SizedLRU {
	if logger == nil {
		logger = logging.GetLogger()
	}

	c := &SizedLRU{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		items:      make(map[string]*lruItem),
		clock:      time.Now,
		logger:     logger,
	}

	// Sentinel nodes
	c.head = &lruItem{}
	c.tail = &lruItem{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get retrieves an entry and marks it as recently used. Expired entries are
// removed as a side effect and reported as absent.
func (c *SizedLRU) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return Entry{}, false
	}

	now := c.clock()
	if now.After(item.entry.ExpiresAt) {
		c.removeItem(item)
		return Entry{}, false
	}

	item.entry.AccessCount++
	item.entry.LastAccessed = now
	item.entry.refreshDerived(now)
	c.moveToFront(item)

	return item.entry, true
}

// Set inserts or replaces an entry, evicting least-recently-used entries
// first so both budgets hold after the call
func (c *SizedLRU) Set(key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.Size > c.maxBytes {
		return ErrEntryTooLarge
	}

	// Replacement subtracts the old footprint before budgeting the new one
	if item, exists := c.items[key]; exists {
		c.size -= item.entry.Size
		item.entry = entry
		c.size += entry.Size
		c.moveToFront(item)
		c.evictForBudget(0)
		return nil
	}

	c.evictForBudget(entry.Size)

	item := &lruItem{key: key, entry: entry}
	c.items[key] = item
	c.addToFront(item)
	c.size += entry.Size

	return nil
}

// evictForBudget evicts LRU entries until an insert of incoming bytes fits
// both budgets
func (c *SizedLRU) evictForBudget(incoming int64) {
	extraEntries := 0
	if incoming > 0 {
		extraEntries = 1
	}
	for (len(c.items)+extraEntries > c.maxEntries || c.size+incoming > c.maxBytes) && len(c.items) > 0 {
		oldest := c.tail.prev
		if oldest == c.head {
			break
		}
		c.logger.Debugf("evicting L1 entry: key=%s size=%d age=%v",
			oldest.key, oldest.entry.Size, c.clock().Sub(oldest.entry.CreatedAt))
		c.removeItem(oldest)
		c.evictions++
	}
}

// Delete removes an entry; it reports whether the key existed
func (c *SizedLRU) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return false
	}

	c.removeItem(item)
	return true
}

// Clear drops all entries and resets the byte accounting
func (c *SizedLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruItem)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.size = 0
}

// DeleteByTag removes all entries carrying the given tag and returns how
// many were removed
func (c *SizedLRU) DeleteByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, item := range c.items {
		if item.entry.hasTag(tag) {
			c.removeItem(item)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries
func (c *SizedLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// MemoryUsage returns the summed entry sizes in bytes
func (c *SizedLRU) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Evictions returns the number of entries evicted for budget since creation
func (c *SizedLRU) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// HotKeyCount returns the number of live entries flagged as hot
func (c *SizedLRU) HotKeyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, item := range c.items {
		if item.entry.HotKey {
			count++
		}
	}
	return count
}

// Snapshot returns a copy of all live entries keyed by cache key. Expired
// entries are skipped but not removed; removal stays a Get side effect.
func (c *SizedLRU) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	out := make(map[string]Entry, len(c.items))
	for key, item := range c.items {
		if now.After(item.entry.ExpiresAt) {
			continue
		}
		out[key] = item.entry
	}
	return out
}

func (c *SizedLRU) moveToFront(item *lruItem) {
	c.removeFromList(item)
	c.addToFront(item)
}

func (c *SizedLRU) addToFront(item *lruItem) {
	item.prev = c.head
	item.next = c.head.next
	c.head.next.prev = item
	c.head.next = item
}

func (c *SizedLRU) removeFromList(item *lruItem) {
	item.prev.next = item.next
	item.next.prev = item.prev
}

func (c *SizedLRU) removeItem(item *lruItem) {
	delete(c.items, item.key)
	c.removeFromList(item)
	c.size -= item.entry.Size
}
