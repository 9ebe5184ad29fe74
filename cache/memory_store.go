package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process RemoteStore. It exists so the engine can run
// without a Redis or Badger deployment, and so tests can substitute a fake
// for the remote tiers.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
	clock   func() time.Time
	closed  bool
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory remote store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		clock:   time.Now,
	}
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && m.clock().After(e.expiresAt)
}

// Get fetches raw bytes; expired entries are removed and reported absent
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.expired(e) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores raw bytes with a TTL; zero TTL means no expiry
func (m *MemoryStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expiresAt = m.clock().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete removes a key and reports whether it existed
func (m *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}
	_, existed := m.entries[key]
	delete(m.entries, key)
	return existed, nil
}

// Tag registers the key under each tag
func (m *MemoryStore) Tag(ctx context.Context, key string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, tag := range tags {
		members, ok := m.tags[tag]
		if !ok {
			members = make(map[string]struct{})
			m.tags[tag] = members
		}
		members[key] = struct{}{}
	}
	return nil
}

// DeleteByTag removes all members of a tag and the tag itself
func (m *MemoryStore) DeleteByTag(ctx context.Context, tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	removed := 0
	for member := range m.tags[tag] {
		if _, ok := m.entries[member]; ok {
			delete(m.entries, member)
			removed++
		}
	}
	delete(m.tags, tag)
	return removed, nil
}

// Flush drops everything
func (m *MemoryStore) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.entries = make(map[string]memoryEntry)
	m.tags = make(map[string]map[string]struct{})
	return nil
}

// Ping reports whether the store is usable
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store unusable; idempotent
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of live entries
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if !m.expired(e) {
			n++
		}
	}
	return n
}
