package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"

	"github.com/penwyp/tiercache/logging"
)

// BadgerStore backs the L3 query-result tier with BadgerDB. It implements
// the same RemoteStore contract as the Redis tier, with the tag index kept
// as marker keys under a reserved prefix.
type BadgerStore struct {
	db     *badger.DB
	config BadgerConfig
	logger logging.LoggerInterface
	mu     sync.RWMutex
	closed bool
	stopGC chan struct{}
}

// BadgerConfig configures the BadgerDB-backed tier
type BadgerConfig struct {
	DBPath         string        `json:"db_path"`
	InMemory       bool          `json:"in_memory"`
	MaxMemoryUsage int64         `json:"max_memory_usage"`
	ValueThreshold int64         `json:"value_threshold"`
	GCDiscardRatio float64       `json:"gc_discard_ratio"`
	GCInterval     time.Duration `json:"gc_interval"`
	LogLevel       string        `json:"log_level"`
}

const (
	badgerDataPrefix = "data/"
	badgerTagPrefix  = "tags/"
)

// NewBadgerStore opens (or creates) a BadgerDB-backed remote store
func NewBadgerStore(config BadgerConfig, logger logging.LoggerInterface) (*BadgerStore, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if config.DBPath == "" && !config.InMemory {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		config.DBPath = filepath.Join(homeDir, ".cache", "tiercache", "badger")
	}
	if config.MaxMemoryUsage <= 0 {
		config.MaxMemoryUsage = 256 * 1024 * 1024
	}
	if config.ValueThreshold <= 0 {
		config.ValueThreshold = 1024
	}
	if config.GCDiscardRatio <= 0 {
		config.GCDiscardRatio = 0.5
	}
	if config.GCInterval <= 0 {
		config.GCInterval = 5 * time.Minute
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = opts.WithInMemory(true)
		opts.Dir = ""
		opts.ValueDir = ""
	} else {
		if err := os.MkdirAll(config.DBPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	opts = opts.WithValueThreshold(config.ValueThreshold)
	opts = opts.WithCompression(options.Snappy)
	opts = opts.WithMemTableSize(config.MaxMemoryUsage / 4)
	opts = opts.WithValueLogFileSize(64 * 1024 * 1024)
	opts = opts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	store := &BadgerStore{
		db:     db,
		config: config,
		logger: logger,
		stopGC: make(chan struct{}),
	}
	store.startGC()

	return store, nil
}

func badgerDataKey(key string) []byte {
	return []byte(badgerDataPrefix + key)
}

func badgerTagKey(tag, key string) []byte {
	return []byte(badgerTagPrefix + tag + "/" + key)
}

// Get fetches raw bytes; expired and missing keys are absent, not errors
func (b *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false, ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerDataKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores raw bytes with a TTL; zero TTL means no expiry
func (b *BadgerStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(badgerDataKey(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key and reports whether it existed
func (b *BadgerStore) Delete(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, ErrClosed
	}

	existed := false
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerDataKey(key)); err == nil {
			existed = true
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Delete(badgerDataKey(key))
	})
	if err != nil {
		return false, fmt.Errorf("badger delete %s: %w", key, err)
	}
	return existed, nil
}

// Tag writes one marker key per tag so DeleteByTag can find members by
// prefix scan
func (b *BadgerStore) Tag(ctx context.Context, key string, tags []string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	if len(tags) == 0 {
		return nil
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		for _, tag := range tags {
			entry := badger.NewEntry(badgerTagKey(tag, key), []byte(key)).WithTTL(tagIndexTTL)
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger tag %s: %w", key, err)
	}
	return nil
}

// DeleteByTag removes all members of a tag plus their markers
func (b *BadgerStore) DeleteByTag(ctx context.Context, tag string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrClosed
	}

	prefix := []byte(badgerTagPrefix + tag + "/")
	var members []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			members = append(members, string(key))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger scan tag %s: %w", tag, err)
	}

	removed := 0
	err = b.db.Update(func(txn *badger.Txn) error {
		for _, member := range members {
			if _, err := txn.Get(badgerDataKey(member)); err == nil {
				removed++
			}
			if err := txn.Delete(badgerDataKey(member)); err != nil {
				return err
			}
			if err := txn.Delete(badgerTagKey(tag, member)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger delete by tag %s: %w", tag, err)
	}
	return removed, nil
}

// Flush drops all data and tag markers
func (b *BadgerStore) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.db.DropPrefix([]byte(badgerDataPrefix), []byte(badgerTagPrefix)); err != nil {
		return fmt.Errorf("badger flush: %w", err)
	}
	return nil
}

// Ping reports whether the store is usable
func (b *BadgerStore) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close shuts down GC and the database; idempotent
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.stopGC)
	return b.db.Close()
}

// startGC runs value-log garbage collection on an interval
func (b *BadgerStore) startGC() {
	go func() {
		ticker := time.NewTicker(b.config.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				err := b.db.RunValueLogGC(b.config.GCDiscardRatio)
				if err != nil && err != badger.ErrNoRewrite {
					b.logger.Warnf("badger GC: %v", err)
				}
			case <-b.stopGC:
				return
			}
		}
	}()
}

// badgerLogger routes badger's internal logging into ours
type badgerLogger struct {
	logger logging.LoggerInterface
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("badger: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("badger: "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("badger: "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("badger: "+format, args...)
}
