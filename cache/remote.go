package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RemoteStore is the contract for the L2/L3 tiers: a remote key-value
// store with TTL support and a tag index for bulk invalidation. Keys
// arriving here are already namespaced by the engine.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Tag(ctx context.Context, key string, tags []string) error
	DeleteByTag(ctx context.Context, tag string) (int, error)
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// tagIndexTTL bounds how long an idle tag set survives in the index
const tagIndexTTL = 24 * time.Hour

// RedisStore backs a remote tier with Redis. Tag membership is kept in
// Redis sets alongside the values.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// RedisConfig configures the Redis-backed tier
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	Namespace    string        `json:"namespace"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	PoolSize     int           `json:"pool_size"`
}

// NewRedisStore creates a Redis-backed remote store
func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "tiercache"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	return &RedisStore{
		client:    client,
		namespace: cfg.Namespace,
	}
}

// NewRedisStoreWithClient wraps an existing client; the caller keeps
// ownership of the client lifecycle when constructed this way
func NewRedisStoreWithClient(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "tiercache"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (r *RedisStore) dataKey(key string) string {
	return r.namespace + ":" + key
}

func (r *RedisStore) tagKey(tag string) string {
	return r.namespace + ":tags:" + tag
}

// Get fetches the raw bytes for a key; a missing key is not an error
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.dataKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores raw bytes under a key with the given TTL
func (r *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.dataKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key and reports whether it existed
func (r *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, r.dataKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, err)
	}
	return n > 0, nil
}

// Tag registers the key under each tag's membership set
func (r *RedisStore) Tag(ctx context.Context, key string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, tag := range tags {
		tk := r.tagKey(tag)
		pipe.SAdd(ctx, tk, r.dataKey(key))
		pipe.Expire(ctx, tk, tagIndexTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis tag %s: %w", key, err)
	}
	return nil
}

// DeleteByTag removes every key registered under the tag and the tag set
// itself, returning the number of keys removed
func (r *RedisStore) DeleteByTag(ctx context.Context, tag string) (int, error) {
	tk := r.tagKey(tag)
	members, err := r.client.SMembers(ctx, tk).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers %s: %w", tag, err)
	}
	if len(members) == 0 {
		return 0, r.client.Del(ctx, tk).Err()
	}

	removed, err := r.client.Del(ctx, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del by tag %s: %w", tag, err)
	}
	if err := r.client.Del(ctx, tk).Err(); err != nil {
		return int(removed), fmt.Errorf("redis del tag set %s: %w", tag, err)
	}
	return int(removed), nil
}

// Flush removes every key under this store's namespace via SCAN, leaving
// unrelated keys in the database untouched
func (r *RedisStore) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.namespace+":*", 500).Iterator()

	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis flush: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis flush scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis flush: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
