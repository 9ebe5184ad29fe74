package cache

import (
	"context"
	"fmt"
)

// Typed wraps an engine with type-safe accessors so callers avoid manual
// assertions. L1 hits are asserted directly; remote hits arrive as decoded
// JSON and are re-marshaled into T.
type Typed[T any] struct {
	engine *Engine
	codec  Codec
}

// NewTyped creates a typed view over the engine
func NewTyped[T any](engine *Engine) *Typed[T] {
	return &Typed[T]{
		engine: engine,
		codec:  newCodec(false, 0),
	}
}

// Get returns the cached value converted to T
func (t *Typed[T]) Get(ctx context.Context, key string, opts *Options) (T, bool) {
	var zero T

	raw, ok := t.engine.Get(ctx, key, opts)
	if !ok {
		return zero, false
	}

	value, err := t.convert(raw)
	if err != nil {
		t.engine.logger.Warnf("typed get for key %s: %v", key, err)
		return zero, false
	}
	return value, true
}

// GetOrSet returns the cached value converted to T, fetching on a miss
func (t *Typed[T]) GetOrSet(ctx context.Context, key string, fetch func() (T, error), opts *Options) (T, error) {
	var zero T

	raw, err := t.engine.GetOrSet(ctx, key, func() (interface{}, error) {
		return fetch()
	}, opts)
	if err != nil {
		return zero, err
	}

	value, convErr := t.convert(raw)
	if convErr != nil {
		return zero, convErr
	}
	return value, nil
}

// Set stores a typed value
func (t *Typed[T]) Set(ctx context.Context, key string, value T, opts *Options) {
	t.engine.Set(ctx, key, value, opts)
}

// convert turns a cached value into T, via a direct assertion when the
// value never left the process or a JSON round-trip when it did
func (t *Typed[T]) convert(raw interface{}) (T, error) {
	var zero T

	if value, ok := raw.(T); ok {
		return value, nil
	}

	data, err := t.codec.Encode(raw)
	if err != nil {
		return zero, fmt.Errorf("typed conversion: %w", err)
	}
	var value T
	if err := t.codec.Decode(data, &value); err != nil {
		return zero, fmt.Errorf("typed conversion: %w", err)
	}
	return value, nil
}
