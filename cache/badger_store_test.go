package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tiercache/logging"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(BadgerConfig{InMemory: true}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), data)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerStore_Delete(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	existed, err := store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestBadgerStore_DeleteByTag(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		require.NoError(t, store.Set(ctx, key, []byte("v"), 0))
		require.NoError(t, store.Tag(ctx, key, []string{"grp"}))
	}
	require.NoError(t, store.Set(ctx, "c", []byte("v"), 0))

	removed, err := store.DeleteByTag(ctx, "grp")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Untagged keys survive
	_, ok, err = store.Get(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err = store.DeleteByTag(ctx, "grp")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestBadgerStore_Flush(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, store.Flush(ctx))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerStore_Closed(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	assert.ErrorIs(t, store.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, store.Set(ctx, "k", []byte("v"), 0), ErrClosed)
	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}
