package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestTyped_L1RoundTrip(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	typed := NewTyped[profile](e)
	ctx := context.Background()

	typed.Set(ctx, "p", profile{Name: "ada", Age: 36}, &Options{Tier: TierL1})

	got, ok := typed.Get(ctx, "p", nil)
	require.True(t, ok)
	assert.Equal(t, profile{Name: "ada", Age: 36}, got)
}

func TestTyped_RemoteRoundTrip(t *testing.T) {
	e := newTestEngine(t, NewMemoryStore(), nil)
	typed := NewTyped[profile](e)
	ctx := context.Background()

	typed.Set(ctx, "p", profile{Name: "ada", Age: 36}, &Options{Tier: TierL2})

	// The remote hit arrives as generic JSON and is converted back to T
	got, ok := typed.Get(ctx, "p", nil)
	require.True(t, ok)
	assert.Equal(t, profile{Name: "ada", Age: 36}, got)
}

func TestTyped_GetOrSet(t *testing.T) {
	e := newTestEngine(t, NewMemoryStore(), nil)
	typed := NewTyped[profile](e)
	ctx := context.Background()

	calls := 0
	fetch := func() (profile, error) {
		calls++
		return profile{Name: "grace", Age: 40}, nil
	}

	got, err := typed.GetOrSet(ctx, "p", fetch, nil)
	require.NoError(t, err)
	assert.Equal(t, "grace", got.Name)

	got, err = typed.GetOrSet(ctx, "p", fetch, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Age)
	assert.Equal(t, 1, calls)
}

func TestTyped_MissReturnsZero(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	typed := NewTyped[profile](e)

	got, ok := typed.Get(context.Background(), "absent", nil)
	assert.False(t, ok)
	assert.Equal(t, profile{}, got)
}
