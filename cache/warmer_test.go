package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tiercache/logging"
)

func enabledStrategy(name string, warm func(ctx context.Context) error) WarmingStrategy {
	return WarmingStrategy{
		Name:    name,
		Enabled: true,
		Warm:    warm,
	}
}

func TestWarmer_RegisterValidation(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	err := w.Register(WarmingStrategy{Warm: func(context.Context) error { return nil }})
	assert.Error(t, err)

	err = w.Register(WarmingStrategy{Name: "no-func"})
	assert.Error(t, err)

	err = w.Register(enabledStrategy("ok", func(context.Context) error { return nil }))
	assert.NoError(t, err)
}

func TestWarmer_RegistrationOrder(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	var ran []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, name)
			return nil
		}
	}

	// Priority values must not affect execution order
	s1 := enabledStrategy("first", record("first"))
	s1.Priority = 1
	s2 := enabledStrategy("second", record("second"))
	s2.Priority = 100
	s3 := enabledStrategy("third", record("third"))
	s3.Priority = 50

	require.NoError(t, w.Register(s1))
	require.NoError(t, w.Register(s2))
	require.NoError(t, w.Register(s3))

	assert.True(t, w.Warm(context.Background(), ""))
	assert.Equal(t, []string{"first", "second", "third"}, ran)
}

func TestWarmer_ReRegisterKeepsPosition(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	var ran []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, name)
			return nil
		}
	}

	require.NoError(t, w.Register(enabledStrategy("a", record("a-old"))))
	require.NoError(t, w.Register(enabledStrategy("b", record("b"))))
	require.NoError(t, w.Register(enabledStrategy("a", record("a-new"))))

	assert.True(t, w.Warm(context.Background(), ""))
	assert.Equal(t, []string{"a-new", "b"}, ran)

	strategies := w.Strategies()
	require.Len(t, strategies, 2)
	assert.Equal(t, "a", strategies[0].Name)
}

func TestWarmer_SequentialRuns(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	calls := 0
	require.NoError(t, w.Register(enabledStrategy("count", func(context.Context) error {
		calls++
		return nil
	})))

	assert.True(t, w.Warm(context.Background(), ""))
	assert.True(t, w.Warm(context.Background(), ""))

	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), w.Stats().Runs)
}

func TestWarmer_MutualExclusion(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0

	require.NoError(t, w.Register(enabledStrategy("slow", func(context.Context) error {
		calls++
		close(started)
		<-release
		return nil
	})))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, w.Warm(context.Background(), ""))
	}()

	<-started
	assert.True(t, w.IsWarming())

	// A call arriving mid-pass is a no-op, never queued
	assert.False(t, w.Warm(context.Background(), ""))

	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.False(t, w.IsWarming())
	assert.Equal(t, int64(1), w.Stats().Runs)
}

func TestWarmer_ErrorIsolation(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	var ran []string
	require.NoError(t, w.Register(enabledStrategy("failing", func(context.Context) error {
		ran = append(ran, "failing")
		return errors.New("boom")
	})))
	require.NoError(t, w.Register(enabledStrategy("panicking", func(context.Context) error {
		ran = append(ran, "panicking")
		panic("boom")
	})))
	require.NoError(t, w.Register(enabledStrategy("healthy", func(context.Context) error {
		ran = append(ran, "healthy")
		return nil
	})))

	assert.True(t, w.Warm(context.Background(), ""))
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, ran)
	assert.False(t, w.IsWarming(), "a panic must not leave the warming flag stuck")
}

func TestWarmer_DisabledAndConditional(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	var ran []string
	disabled := enabledStrategy("disabled", func(context.Context) error {
		ran = append(ran, "disabled")
		return nil
	})
	disabled.Enabled = false
	require.NoError(t, w.Register(disabled))

	gated := enabledStrategy("gated", func(context.Context) error {
		ran = append(ran, "gated")
		return nil
	})
	gated.Condition = func() bool { return false }
	require.NoError(t, w.Register(gated))

	require.NoError(t, w.Register(enabledStrategy("open", func(context.Context) error {
		ran = append(ran, "open")
		return nil
	})))

	assert.True(t, w.Warm(context.Background(), ""))
	assert.Equal(t, []string{"open"}, ran)
}

func TestWarmer_WarmSingleStrategy(t *testing.T) {
	w := NewWarmer(logging.NewNopLogger())

	var ran []string
	for _, name := range []string{"a", "b"} {
		name := name
		require.NoError(t, w.Register(enabledStrategy(name, func(context.Context) error {
			ran = append(ran, name)
			return nil
		})))
	}

	assert.True(t, w.Warm(context.Background(), "b"))
	assert.Equal(t, []string{"b"}, ran)

	// Unknown names still complete the pass without running anything
	assert.True(t, w.Warm(context.Background(), "missing"))
	assert.Equal(t, []string{"b"}, ran)
}
