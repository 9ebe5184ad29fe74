package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/tiercache/logging"
)

// WarmingStrategy is a named, registered way of proactively populating the
// cache. The Priority field is operator metadata; execution always follows
// registration order.
type WarmingStrategy struct {
	Name        string
	Description string
	Enabled     bool
	Patterns    []string
	Priority    int
	Schedule    string
	// Condition optionally gates the strategy per pass
	Condition func() bool
	// Warm performs the work; errors are isolated per strategy
	Warm func(ctx context.Context) error
}

// WarmingStats summarizes orchestrator state for GetStats
type WarmingStats struct {
	Runs       int64     `json:"runs"`
	LastRun    time.Time `json:"last_run"`
	Strategies int       `json:"strategies"`
	Running    bool      `json:"running"`
}

// Warmer runs registered strategies on demand or on an interval. At most
// one warming pass runs at a time; a call arriving mid-pass is a logged
// no-op, never queued.
type Warmer struct {
	mu         sync.Mutex
	order      []string
	strategies map[string]*WarmingStrategy
	isWarming  bool
	runs       int64
	lastRun    time.Time
	clock      func() time.Time
	logger     logging.LoggerInterface
}

// NewWarmer creates an empty orchestrator
func NewWarmer(logger logging.LoggerInterface) *Warmer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Warmer{
		strategies: make(map[string]*WarmingStrategy),
		clock:      time.Now,
		logger:     logger,
	}
}

// Register adds a strategy by name; re-registration overwrites in place,
// keeping the original execution position
func (w *Warmer) Register(s WarmingStrategy) error {
	if s.Name == "" {
		return fmt.Errorf("warming strategy requires a name")
	}
	if s.Warm == nil {
		return fmt.Errorf("warming strategy %q requires a warm function", s.Name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.strategies[s.Name]; !exists {
		w.order = append(w.order, s.Name)
	}
	w.strategies[s.Name] = &s
	return nil
}

// Strategies returns registered strategies in execution order
func (w *Warmer) Strategies() []WarmingStrategy {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]WarmingStrategy, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, *w.strategies[name])
	}
	return out
}

// Warm runs one named strategy, or every registered strategy in
// registration order when name is empty. It reports whether the pass ran;
// false means a pass was already in flight.
func (w *Warmer) Warm(ctx context.Context, name string) bool {
	w.mu.Lock()
	if w.isWarming {
		w.mu.Unlock()
		w.logger.Debugf("cache warming already in progress, skipping request for %q", name)
		return false
	}
	w.isWarming = true

	var pass []*WarmingStrategy
	if name != "" {
		if s, ok := w.strategies[name]; ok {
			pass = append(pass, s)
		} else {
			w.logger.Warnf("unknown warming strategy %q", name)
		}
	} else {
		for _, n := range w.order {
			pass = append(pass, w.strategies[n])
		}
	}
	w.mu.Unlock()

	started := w.clock()
	warmed := 0
	for _, s := range pass {
		if !s.Enabled {
			continue
		}
		if s.Condition != nil && !s.Condition() {
			w.logger.Debugf("warming strategy %q condition not met", s.Name)
			continue
		}
		if err := w.runStrategy(ctx, s); err != nil {
			w.logger.Errorf("warming strategy %q failed: %v", s.Name, err)
			continue
		}
		warmed++
	}

	w.mu.Lock()
	w.isWarming = false
	w.runs++
	w.lastRun = started
	w.mu.Unlock()

	w.logger.Debugf("warming pass done: %d/%d strategies ran in %v",
		warmed, len(pass), w.clock().Sub(started))
	return true
}

// runStrategy isolates strategy panics and errors from the pass
func (w *Warmer) runStrategy(ctx context.Context, s *WarmingStrategy) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Warm(ctx)
}

// IsWarming reports whether a pass is in flight
func (w *Warmer) IsWarming() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isWarming
}

// Stats returns orchestrator counters
func (w *Warmer) Stats() WarmingStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WarmingStats{
		Runs:       w.runs,
		LastRun:    w.lastRun,
		Strategies: len(w.strategies),
		Running:    w.isWarming,
	}
}
