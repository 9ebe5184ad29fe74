package cache

import (
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the string representation of the state
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards a remote tier. After enough consecutive failures the tier
// is skipped entirely (fast degrade-to-miss) until a cooldown elapses, then
// a limited number of probes decide whether to close again.
type Breaker struct {
	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	halfOpenSuccesses   int
	lastFailure         time.Time
	maxFailures         int
	cooldown            time.Duration
	successThreshold    int
	clock               func() time.Time
}

// BreakerConfig configures a tier circuit breaker
type BreakerConfig struct {
	MaxFailures      int           `json:"max_failures"`
	Cooldown         time.Duration `json:"cooldown"`
	SuccessThreshold int           `json:"success_threshold"`
}

// NewBreaker creates a circuit breaker in the closed state
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}

	return &Breaker{
		state:            BreakerClosed,
		maxFailures:      config.MaxFailures,
		cooldown:         config.Cooldown,
		successThreshold: config.SuccessThreshold,
		clock:            time.Now,
	}
}

// Allow reports whether a call to the guarded tier may proceed
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.clock().Sub(b.lastFailure) >= b.cooldown {
			b.state = BreakerHalfOpen
			b.halfOpenSuccesses = 0
			return true
		}
		return false
	case BreakerHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess notes a successful call
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	if b.state == BreakerHalfOpen {
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.successThreshold {
			b.state = BreakerClosed
		}
	}
}

// RecordFailure notes a failed call; a half-open failure reopens immediately
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailure = b.clock()

	switch b.state {
	case BreakerClosed:
		if b.consecutiveFailures >= b.maxFailures {
			b.state = BreakerOpen
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
	}
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
