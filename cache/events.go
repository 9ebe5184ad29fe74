package cache

import (
	"sync"
	"time"
)

// EventType names an engine notification
type EventType string

const (
	// EventHit fires on any tier hit, carrying the tier and read latency
	EventHit EventType = "hit"
	// EventMiss fires when all probed tiers miss
	EventMiss EventType = "miss"
	// EventSet fires after a successful write
	EventSet EventType = "set"
	// EventError fires when an absorbed failure occurs (remote tier,
	// serialization, warming strategy)
	EventError EventType = "error"
	// EventWarmed fires when a warming pass completes
	EventWarmed EventType = "warmed"
	// EventAnalytics fires when a periodic analytics snapshot is produced
	EventAnalytics EventType = "analytics"
	// EventPreload asks listeners to warm a key the engine predicts will
	// be accessed soon; the engine itself cannot refetch arbitrary data
	EventPreload EventType = "preload"
)

// Event is the payload delivered to listeners
type Event struct {
	Type      EventType     `json:"type"`
	Key       string        `json:"key,omitempty"`
	Tier      Tier          `json:"tier,omitempty"`
	Latency   time.Duration `json:"latency,omitempty"`
	Operation string        `json:"operation,omitempty"`
	Err       error         `json:"-"`
	Score     float64       `json:"score,omitempty"`
	Strategy  string        `json:"strategy,omitempty"`
	Analytics *Analytics    `json:"analytics,omitempty"`
	Time      time.Time     `json:"time"`
}

// EventHandler receives engine events. Handlers run synchronously on the
// emitting goroutine and must not block.
type EventHandler func(Event)

// eventBus is a minimal observer registry
type eventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func newEventBus() *eventBus {
	return &eventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

func (b *eventBus) subscribe(t EventType, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

func (b *eventBus) emit(ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
