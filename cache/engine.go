package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/tiercache/logging"
)

// Config configures the caching engine
type Config struct {
	// L1 budgets
	L1MaxEntries int   `json:"l1_max_entries"`
	L1MaxBytes   int64 `json:"l1_max_bytes"`

	// Background cycles; zero means the documented default
	WarmingInterval     time.Duration `json:"warming_interval"`
	AnalyticsInterval   time.Duration `json:"analytics_interval"`
	ModelUpdateInterval time.Duration `json:"model_update_interval"`
	PatternRetention    time.Duration `json:"pattern_retention"`

	// MinPredictionDataPoints gates the predictive warming strategy
	MinPredictionDataPoints int `json:"min_prediction_data_points"`

	// Remote value compression
	EnableCompression bool `json:"enable_compression"`
	CompressionLevel  int  `json:"compression_level"`

	// Breaker guards each remote tier
	Breaker BreakerConfig `json:"breaker"`

	// DisableBackground skips the warming/analytics timers; operations
	// and on-demand warming still work
	DisableBackground bool `json:"disable_background"`
}

func (c Config) withDefaults() Config {
	if c.L1MaxEntries <= 0 {
		c.L1MaxEntries = 1000
	}
	if c.L1MaxBytes <= 0 {
		c.L1MaxBytes = 50 * 1024 * 1024
	}
	if c.WarmingInterval <= 0 {
		c.WarmingInterval = defaultWarmingInterval
	}
	if c.AnalyticsInterval <= 0 {
		c.AnalyticsInterval = defaultAnalyticsInterval
	}
	if c.ModelUpdateInterval <= 0 {
		c.ModelUpdateInterval = defaultModelUpdateInterval
	}
	if c.PatternRetention <= 0 {
		c.PatternRetention = defaultPatternRetention
	}
	if c.MinPredictionDataPoints <= 0 {
		c.MinPredictionDataPoints = defaultMinDataPoints
	}
	return c
}

// Engine is the multi-tier caching engine: an in-process L1 LRU, optional
// L2/L3 remote stores, access-pattern tracking, predictive preloading,
// warming and analytics. The cache is advisory; every failure mode except
// a fetch failure is absorbed.
type Engine struct {
	cfg        Config
	lru        *SizedLRU
	l2         RemoteStore
	l3         RemoteStore
	l2Breaker  *Breaker
	l3Breaker  *Breaker
	codec      Codec
	tracker    *PatternTracker
	predictor  *Predictor
	warmer     *Warmer
	metrics    *Metrics
	events     *eventBus
	logger     logging.LoggerInterface
	clock      func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	startTime time.Time
}

// NewEngine creates an engine. Either remote store may be nil, in which
// case that tier is simply skipped.
func NewEngine(cfg Config, l2, l3 RemoteStore, logger logging.LoggerInterface) *Engine {
	if logger == nil {
		logger = logging.GetLogger()
	}
	cfg = cfg.withDefaults()

	tracker := NewPatternTracker()
	e := &Engine{
		cfg:        cfg,
		lru:        NewSizedLRU(cfg.L1MaxEntries, cfg.L1MaxBytes, logger),
		l2:         l2,
		l3:         l3,
		l2Breaker:  NewBreaker(cfg.Breaker),
		l3Breaker:  NewBreaker(cfg.Breaker),
		codec:      newCodec(cfg.EnableCompression, cfg.CompressionLevel),
		tracker:    tracker,
		predictor:  NewPredictor(tracker, cfg.ModelUpdateInterval),
		warmer:     NewWarmer(logger),
		metrics:    NewMetrics(),
		events:     newEventBus(),
		logger:     logger,
		clock:      time.Now,
		stop:       make(chan struct{}),
		startTime:  time.Now(),
	}

	e.registerBuiltinStrategies()

	if !cfg.DisableBackground {
		go e.warmingLoop()
		go e.analyticsLoop()
	}

	return e
}

// OnEvent registers a listener for one event type. Handlers run
// synchronously on the emitting goroutine and must not block.
func (e *Engine) OnEvent(t EventType, h EventHandler) {
	e.events.subscribe(t, h)
}

// Get probes L1, then L2, then L3 (or only the pinned tier) and returns
// the value if any tier holds it. Hits may promote the value into faster
// tiers. Remote-tier failures degrade to a miss.
func (e *Engine) Get(ctx context.Context, key string, opts *Options) (interface{}, bool) {
	if e.isClosed() {
		return nil, false
	}
	o := opts.withDefaults()
	start := e.clock()

	e.tracker.RecordAccess(key)
	if o.Predictive {
		e.predictor.Evaluate(key)
	}

	if o.Tier == TierAuto || o.Tier == TierL1 {
		if entry, ok := e.lru.Get(key); ok {
			e.finishHit(key, TierL1, start)
			return entry.Value, true
		}
		e.metrics.RecordTierMiss(TierL1)
		if o.Tier == TierL1 {
			return e.finishMiss(key, start)
		}
	}

	if o.Tier == TierAuto || o.Tier == TierL2 {
		if value, size, ok := e.remoteGet(ctx, TierL2, key, o); ok {
			e.promote(ctx, key, value, size, TierL2, o)
			e.finishHit(key, TierL2, start)
			return value, true
		}
		e.metrics.RecordTierMiss(TierL2)
		if o.Tier == TierL2 {
			return e.finishMiss(key, start)
		}
	}

	if o.Tier == TierAuto || o.Tier == TierL3 {
		if value, size, ok := e.remoteGet(ctx, TierL3, key, o); ok {
			e.promote(ctx, key, value, size, TierL3, o)
			e.finishHit(key, TierL3, start)
			return value, true
		}
		e.metrics.RecordTierMiss(TierL3)
	}

	return e.finishMiss(key, start)
}

// Set writes a value to the tier chosen directly by the size/frequency
// heuristic (or the pinned tier), bypassing probing. Remote failures
// degrade to a no-op.
func (e *Engine) Set(ctx context.Context, key string, value interface{}, opts *Options) {
	if e.isClosed() {
		return
	}
	o := opts.withDefaults()
	now := e.clock()

	size := estimateSize(value)
	tier := o.Tier
	if tier == TierAuto {
		count, _, _ := e.tracker.AccessInfo(key)
		tier = e.placementTier(selectTier(size, count, o.Priority))
	}

	switch tier {
	case TierL1:
		e.setL1(key, value, size, now, o)
	case TierL2, TierL3:
		e.remoteSet(ctx, tier, key, value, o)
	}

	e.predictor.Record(key)
	e.metrics.RecordSet()
	e.events.emit(Event{Type: EventSet, Key: key, Tier: tier, Time: now})
}

// GetOrSet returns the cached value, or invokes fetch on a full miss,
// caches the result with a latency-scaled TTL, and returns it. Fetch
// errors are the one failure mode that propagates to the caller.
func (e *Engine) GetOrSet(ctx context.Context, key string, fetch FetchFunc, opts *Options) (interface{}, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}
	if value, ok := e.Get(ctx, key, opts); ok {
		return value, nil
	}

	o := opts.withDefaults()
	start := e.clock()
	e.metrics.RecordFetch()

	value, err := fetch()
	fetchDuration := e.clock().Sub(start)
	if err != nil {
		e.logger.Warnf("fetch for key %s failed after %v: %v", key, fetchDuration, err)
		e.metrics.RecordError()
		e.events.emit(Event{
			Type: EventError, Key: key, Operation: "fetch",
			Err: err, Time: e.clock(),
		})
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	writeOpts := o
	writeOpts.TTL = dynamicTTL(o.ttlFor(TierL1), fetchDuration)
	e.Set(ctx, key, value, &writeOpts)

	if o.Predictive && fetchDuration > slowFetchThreshold {
		e.triggerPredictiveLoad(key)
	}

	return value, nil
}

// Invalidate removes a key from every tier; it reports whether any tier
// held it
func (e *Engine) Invalidate(ctx context.Context, key string, opts *Options) bool {
	if e.isClosed() {
		return false
	}
	o := opts.withDefaults()

	existed := e.lru.Delete(key)
	for _, tier := range []Tier{TierL2, TierL3} {
		store, breaker := e.tierStore(tier)
		if store == nil || !breaker.Allow() {
			continue
		}
		ok, err := store.Delete(ctx, e.remoteKey(tier, o.Prefix, key))
		if err != nil {
			e.degradeRemote(tier, breaker, "delete", key, err)
			continue
		}
		breaker.RecordSuccess()
		existed = existed || ok
	}
	return existed
}

// InvalidateByTag removes every entry carrying the tag across all tiers
// and returns the total removed
func (e *Engine) InvalidateByTag(ctx context.Context, tag string) int {
	if e.isClosed() {
		return 0
	}

	count := e.lru.DeleteByTag(tag)
	for _, tier := range []Tier{TierL2, TierL3} {
		store, breaker := e.tierStore(tier)
		if store == nil || !breaker.Allow() {
			continue
		}
		n, err := store.DeleteByTag(ctx, tag)
		if err != nil {
			e.degradeRemote(tier, breaker, "invalidate_by_tag", tag, err)
			continue
		}
		breaker.RecordSuccess()
		count += n
	}
	return count
}

// Clear drops all entries from every tier
func (e *Engine) Clear(ctx context.Context) {
	if e.isClosed() {
		return
	}

	e.lru.Clear()
	for _, tier := range []Tier{TierL2, TierL3} {
		store, breaker := e.tierStore(tier)
		if store == nil || !breaker.Allow() {
			continue
		}
		if err := store.Flush(ctx); err != nil {
			e.degradeRemote(tier, breaker, "clear", "", err)
			continue
		}
		breaker.RecordSuccess()
	}
}

// AddWarmingStrategy registers a strategy; re-registration by name
// overwrites
func (e *Engine) AddWarmingStrategy(s WarmingStrategy) error {
	return e.warmer.Register(s)
}

// WarmCache runs one named strategy, or all of them in registration order
// when name is empty. A call arriving while a pass is running is a no-op.
func (e *Engine) WarmCache(ctx context.Context, name string) {
	if e.isClosed() {
		return
	}
	if e.warmer.Warm(ctx, name) {
		e.events.emit(Event{Type: EventWarmed, Strategy: name, Time: e.clock()})
	}
}

// GetStats returns the running counters across all components
func (e *Engine) GetStats() Stats {
	tiers := make(map[Tier]TierStats, 3)
	for _, tier := range []Tier{TierL1, TierL2, TierL3} {
		hits := e.metrics.TierHits(tier)
		misses := e.metrics.TierMisses(tier)
		ts := TierStats{Hits: hits, Misses: misses}
		if hits+misses > 0 {
			ts.HitRate = float64(hits) / float64(hits+misses)
		}
		tiers[tier] = ts
	}

	return Stats{
		Tiers:   tiers,
		Hits:    e.metrics.Hits(),
		Misses:  e.metrics.Misses(),
		HitRate: e.metrics.HitRate(),
		Sets:    e.metrics.Sets(),
		Errors:  e.metrics.Errors(),
		Fetches: e.metrics.Fetches(),
		L1: L1Stats{
			Entries:        e.lru.Len(),
			MaxEntries:     e.cfg.L1MaxEntries,
			MemoryBytes:    e.lru.MemoryUsage(),
			MaxMemoryBytes: e.cfg.L1MaxBytes,
			Evictions:      e.lru.Evictions(),
			HotKeys:        e.lru.HotKeyCount(),
		},
		Predictions:    e.predictor.Stats(),
		Warming:        e.warmer.Stats(),
		AvgReadLatency: e.metrics.AvgReadLatency(),
		P95ReadLatency: e.metrics.P95ReadLatency(),
		Uptime:         e.clock().Sub(e.startTime),
	}
}

// GetAnalytics builds an analytics snapshot on demand
func (e *Engine) GetAnalytics() *Analytics {
	return buildAnalytics(e.clock(), e.tracker, e.metrics, e.lru)
}

// Ping checks remote tier health; a nil store is healthy by absence
func (e *Engine) Ping(ctx context.Context) error {
	for _, tier := range []Tier{TierL2, TierL3} {
		store, _ := e.tierStore(tier)
		if store == nil {
			continue
		}
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("tier %s: %w", tier, err)
		}
	}
	return nil
}

// Close stops the background timers. Cache state is disposable, so nothing
// is flushed. Remote stores are owned by the caller and stay open.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.stop)
	})
}

func (e *Engine) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// remoteKey namespaces a key by tier and optional caller prefix
func (e *Engine) remoteKey(tier Tier, prefix, key string) string {
	if prefix == "" {
		return fmt.Sprintf("%s:%s", tier, key)
	}
	return fmt.Sprintf("%s:%s:%s", tier, prefix, key)
}

// placementTier degrades an auto-selected tier to the nearest tier that
// actually has a store, ending at L1 which always exists. Pinned tiers
// never pass through here; a pinned write to an absent tier stays a no-op.
func (e *Engine) placementTier(tier Tier) Tier {
	switch tier {
	case TierL2:
		if e.l2 != nil {
			return TierL2
		}
		if e.l3 != nil {
			return TierL3
		}
	case TierL3:
		if e.l3 != nil {
			return TierL3
		}
		if e.l2 != nil {
			return TierL2
		}
	default:
		return tier
	}
	return TierL1
}

func (e *Engine) tierStore(tier Tier) (RemoteStore, *Breaker) {
	if tier == TierL3 {
		return e.l3, e.l3Breaker
	}
	return e.l2, e.l2Breaker
}

// remoteGet probes one remote tier; any failure is degraded to a miss
func (e *Engine) remoteGet(ctx context.Context, tier Tier, key string, o Options) (interface{}, int64, bool) {
	store, breaker := e.tierStore(tier)
	if store == nil || !breaker.Allow() {
		return nil, 0, false
	}

	data, ok, err := store.Get(ctx, e.remoteKey(tier, o.Prefix, key))
	if err != nil {
		e.degradeRemote(tier, breaker, "get", key, err)
		return nil, 0, false
	}
	breaker.RecordSuccess()
	if !ok {
		return nil, 0, false
	}

	if o.Raw {
		return data, int64(len(data)), true
	}

	var value interface{}
	if err := e.codec.Decode(data, &value); err != nil {
		e.logger.Warnf("failed to decode %s value for key %s: %v", tier, key, err)
		e.metrics.RecordError()
		e.events.emit(Event{Type: EventError, Key: key, Tier: tier, Operation: "decode", Err: err, Time: e.clock()})
		return nil, 0, false
	}
	return value, int64(len(data)), true
}

// remoteSet writes one remote tier; any failure is degraded to a no-op
func (e *Engine) remoteSet(ctx context.Context, tier Tier, key string, value interface{}, o Options) {
	store, breaker := e.tierStore(tier)
	if store == nil || !breaker.Allow() {
		return
	}

	var data []byte
	if raw, ok := value.([]byte); ok && o.Raw {
		data = raw
	} else {
		var err error
		data, err = e.codec.Encode(value)
		if err != nil {
			e.logger.Warnf("failed to encode value for key %s: %v", key, err)
			e.metrics.RecordError()
			e.events.emit(Event{Type: EventError, Key: key, Tier: tier, Operation: "encode", Err: err, Time: e.clock()})
			return
		}
	}

	rk := e.remoteKey(tier, o.Prefix, key)
	if err := store.Set(ctx, rk, data, o.ttlFor(tier)); err != nil {
		e.degradeRemote(tier, breaker, "set", key, err)
		return
	}
	if err := store.Tag(ctx, rk, o.Tags); err != nil {
		e.degradeRemote(tier, breaker, "tag", key, err)
		return
	}
	breaker.RecordSuccess()
}

// setL1 inserts into the in-process tier; an oversized value is dropped
// with an error event rather than failing the caller
func (e *Engine) setL1(key string, value interface{}, size int64, now time.Time, o Options) {
	entry := Entry{
		Value:        value,
		CreatedAt:    now,
		ExpiresAt:    now.Add(o.ttlFor(TierL1)),
		LastAccessed: now,
		Size:         size,
		Tags:         o.Tags,
		Tier:         TierL1,
		Priority:     o.Priority,
	}
	entry.refreshDerived(now)

	if err := e.lru.Set(key, entry); err != nil {
		e.logger.Warnf("L1 set for key %s rejected: %v", key, err)
		e.metrics.RecordError()
		e.events.emit(Event{Type: EventError, Key: key, Tier: TierL1, Operation: "set", Err: err, Time: now})
	}
}

// promote copies a remote hit into faster tiers when the entry qualifies
func (e *Engine) promote(ctx context.Context, key string, value interface{}, size int64, from Tier, o Options) {
	count, _, _ := e.tracker.AccessInfo(key)
	qualifiesL1 := o.Priority >= PriorityHigh ||
		(size <= autoTierL1SizeLimit && count >= autoTierHotAccessCount)

	if qualifiesL1 {
		e.setL1(key, value, size, e.clock(), o)
	}
	if from == TierL3 && size <= autoTierL2SizeLimit {
		e.remoteSet(ctx, TierL2, key, value, o)
	}
}

func (e *Engine) degradeRemote(tier Tier, breaker *Breaker, op, key string, err error) {
	breaker.RecordFailure()
	e.metrics.RecordError()
	e.logger.Warnf("%s %s for key %s degraded: %v", tier, op, key, err)
	e.events.emit(Event{Type: EventError, Key: key, Tier: tier, Operation: op, Err: err, Time: e.clock()})
}

func (e *Engine) finishHit(key string, tier Tier, start time.Time) {
	latency := e.clock().Sub(start)
	e.metrics.RecordHit(tier, latency)
	e.events.emit(Event{Type: EventHit, Key: key, Tier: tier, Latency: latency, Time: e.clock()})
}

func (e *Engine) finishMiss(key string, start time.Time) (interface{}, bool) {
	latency := e.clock().Sub(start)
	e.metrics.RecordMiss(latency)
	e.events.emit(Event{Type: EventMiss, Key: key, Latency: latency, Time: e.clock()})
	return nil, false
}

// triggerPredictiveLoad emits a preload signal for related keys likely to
// be accessed soon. Listeners decide how to refetch; the engine cannot.
func (e *Engine) triggerPredictiveLoad(key string) {
	for _, related := range e.tracker.Related(key, relatedKeyLimit) {
		score := e.predictor.Score(related)
		if score > preloadScoreThreshold {
			e.events.emit(Event{Type: EventPreload, Key: related, Score: score, Time: e.clock()})
		}
	}
}

// registerBuiltinStrategies installs the standard warming strategies. The
// session and config strategies ship disabled as wiring points for
// application-specific warmup functions.
func (e *Engine) registerBuiltinStrategies() {
	_ = e.warmer.Register(WarmingStrategy{
		Name:        "frequently_accessed",
		Description: "signal preload for the most accessed keys",
		Enabled:     true,
		Priority:    100,
		Warm: func(ctx context.Context) error {
			for _, ka := range e.tracker.TopKeys(frequentKeyWarmLimit) {
				e.events.emit(Event{
					Type: EventPreload, Key: ka.Key,
					Strategy: "frequently_accessed", Time: e.clock(),
				})
			}
			return nil
		},
	})

	_ = e.warmer.Register(WarmingStrategy{
		Name:        "predictive_warming",
		Description: "signal preload for keys with high prediction scores",
		Enabled:     true,
		Priority:    90,
		Condition: func() bool {
			return e.predictor.Len() >= e.cfg.MinPredictionDataPoints
		},
		Warm: func(ctx context.Context) error {
			for _, ka := range e.tracker.TopKeys(frequentKeyWarmLimit) {
				score := e.predictor.Score(ka.Key)
				if score > preloadScoreThreshold {
					e.events.emit(Event{
						Type: EventPreload, Key: ka.Key, Score: score,
						Strategy: "predictive_warming", Time: e.clock(),
					})
				}
			}
			return nil
		},
	})

	_ = e.warmer.Register(WarmingStrategy{
		Name:        "session_data",
		Description: "wiring point for session prefix warmup",
		Enabled:     false,
		Patterns:    []string{"session:*"},
		Priority:    50,
		Warm: func(ctx context.Context) error {
			for _, key := range e.tracker.KeysMatching("session:*") {
				e.events.emit(Event{Type: EventPreload, Key: key, Strategy: "session_data", Time: e.clock()})
			}
			return nil
		},
	})

	_ = e.warmer.Register(WarmingStrategy{
		Name:        "config_data",
		Description: "wiring point for config prefix warmup",
		Enabled:     false,
		Patterns:    []string{"config:*"},
		Priority:    50,
		Warm: func(ctx context.Context) error {
			for _, key := range e.tracker.KeysMatching("config:*") {
				e.events.emit(Event{Type: EventPreload, Key: key, Strategy: "config_data", Time: e.clock()})
			}
			return nil
		},
	})
}

// warmingLoop runs the full warming pass on an interval. It is scheduled
// independently of the analytics loop so a slow strategy cannot delay
// analytics.
func (e *Engine) warmingLoop() {
	ticker := time.NewTicker(e.cfg.WarmingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.WarmCache(context.Background(), "")
		case <-e.stop:
			return
		}
	}
}

// analyticsLoop cleans stale pattern and prediction records and emits a
// fresh analytics snapshot on an interval
func (e *Engine) analyticsLoop() {
	ticker := time.NewTicker(e.cfg.AnalyticsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.analyticsCycle()
		case <-e.stop:
			return
		}
	}
}

func (e *Engine) analyticsCycle() {
	removedPatterns := e.tracker.Cleanup(e.cfg.PatternRetention)
	removedPredictions := e.predictor.Prune()
	if removedPatterns > 0 || removedPredictions > 0 {
		e.logger.Debugf("analytics cleanup: %d pattern records, %d predictions dropped",
			removedPatterns, removedPredictions)
	}

	snapshot := e.GetAnalytics()
	e.events.emit(Event{Type: EventAnalytics, Analytics: snapshot, Time: e.clock()})
}
