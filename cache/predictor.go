package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Predictor estimates near-future access likelihood per key from recency
// and frequency, and keeps soft accuracy bookkeeping. Predictions are an
// optimization hint, never a correctness gate.
type Predictor struct {
	mu             sync.Mutex
	records        map[string]predictionRecord
	tracker        *PatternTracker
	updateInterval time.Duration
	clock          func() time.Time

	opportunities int64
	correct       int64
}

// predictionRecord marks a "we predict this key will matter" decision
type predictionRecord struct {
	score     float64
	timestamp time.Time
}

// PredictionStats summarizes prediction bookkeeping for GetStats
type PredictionStats struct {
	DataPoints    int     `json:"data_points"`
	Opportunities int64   `json:"opportunities"`
	Correct       int64   `json:"correct"`
	Accuracy      float64 `json:"accuracy"`
}

// NewPredictor creates a predictor fed by the given tracker
func NewPredictor(tracker *PatternTracker, updateInterval time.Duration) *Predictor {
	if updateInterval <= 0 {
		updateInterval = defaultModelUpdateInterval
	}
	return &Predictor{
		records:        make(map[string]predictionRecord),
		tracker:        tracker,
		updateInterval: updateInterval,
		clock:          time.Now,
	}
}

// Score computes a 0-1 "will be accessed again soon" estimate: recency
// decays linearly to zero over 24 hours, frequency saturates at 10 accesses
func (p *Predictor) Score(key string) float64 {
	count, lastAccess, ok := p.tracker.AccessInfo(key)
	if !ok {
		return 0
	}

	hoursSince := p.clock().Sub(lastAccess).Hours()
	recency := 1 - hoursSince/recencyDecayHours
	if recency < 0 {
		recency = 0
	}

	frequency := float64(count) / frequencySaturation
	if frequency > 1 {
		frequency = 1
	}

	return recency*0.6 + frequency*0.4
}

// Record stores a prediction for a key that was just written, and prunes
// records older than the model-update interval
func (p *Predictor) Record(key string) {
	now := p.clock()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.records[key] = predictionRecord{score: p.scoreLocked(key, now), timestamp: now}

	cutoff := now.Add(-p.updateInterval)
	for k, rec := range p.records {
		if rec.timestamp.Before(cutoff) {
			delete(p.records, k)
		}
	}
}

// scoreLocked mirrors Score without re-entering the predictor mutex
func (p *Predictor) scoreLocked(key string, now time.Time) float64 {
	count, lastAccess, ok := p.tracker.AccessInfo(key)
	if !ok {
		return 0
	}
	recency := 1 - now.Sub(lastAccess).Hours()/recencyDecayHours
	if recency < 0 {
		recency = 0
	}
	frequency := float64(count) / frequencySaturation
	if frequency > 1 {
		frequency = 1
	}
	return recency*0.6 + frequency*0.4
}

// Evaluate performs the accuracy bookkeeping for a predictive read: a live
// prediction counts as an opportunity, and a fresh score above the hit
// threshold counts it correct. Evaluation uses the current score, so treat
// the resulting ratio as a diagnostic, not a measurement.
func (p *Predictor) Evaluate(key string) {
	p.mu.Lock()
	_, live := p.records[key]
	p.mu.Unlock()

	if !live {
		return
	}

	atomic.AddInt64(&p.opportunities, 1)
	if p.Score(key) > predictionHitScore {
		atomic.AddInt64(&p.correct, 1)
	}
}

// Prune drops predictions older than the model-update interval
func (p *Predictor) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.clock().Add(-p.updateInterval)
	removed := 0
	for k, rec := range p.records {
		if rec.timestamp.Before(cutoff) {
			delete(p.records, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live prediction records
func (p *Predictor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// Stats returns the accuracy counters
func (p *Predictor) Stats() PredictionStats {
	opportunities := atomic.LoadInt64(&p.opportunities)
	correct := atomic.LoadInt64(&p.correct)

	stats := PredictionStats{
		DataPoints:    p.Len(),
		Opportunities: opportunities,
		Correct:       correct,
	}
	if opportunities > 0 {
		stats.Accuracy = float64(correct) / float64(opportunities)
	}
	return stats
}
