// Package guard provides short-window burst detection.
package guard

import (
	"sync"
	"time"
)

// BurstDetector keeps a rolling log of recent event timestamps per client
// key and reports rapid-fire bursts that a longer rate window averages away.
// It only reports; escalation is the caller's decision.
type BurstDetector struct {
	mu        sync.Mutex
	now       func() time.Time
	window    time.Duration
	threshold int
	logs      map[string][]time.Time
}

// NewBurstDetector constructs a detector for the given window and threshold.
func NewBurstDetector(now func() time.Time, window time.Duration, threshold int) *BurstDetector {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	if threshold <= 0 {
		threshold = 30
	}
	return &BurstDetector{
		now:       now,
		window:    window,
		threshold: threshold,
		logs:      make(map[string][]time.Time),
	}
}

// Observe records an event for the key and reports whether the retained
// event count exceeds the burst threshold.
func (d *BurstDetector) Observe(key string) bool {
	if d == nil || key == "" {
		return false
	}
	now := d.now()
	cutoff := now.Add(-d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	log := d.logs[key]
	retained := log[:0]
	for _, t := range log {
		if t.After(cutoff) {
			retained = append(retained, t)
		}
	}
	retained = append(retained, now)
	d.logs[key] = retained
	return len(retained) > d.threshold
}

// ClearKey drops the timestamp log for a key.
func (d *BurstDetector) ClearKey(key string) {
	if d == nil || key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.logs, key)
}

// Sweep drops logs whose newest entry fell out of the burst window and
// reports how many were removed.
func (d *BurstDetector) Sweep() int {
	if d == nil {
		return 0
	}
	cutoff := d.now().Add(-d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, log := range d.logs {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(d.logs, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (d *BurstDetector) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.logs)
}
