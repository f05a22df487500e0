// Package guard provides the sliding window counter store.
package guard

import (
	"sync"
	"time"
)

// staleFactor is how many windows a record may sit idle before sweeping.
const staleFactor = 2

type windowRecord struct {
	count       int64
	windowStart time.Time
}

// CounterStore tracks per-key event counts inside fixed sliding windows.
// Each category carries its own window duration; records are keyed by
// (category, client key).
type CounterStore struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[Category]time.Duration
	records map[string]*windowRecord
}

// NewCounterStore constructs a counter store with per-category windows.
func NewCounterStore(now func() time.Time, windows map[Category]time.Duration) *CounterStore {
	if now == nil {
		now = time.Now
	}
	copied := make(map[Category]time.Duration, len(windows))
	for category, window := range windows {
		copied[category] = window
	}
	return &CounterStore{
		now:     now,
		windows: copied,
		records: make(map[string]*windowRecord),
	}
}

// Increment records one event and returns the post-increment count and the
// current window start. A record whose window has elapsed resets to a fresh
// window with count 1.
func (s *CounterStore) Increment(category Category, key string) (int64, time.Time) {
	if s == nil || key == "" {
		return 0, time.Time{}
	}
	window := s.Window(category)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	mapKey := counterKey(category, key)
	record, ok := s.records[mapKey]
	if !ok || now.Sub(record.windowStart) >= window {
		record = &windowRecord{count: 1, windowStart: now}
		s.records[mapKey] = record
		return 1, record.windowStart
	}
	record.count++
	return record.count, record.windowStart
}

// Window returns the window duration for a category.
func (s *CounterStore) Window(category Category) time.Duration {
	if s == nil {
		return 0
	}
	if window, ok := s.windows[category]; ok && window > 0 {
		return window
	}
	return time.Minute
}

// ClearKey removes every category record for a client key.
func (s *CounterStore) ClearKey(key string) {
	if s == nil || key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for category := range s.windows {
		delete(s.records, counterKey(category, key))
	}
}

// Sweep removes records idle for more than staleFactor windows and reports
// how many were removed.
func (s *CounterStore) Sweep() int {
	if s == nil {
		return 0
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for mapKey, record := range s.records {
		window := s.windowForMapKey(mapKey)
		if now.Sub(record.windowStart) >= staleFactor*window {
			delete(s.records, mapKey)
			removed++
		}
	}
	return removed
}

// Len reports the number of live records.
func (s *CounterStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *CounterStore) windowForMapKey(mapKey string) time.Duration {
	for category, window := range s.windows {
		prefix := string(category) + "\x1f"
		if len(mapKey) >= len(prefix) && mapKey[:len(prefix)] == prefix {
			if window > 0 {
				return window
			}
			break
		}
	}
	return time.Minute
}

func counterKey(category Category, key string) string {
	return string(category) + "\x1f" + key
}
