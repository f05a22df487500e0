// Package guard provides in-memory metrics.
package guard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// InMemoryMetrics stores counters and latency summaries.
type InMemoryMetrics struct {
	counters  sync.Map
	latencies sync.Map
}

type latencySummary struct {
	count      atomic.Int64
	totalNanos atomic.Int64
	maxNanos   atomic.Int64
}

// NewInMemoryMetrics constructs an in-memory metrics recorder.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

// IncDecision increments a pipeline decision counter for a stage.
func (m *InMemoryMetrics) IncDecision(stage string, result string) {
	if m == nil {
		return
	}
	m.addCounter(fmt.Sprintf("decision|%s|%s", stage, result), 1)
}

// IncBlock increments the block counter for a reason.
func (m *InMemoryMetrics) IncBlock(reason string) {
	if m == nil {
		return
	}
	m.addCounter(fmt.Sprintf("block|%s", reason), 1)
}

// AddSwept records entries removed from a store during a sweep.
func (m *InMemoryMetrics) AddSwept(store string, removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.addCounter(fmt.Sprintf("swept|%s", store), int64(removed))
}

// ObserveLatency tracks latency measurements for an operation.
func (m *InMemoryMetrics) ObserveLatency(op string, d time.Duration) {
	if m == nil {
		return
	}
	entry := m.getLatency(fmt.Sprintf("latency|%s", op))
	if entry == nil {
		return
	}
	nanos := d.Nanoseconds()
	entry.count.Add(1)
	entry.totalNanos.Add(nanos)
	for {
		current := entry.maxNanos.Load()
		if nanos <= current {
			break
		}
		if entry.maxNanos.CompareAndSwap(current, nanos) {
			break
		}
	}
}

// Snapshot exports metrics values.
func (m *InMemoryMetrics) Snapshot() map[string]any {
	result := map[string]any{}
	if m == nil {
		return result
	}

	counters := map[string]int64{}
	m.counters.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Int64)
		if !ok || counter == nil {
			return true
		}
		counters[k] = counter.Load()
		return true
	})

	latencies := map[string]map[string]int64{}
	m.latencies.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}
		entry, ok := value.(*latencySummary)
		if !ok || entry == nil {
			return true
		}
		latencies[k] = map[string]int64{
			"count":      entry.count.Load(),
			"totalNanos": entry.totalNanos.Load(),
			"maxNanos":   entry.maxNanos.Load(),
		}
		return true
	})

	result["counters"] = counters
	result["latencies"] = latencies
	return result
}

func (m *InMemoryMetrics) addCounter(key string, n int64) {
	counter := m.getCounter(key)
	if counter == nil {
		return
	}
	counter.Add(n)
}

func (m *InMemoryMetrics) getCounter(key string) *atomic.Int64 {
	if key == "" {
		return nil
	}
	if existing, ok := m.counters.Load(key); ok {
		if counter, ok := existing.(*atomic.Int64); ok {
			return counter
		}
	}
	counter := &atomic.Int64{}
	actual, _ := m.counters.LoadOrStore(key, counter)
	if stored, ok := actual.(*atomic.Int64); ok {
		return stored
	}
	return counter
}

func (m *InMemoryMetrics) getLatency(key string) *latencySummary {
	if key == "" {
		return nil
	}
	if existing, ok := m.latencies.Load(key); ok {
		if entry, ok := existing.(*latencySummary); ok {
			return entry
		}
	}
	entry := &latencySummary{}
	actual, _ := m.latencies.LoadOrStore(key, entry)
	if stored, ok := actual.(*latencySummary); ok {
		return stored
	}
	return entry
}
