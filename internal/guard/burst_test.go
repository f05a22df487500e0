package guard

import (
	"testing"
	"time"
)

func TestBurstDetector_RapidFireTrips(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	detector := NewBurstDetector(clock.Now, 10*time.Second, 30)

	for i := 0; i < 30; i++ {
		if detector.Observe("1.2.3.4") {
			t.Fatalf("unexpected burst at event %d", i+1)
		}
		clock.Advance(100 * time.Millisecond)
	}
	if !detector.Observe("1.2.3.4") {
		t.Fatalf("expected burst at event 31")
	}
}

func TestBurstDetector_SpacedEventsNeverTrip(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	detector := NewBurstDetector(clock.Now, 10*time.Second, 30)

	// The same event count spread evenly across more than the window.
	for i := 0; i < 60; i++ {
		if detector.Observe("1.2.3.4") {
			t.Fatalf("unexpected burst at event %d", i+1)
		}
		clock.Advance(time.Second)
	}
}

func TestBurstDetector_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	detector := NewBurstDetector(clock.Now, 10*time.Second, 3)

	detector.Observe("a")
	detector.Observe("a")
	detector.Observe("a")
	if detector.Observe("b") {
		t.Fatalf("unexpected burst for independent key")
	}
	if !detector.Observe("a") {
		t.Fatalf("expected burst for key a")
	}
}

func TestBurstDetector_SweepDropsIdleKeys(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	detector := NewBurstDetector(clock.Now, 10*time.Second, 30)

	detector.Observe("idle")
	clock.Advance(11 * time.Second)
	detector.Observe("active")

	removed := detector.Sweep()
	if removed != 1 {
		t.Fatalf("expected 1 removed got %d", removed)
	}
	if detector.Len() != 1 {
		t.Fatalf("expected 1 key got %d", detector.Len())
	}
}
