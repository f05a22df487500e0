package guard

import (
	"testing"
	"time"
)

func TestLoginTracker_LocksAtMaxAttempts(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	tracker := NewLoginTracker(clock.Now, 10, 5*time.Minute)

	var status LoginStatus
	for i := 0; i < 10; i++ {
		status = tracker.RecordFailure("alice", "1.2.3.4")
	}
	if !status.Locked {
		t.Fatalf("expected lock after 10 failures: %#v", status)
	}
	want := clock.Now().Add(5 * time.Minute)
	if !status.LockedUntil.Equal(want) {
		t.Fatalf("expected lockedUntil %v got %v", want, status.LockedUntil)
	}

	check := tracker.CheckAllowed("alice", "1.2.3.4")
	if check.Allowed || !check.Locked {
		t.Fatalf("expected denied while locked: %#v", check)
	}
	if check.Wait <= 0 || check.Wait > 5*time.Minute {
		t.Fatalf("unexpected wait: %v", check.Wait)
	}
}

func TestLoginTracker_RemainingCountsDown(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	tracker := NewLoginTracker(clock.Now, 10, 5*time.Minute)

	status := tracker.RecordFailure("alice", "1.2.3.4")
	if status.Remaining != 9 {
		t.Fatalf("expected 9 remaining got %d", status.Remaining)
	}
	status = tracker.RecordFailure("alice", "1.2.3.4")
	if status.Remaining != 8 {
		t.Fatalf("expected 8 remaining got %d", status.Remaining)
	}
}

func TestLoginTracker_ClearResetsBudget(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	tracker := NewLoginTracker(clock.Now, 10, 5*time.Minute)

	for i := 0; i < 9; i++ {
		tracker.RecordFailure("alice", "1.2.3.4")
	}
	tracker.Clear("alice", "1.2.3.4")

	status := tracker.CheckAllowed("alice", "1.2.3.4")
	if !status.Allowed || status.Remaining != 10 {
		t.Fatalf("expected fresh budget after clear: %#v", status)
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected no records got %d", tracker.Len())
	}
}

func TestLoginTracker_LockExpiryGrantsFreshBudget(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	tracker := NewLoginTracker(clock.Now, 10, 5*time.Minute)

	for i := 0; i < 10; i++ {
		tracker.RecordFailure("alice", "1.2.3.4")
	}
	clock.Advance(5 * time.Minute)

	status := tracker.CheckAllowed("alice", "1.2.3.4")
	if !status.Allowed || status.Remaining != 10 {
		t.Fatalf("expected fresh budget after expiry: %#v", status)
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected expired record deleted got %d", tracker.Len())
	}
}

func TestLoginTracker_PairsAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	tracker := NewLoginTracker(clock.Now, 2, 5*time.Minute)

	tracker.RecordFailure("alice", "1.2.3.4")
	status := tracker.RecordFailure("alice", "1.2.3.4")
	if !status.Locked {
		t.Fatalf("expected alice@1.2.3.4 locked: %#v", status)
	}

	if s := tracker.CheckAllowed("alice", "5.6.7.8"); !s.Allowed {
		t.Fatalf("expected alice from another identity allowed: %#v", s)
	}
	if s := tracker.CheckAllowed("bob", "1.2.3.4"); !s.Allowed {
		t.Fatalf("expected bob from same identity allowed: %#v", s)
	}
}

func TestLoginTracker_SweepKeepsRecentFailures(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	tracker := NewLoginTracker(clock.Now, 10, 5*time.Minute)

	tracker.RecordFailure("old", "1.2.3.4")
	clock.Advance(5 * time.Minute)
	tracker.RecordFailure("recent", "1.2.3.4")

	removed := tracker.Sweep()
	if removed != 1 {
		t.Fatalf("expected 1 removed got %d", removed)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected 1 record got %d", tracker.Len())
	}
}
