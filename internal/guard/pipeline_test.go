package guard

import (
	"testing"
	"time"
)

func testGuard(t *testing.T, clock *testClock, mutate ...func(*Config)) *Guard {
	t.Helper()
	cfg := &Config{
		GeneralLimit:     200,
		GeneralWindow:    time.Minute,
		AuthLimit:        20,
		AuthWindow:       5 * time.Minute,
		BurstThreshold:   30,
		BurstWindow:      10 * time.Second,
		LoginMaxAttempts: 10,
		LockoutDuration:  5 * time.Minute,
		BlockDuration:    15 * time.Minute,
		SweepInterval:    time.Minute,
		Logger:           &StdLogger{},
		Now:              clock.Now,
	}
	for _, fn := range mutate {
		fn(cfg)
	}
	g, err := NewGuard(cfg)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g
}

// withoutBurst raises the burst threshold out of reach so tests can drive the
// rate window directly.
func withoutBurst(cfg *Config) { cfg.BurstThreshold = 1 << 20 }

func TestNewGuard_RejectsInvalidLimits(t *testing.T) {
	t.Parallel()

	if _, err := NewGuard(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := NewGuard(&Config{GeneralLimit: 0, GeneralWindow: time.Minute}); err == nil {
		t.Fatalf("expected error for zero general limit")
	}
	if _, err := NewGuard(&Config{
		GeneralLimit:  10,
		GeneralWindow: time.Minute,
		AuthLimit:     5,
	}); err == nil {
		t.Fatalf("expected error for zero auth window")
	}
}

func TestGuard_ThrottlesAboveGeneralLimit(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock, withoutBurst)

	for i := int64(0); i < 200; i++ {
		clock.Advance(250 * time.Millisecond)
		verdict := g.Check("1.2.3.4")
		if !verdict.Allowed() {
			t.Fatalf("request %d: expected allow got %#v", i+1, verdict)
		}
	}

	clock.Advance(250 * time.Millisecond)
	verdict := g.Check("1.2.3.4")
	if verdict.Code != VerdictThrottled {
		t.Fatalf("expected throttle on 201st request got %#v", verdict)
	}
	if verdict.RetryAfter <= 0 || verdict.RetryAfter > time.Minute {
		t.Fatalf("expected retryAfter within the window got %v", verdict.RetryAfter)
	}
}

func TestGuard_WindowExpiryResetsToOne(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock, withoutBurst)

	for i := 0; i < 150; i++ {
		clock.Advance(300 * time.Millisecond)
		g.Check("1.2.3.4")
	}

	clock.Advance(2 * time.Minute)
	verdict := g.Check("1.2.3.4")
	if !verdict.Allowed() || verdict.Remaining != 199 {
		t.Fatalf("expected fresh window with 199 remaining got %#v", verdict)
	}
}

func TestGuard_EscalatesRepeatedOverage(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock, withoutBurst)

	// Drive the counter past 1.5x the cap. 300 is exactly the boundary and
	// still throttles; 301 crosses it.
	var verdict Verdict
	for i := int64(0); i < 301; i++ {
		clock.Advance(150 * time.Millisecond)
		verdict = g.Check("1.2.3.4")
	}
	if verdict.Code != VerdictBlocked {
		t.Fatalf("expected escalation to block got %#v", verdict)
	}

	clock.Advance(time.Second)
	if got := g.Check("1.2.3.4"); got.Code != VerdictBlocked {
		t.Fatalf("expected blocked verdict while block is live got %#v", got)
	}
}

func TestGuard_BurstTripsBlock(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	var verdict Verdict
	for i := 0; i < 31; i++ {
		clock.Advance(100 * time.Millisecond)
		verdict = g.Check("1.2.3.4")
	}
	if verdict.Code != VerdictBlocked || verdict.Reason != "request burst detected" {
		t.Fatalf("expected burst block on 31st rapid request got %#v", verdict)
	}

	clock.Advance(time.Second)
	if got := g.Check("1.2.3.4"); got.Code != VerdictBlocked {
		t.Fatalf("expected block to persist got %#v", got)
	}
}

func TestGuard_BlockedSkipsCounters(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	if err := g.ManualBlockIP("1.2.3.4", "spam"); err != nil {
		t.Fatalf("ManualBlockIP: %v", err)
	}
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		if got := g.Check("1.2.3.4"); got.Code != VerdictBlocked {
			t.Fatalf("expected blocked got %#v", got)
		}
	}
	if g.counters.Len() != 0 {
		t.Fatalf("expected no counters while blocked got %d", g.counters.Len())
	}
}

func TestGuard_UnblockClearsCounters(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	for i := 0; i < 20; i++ {
		clock.Advance(400 * time.Millisecond)
		g.Check("9.9.9.9")
	}
	if err := g.ManualBlockIP("9.9.9.9", "spam"); err != nil {
		t.Fatalf("ManualBlockIP: %v", err)
	}
	if err := g.UnblockIP("9.9.9.9"); err != nil {
		t.Fatalf("UnblockIP: %v", err)
	}

	if g.blocks.IsBlocked("9.9.9.9") {
		t.Fatalf("expected unblocked")
	}
	clock.Advance(time.Second)
	verdict := g.Check("9.9.9.9")
	if !verdict.Allowed() || verdict.Remaining != 199 {
		t.Fatalf("expected counters cleared after unblock got %#v", verdict)
	}
}

func TestGuard_TrustedBypassesLimitsButNotBlocks(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	if err := g.TrustIP("10.0.0.1", "office"); err != nil {
		t.Fatalf("TrustIP: %v", err)
	}
	for i := 0; i < 500; i++ {
		if got := g.Check("10.0.0.1"); !got.Allowed() {
			t.Fatalf("expected trusted key allowed got %#v", got)
		}
	}

	if err := g.ManualBlockIP("10.0.0.1", "compromised"); err != nil {
		t.Fatalf("ManualBlockIP: %v", err)
	}
	if got := g.Check("10.0.0.1"); got.Code != VerdictBlocked {
		t.Fatalf("expected block to win over trust got %#v", got)
	}
}

func TestGuard_AuthThrottlesWithoutBlocking(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	for i := int64(0); i < 20; i++ {
		clock.Advance(time.Second)
		if got := g.CheckAuth("1.2.3.4"); !got.Allowed() {
			t.Fatalf("attempt %d: expected allow got %#v", i+1, got)
		}
	}

	for i := 0; i < 50; i++ {
		clock.Advance(time.Second)
		got := g.CheckAuth("1.2.3.4")
		if got.Code != VerdictThrottled {
			t.Fatalf("expected throttle got %#v", got)
		}
	}
	if g.blocks.IsBlocked("1.2.3.4") {
		t.Fatalf("auth overage must never block")
	}
}

func TestGuard_EmptyKeyFallsBackToUnknown(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	clock.Advance(time.Second)
	g.Check("")
	clock.Advance(time.Second)
	verdict := g.Check(UnknownClientKey)
	if verdict.Remaining != 198 {
		t.Fatalf("expected empty key to share the unknown bucket got %#v", verdict)
	}
}

func TestGuard_ScanRequestBlocksOnMatch(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	verdict := g.ScanRequest("6.6.6.6", "/v1/portal/ping", `{"q":"1 UNION SELECT * FROM users"}`)
	if verdict.Code != VerdictMalicious || verdict.Reason != "sql injection" {
		t.Fatalf("expected malicious verdict got %#v", verdict)
	}
	if !g.blocks.IsBlocked("6.6.6.6") {
		t.Fatalf("expected identity blocked after match")
	}

	if got := g.ScanRequest("7.7.7.7", "/v1/portal/ping", `{"q":"hello"}`); got.Code != VerdictAllow {
		t.Fatalf("expected clean payload allowed got %#v", got)
	}
}

func TestGuard_LoginLockoutFlow(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	var status LoginStatus
	for i := 0; i < 10; i++ {
		status = g.RecordFailedLogin("alice", "1.2.3.4")
	}
	if !status.Locked {
		t.Fatalf("expected lock after 10 failures got %#v", status)
	}
	want := clock.Now().Add(5 * time.Minute)
	if !status.LockedUntil.Equal(want) {
		t.Fatalf("expected lockedUntil %v got %v", want, status.LockedUntil)
	}
	if got := g.IsLoginAllowed("alice", "1.2.3.4"); got.Allowed {
		t.Fatalf("expected 11th attempt rejected got %#v", got)
	}

	g.ClearLoginAttempts("alice", "1.2.3.4")
	if got := g.IsLoginAllowed("alice", "1.2.3.4"); !got.Allowed || got.Remaining != 10 {
		t.Fatalf("expected fresh budget after clear got %#v", got)
	}
}

func TestGuard_BlockedIPsView(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	if err := g.ManualBlockIPFor("9.9.9.9", "spam", 10*time.Minute); err != nil {
		t.Fatalf("ManualBlockIPFor: %v", err)
	}
	clock.Advance(2 * time.Minute)

	views := g.BlockedIPs()
	if len(views) != 1 {
		t.Fatalf("expected 1 view got %d", len(views))
	}
	view := views[0]
	if view.IP != "9.9.9.9" || view.Reason != "spam" || view.RemainingMinutes != 8 {
		t.Fatalf("unexpected view: %#v", view)
	}
}

func TestGuard_ManualBlockValidation(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	if err := g.ManualBlockIP("", "spam"); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput got %v", err)
	}
	if err := g.ManualBlockIP("9.9.9.9", ""); err != nil {
		t.Fatalf("expected default reason accepted got %v", err)
	}
	views := g.BlockedIPs()
	if len(views) != 1 || views[0].Reason != "manual block" {
		t.Fatalf("expected default reason got %#v", views)
	}
}

func TestGuard_SweepOncePrunesEverything(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	g := testGuard(t, clock)

	g.Check("stale")
	g.burst.Observe("stale")
	g.RecordFailedLogin("alice", "stale")
	g.ManualBlockIPFor("stale", "spam", time.Minute)

	clock.Advance(20 * time.Minute)
	removed := g.sweepOnce()
	for store, n := range removed {
		if n != 1 {
			t.Fatalf("store %s: expected 1 removed got %d", store, n)
		}
	}
}
