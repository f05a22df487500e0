// Package guard wires the request-defense pipeline.
package guard

import (
	"errors"
	"fmt"
	"time"
)

// Guard owns every defense store and evaluates requests against them. One
// Guard is constructed at process start and shared by all request paths;
// there is no package-level state.
type Guard struct {
	cfg      *Config
	now      func() time.Time
	counters *CounterStore
	burst    *BurstDetector
	blocks   *BlockRegistry
	lockouts *LoginTracker
	trusted  *TrustList
	scanner  *ThreatScanner
	metrics  *InMemoryMetrics
	logger   Logger
}

// NewGuard validates configuration and constructs the pipeline.
func NewGuard(cfg *Config) (*Guard, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.GeneralLimit <= 0 || cfg.GeneralWindow <= 0 {
		return nil, errors.New("general limit and window are required")
	}
	if cfg.AuthLimit <= 0 || cfg.AuthWindow <= 0 {
		return nil, errors.New("auth limit and window are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &StdLogger{}
	}

	counters := NewCounterStore(now, map[Category]time.Duration{
		CategoryGeneral: cfg.GeneralWindow,
		CategoryAuth:    cfg.AuthWindow,
	})
	burst := NewBurstDetector(now, cfg.BurstWindow, cfg.BurstThreshold)
	lockouts := NewLoginTracker(now, cfg.LoginMaxAttempts, cfg.LockoutDuration)

	g := &Guard{
		cfg:      cfg,
		now:      now,
		counters: counters,
		burst:    burst,
		lockouts: lockouts,
		trusted:  NewTrustList(now),
		scanner:  NewThreatScanner(),
		metrics:  NewInMemoryMetrics(),
		logger:   logger,
	}
	// Unblocking wipes the identity's counters and burst log so it starts
	// clean; lockouts are keyed per username pair and stay.
	g.blocks = NewBlockRegistry(now, cfg.BlockDuration, func(key string) {
		counters.ClearKey(key)
		burst.ClearKey(key)
	})
	return g, nil
}

// Check runs the general pipeline for one request identity: block registry
// first, then burst detection, then the general rate window. While blocked,
// no counters for the key are consulted or incremented.
func (g *Guard) Check(key string) Verdict {
	if g == nil {
		return Verdict{Code: VerdictAllow}
	}
	start := g.now()
	defer func() {
		g.metrics.ObserveLatency("check", g.now().Sub(start))
	}()

	if key == "" {
		key = UnknownClientKey
	}
	if g.blocks.IsBlocked(key) {
		g.metrics.IncDecision("general", "blocked")
		return Verdict{Code: VerdictBlocked, Reason: "identity is blocked"}
	}
	if g.trusted.Contains(key) {
		g.metrics.IncDecision("general", "trusted")
		return Verdict{Code: VerdictAllow, Remaining: g.cfg.GeneralLimit}
	}
	if g.burst.Observe(key) {
		g.escalate(key, "burst detected")
		g.metrics.IncDecision("general", "blocked")
		return Verdict{Code: VerdictBlocked, Reason: "request burst detected"}
	}

	count, windowStart := g.counters.Increment(CategoryGeneral, key)
	limit := g.cfg.GeneralLimit
	if count > limit {
		if float64(count) > float64(limit)*escalationFactor {
			g.escalate(key, "rate limit abuse")
			g.metrics.IncDecision("general", "blocked")
			return Verdict{Code: VerdictBlocked, Reason: "rate limit exceeded repeatedly"}
		}
		g.metrics.IncDecision("general", "throttled")
		return Verdict{
			Code:       VerdictThrottled,
			Reason:     "too many requests",
			RetryAfter: g.retryAfter(CategoryGeneral, windowStart),
		}
	}
	g.metrics.IncDecision("general", "allowed")
	return Verdict{Code: VerdictAllow, Remaining: limit - count}
}

// CheckAuth runs the narrower auth rate window. It throttles only; lockouts
// and blocks come from their own trackers.
func (g *Guard) CheckAuth(key string) Verdict {
	if g == nil {
		return Verdict{Code: VerdictAllow}
	}
	if key == "" {
		key = UnknownClientKey
	}
	if g.blocks.IsBlocked(key) {
		g.metrics.IncDecision("auth", "blocked")
		return Verdict{Code: VerdictBlocked, Reason: "identity is blocked"}
	}
	if g.trusted.Contains(key) {
		g.metrics.IncDecision("auth", "trusted")
		return Verdict{Code: VerdictAllow, Remaining: g.cfg.AuthLimit}
	}

	count, windowStart := g.counters.Increment(CategoryAuth, key)
	limit := g.cfg.AuthLimit
	if count > limit {
		g.metrics.IncDecision("auth", "throttled")
		return Verdict{
			Code:       VerdictThrottled,
			Reason:     "too many authentication attempts",
			RetryAfter: g.retryAfter(CategoryAuth, windowStart),
		}
	}
	g.metrics.IncDecision("auth", "allowed")
	return Verdict{Code: VerdictAllow, Remaining: limit - count}
}

// ScanRequest runs the threat scanner over the raw path and serialized
// payload. A match blocks the identity immediately.
func (g *Guard) ScanRequest(key, path, payload string) Verdict {
	if g == nil {
		return Verdict{Code: VerdictAllow}
	}
	if key == "" {
		key = UnknownClientKey
	}
	label, matched := g.scanner.Scan(path, payload)
	if !matched {
		g.metrics.IncDecision("scan", "allowed")
		return Verdict{Code: VerdictAllow}
	}
	g.blocks.Block(key, label)
	g.metrics.IncDecision("scan", "malicious")
	g.metrics.IncBlock(label)
	g.logger.Error("threat pattern matched", map[string]any{
		"clientKey": key,
		"path":      path,
		"signature": label,
	})
	return Verdict{Code: VerdictMalicious, Reason: label}
}

// RecordFailedLogin registers a failed login for the pair and returns the
// resulting lockout status.
func (g *Guard) RecordFailedLogin(username, key string) LoginStatus {
	if g == nil {
		return LoginStatus{Allowed: true}
	}
	status := g.lockouts.RecordFailure(username, key)
	if status.Locked {
		g.metrics.IncDecision("login", "locked")
		g.logger.Info("login lockout engaged", map[string]any{
			"username":    username,
			"clientKey":   key,
			"lockedUntil": status.LockedUntil,
		})
	} else {
		g.metrics.IncDecision("login", "failed")
	}
	return status
}

// IsLoginAllowed reports whether the pair may attempt a login.
func (g *Guard) IsLoginAllowed(username, key string) LoginStatus {
	if g == nil {
		return LoginStatus{Allowed: true}
	}
	return g.lockouts.CheckAllowed(username, key)
}

// ClearLoginAttempts removes the pair's failure record after a success.
func (g *Guard) ClearLoginAttempts(username, key string) {
	if g == nil {
		return
	}
	g.lockouts.Clear(username, key)
}

// BlockedIPs returns the live deny-list for the admin panel.
func (g *Guard) BlockedIPs() []BlockedIPView {
	if g == nil {
		return nil
	}
	now := g.now()
	entries := g.blocks.Entries()
	views := make([]BlockedIPView, len(entries))
	for i, entry := range entries {
		remaining := int(entry.ExpiresAt.Sub(now).Minutes())
		if remaining < 0 {
			remaining = 0
		}
		views[i] = BlockedIPView{
			IP:               entry.Key,
			Reason:           entry.Reason,
			BlockedAt:        entry.BlockedAt,
			ExpiresAt:        entry.ExpiresAt,
			RemainingMinutes: remaining,
		}
	}
	return views
}

// ManualBlockIP blocks an identity by explicit admin action.
func (g *Guard) ManualBlockIP(ip, reason string) error {
	return g.ManualBlockIPFor(ip, reason, 0)
}

// ManualBlockIPFor blocks an identity for an explicit duration; zero means
// the default block duration.
func (g *Guard) ManualBlockIPFor(ip, reason string, d time.Duration) error {
	if g == nil {
		return errors.New("guard is nil")
	}
	if ip == "" {
		return ErrInvalidInput
	}
	if reason == "" {
		reason = "manual block"
	}
	g.blocks.BlockFor(ip, reason, d)
	g.metrics.IncBlock("manual")
	g.logger.Info("manual block", map[string]any{"ip": ip, "reason": reason})
	return nil
}

// UnblockIP removes an identity from the deny-list and clears its counters.
func (g *Guard) UnblockIP(ip string) error {
	if g == nil {
		return errors.New("guard is nil")
	}
	if ip == "" {
		return ErrInvalidInput
	}
	g.blocks.Unblock(ip)
	g.logger.Info("unblock", map[string]any{"ip": ip})
	return nil
}

// TrustIP exempts an identity from burst and rate checks.
func (g *Guard) TrustIP(ip, note string) error {
	if g == nil {
		return errors.New("guard is nil")
	}
	if ip == "" {
		return ErrInvalidInput
	}
	g.trusted.Add(ip, note)
	return nil
}

// UntrustIP removes an identity from the trust list.
func (g *Guard) UntrustIP(ip string) error {
	if g == nil {
		return errors.New("guard is nil")
	}
	if ip == "" {
		return ErrInvalidInput
	}
	g.trusted.Remove(ip)
	return nil
}

// TrustedIPs returns the trust list for the admin panel.
func (g *Guard) TrustedIPs() []TrustEntry {
	if g == nil {
		return nil
	}
	return g.trusted.Entries()
}

// Metrics exposes the pipeline's metrics recorder.
func (g *Guard) Metrics() *InMemoryMetrics {
	if g == nil {
		return nil
	}
	return g.metrics
}

// Config exposes the immutable pipeline configuration.
func (g *Guard) Config() *Config {
	if g == nil {
		return nil
	}
	return g.cfg
}

// sweepOnce prunes all stores and returns per-store removal counts.
func (g *Guard) sweepOnce() map[string]int {
	if g == nil {
		return nil
	}
	removed := map[string]int{
		"counters": g.counters.Sweep(),
		"burst":    g.burst.Sweep(),
		"lockouts": g.lockouts.Sweep(),
		"blocks":   g.blocks.Sweep(),
	}
	for store, n := range removed {
		g.metrics.AddSwept(store, n)
	}
	return removed
}

func (g *Guard) escalate(key, cause string) {
	g.blocks.Block(key, cause)
	g.metrics.IncBlock(cause)
	g.logger.Error("identity blocked", map[string]any{
		"clientKey": key,
		"reason":    cause,
		"until":     g.now().Add(g.cfg.BlockDuration).Format(time.RFC3339),
	})
}

func (g *Guard) retryAfter(category Category, windowStart time.Time) time.Duration {
	window := g.counters.Window(category)
	remaining := window - g.now().Sub(windowStart)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// String identifies the guard in logs.
func (g *Guard) String() string {
	if g == nil {
		return "guard(nil)"
	}
	return fmt.Sprintf("guard(general=%d/%s auth=%d/%s)",
		g.cfg.GeneralLimit, g.cfg.GeneralWindow, g.cfg.AuthLimit, g.cfg.AuthWindow)
}
