// Package guard provides brute-force login lockout tracking.
package guard

import (
	"sync"
	"time"
)

// LoginStatus reports the lockout state for a (username, client key) pair.
type LoginStatus struct {
	Allowed     bool
	Locked      bool
	Remaining   int
	LockedUntil time.Time
	Wait        time.Duration
}

type loginRecord struct {
	attempts    int
	lastAttempt time.Time
	lockedUntil time.Time
}

// LoginTracker counts consecutive failed logins per (username, client key)
// pair and computes temporary lockouts. Keying by the pair means rotating
// either the username or the source identity earns a fresh budget; the
// general and auth rate limits are the only backstop for that.
type LoginTracker struct {
	mu          sync.Mutex
	now         func() time.Time
	maxAttempts int
	lockout     time.Duration
	records     map[string]*loginRecord
}

// NewLoginTracker constructs a tracker with the given attempt budget and
// lockout duration.
func NewLoginTracker(now func() time.Time, maxAttempts int, lockout time.Duration) *LoginTracker {
	if now == nil {
		now = time.Now
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if lockout <= 0 {
		lockout = 5 * time.Minute
	}
	return &LoginTracker{
		now:         now,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		records:     make(map[string]*loginRecord),
	}
}

// RecordFailure registers a failed login and returns the resulting status.
// Reaching the attempt budget sets the lockout deadline.
func (t *LoginTracker) RecordFailure(username, key string) LoginStatus {
	if t == nil {
		return LoginStatus{Allowed: true, Remaining: 1}
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	mapKey := loginKey(username, key)
	record, ok := t.records[mapKey]
	if !ok {
		record = &loginRecord{}
		t.records[mapKey] = record
	}
	record.attempts++
	record.lastAttempt = now
	if record.attempts >= t.maxAttempts && record.lockedUntil.IsZero() {
		record.lockedUntil = now.Add(t.lockout)
	}
	return t.statusLocked(record, now)
}

// CheckAllowed reports whether a login attempt may proceed. A record whose
// lockout deadline has passed is deleted so the pair starts clean.
func (t *LoginTracker) CheckAllowed(username, key string) LoginStatus {
	if t == nil {
		return LoginStatus{Allowed: true, Remaining: 1}
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	mapKey := loginKey(username, key)
	record, ok := t.records[mapKey]
	if !ok {
		return LoginStatus{Allowed: true, Remaining: t.maxAttempts}
	}
	if !record.lockedUntil.IsZero() && !now.Before(record.lockedUntil) {
		delete(t.records, mapKey)
		return LoginStatus{Allowed: true, Remaining: t.maxAttempts}
	}
	return t.statusLocked(record, now)
}

// Clear removes the record for a pair, typically after a successful login.
func (t *LoginTracker) Clear(username, key string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, loginKey(username, key))
}

// Sweep removes records whose lockout has expired and which have seen no
// recent failure, and reports how many were removed.
func (t *LoginTracker) Sweep() int {
	if t == nil {
		return 0
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for mapKey, record := range t.records {
		lockoutOver := record.lockedUntil.IsZero() || !now.Before(record.lockedUntil)
		idle := now.Sub(record.lastAttempt) >= t.lockout
		if lockoutOver && idle {
			delete(t.records, mapKey)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked pairs.
func (t *LoginTracker) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *LoginTracker) statusLocked(record *loginRecord, now time.Time) LoginStatus {
	remaining := t.maxAttempts - record.attempts
	if remaining < 0 {
		remaining = 0
	}
	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return LoginStatus{
			Locked:      true,
			LockedUntil: record.lockedUntil,
			Wait:        record.lockedUntil.Sub(now),
		}
	}
	return LoginStatus{Allowed: true, Remaining: remaining}
}

func loginKey(username, key string) string {
	return username + "\x1f" + key
}
