// Package guard defines pipeline decision models.
package guard

import (
	"context"
	"time"
)

// VerdictCode classifies a pipeline decision.
type VerdictCode string

// Decision outcomes, in escalating severity.
const (
	VerdictAllow     VerdictCode = "allow"
	VerdictThrottled VerdictCode = "throttled"
	VerdictBlocked   VerdictCode = "blocked"
	VerdictMalicious VerdictCode = "malicious"
)

// Verdict reports a pipeline decision for one request.
type Verdict struct {
	Code       VerdictCode
	Reason     string
	RetryAfter time.Duration
	Remaining  int64
}

// Allowed reports whether the request may proceed.
func (v Verdict) Allowed() bool {
	return v.Code == VerdictAllow
}

// BlockedIPView is the admin-facing shape of a block registry entry.
type BlockedIPView struct {
	IP               string    `json:"ip"`
	Reason           string    `json:"reason"`
	BlockedAt        time.Time `json:"blockedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RemainingMinutes int       `json:"remainingMinutes"`
}

// CredentialChecker verifies login credentials against the external account
// store. The pipeline never inspects credentials itself.
type CredentialChecker interface {
	Check(ctx context.Context, username, password string) (bool, error)
}

// CredentialCheckerFunc adapts a function to CredentialChecker.
type CredentialCheckerFunc func(ctx context.Context, username, password string) (bool, error)

// Check calls the underlying function.
func (f CredentialCheckerFunc) Check(ctx context.Context, username, password string) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, username, password)
}
