// Package guard defines pipeline configuration.
package guard

import "time"

// Category identifies a sliding window counter family.
type Category string

// Counter categories used by the pipeline.
const (
	CategoryGeneral Category = "general"
	CategoryAuth    Category = "auth"
)

// Config holds immutable pipeline thresholds and transport settings.
// Thresholds are fixed for the process lifetime; traffic never mutates them.
type Config struct {
	EnableHTTP bool
	ListenAddr string

	EnableAdminAuth bool
	AdminToken      string

	GeneralLimit  int64
	GeneralWindow time.Duration
	AuthLimit     int64
	AuthWindow    time.Duration

	BurstThreshold int
	BurstWindow    time.Duration

	LoginMaxAttempts int
	LockoutDuration  time.Duration

	BlockDuration time.Duration
	SweepInterval time.Duration

	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	DrainTimeout     time.Duration
	MaxBodyBytes     int64

	// Collaborators injected by the host. The account store stays external;
	// the pipeline only consults it through CredentialChecker.
	Credentials CredentialChecker
	Logger      Logger
	Now         func() time.Time
}

// escalationFactor is the general-limit overage multiple that turns a
// throttle into a block.
const escalationFactor = 1.5
