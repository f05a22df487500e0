// Package guard provides the background sweep loop.
package guard

import (
	"context"
	"errors"
	"time"
)

// Sweeper periodically prunes stale records from every store so memory
// stays bounded. It shares each store's lock with request traffic, so a
// sweep never needs to stop the pipeline.
type Sweeper struct {
	guard    *Guard
	interval time.Duration
	logger   Logger
}

// NewSweeper constructs a sweeper for the guard.
func NewSweeper(g *Guard, interval time.Duration, logger Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = &StdLogger{}
	}
	return &Sweeper{guard: g, interval: interval, logger: logger}
}

// Start begins the sweep loop and runs until the context is done.
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil || s.guard == nil {
		return errors.New("sweeper is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	removed := s.guard.sweepOnce()
	total := 0
	for _, n := range removed {
		total += n
	}
	if total == 0 {
		return
	}
	s.logger.Info("sweep completed", map[string]any{
		"counters": removed["counters"],
		"burst":    removed["burst"],
		"lockouts": removed["lockouts"],
		"blocks":   removed["blocks"],
	})
}
