package service

import (
	"context"
	"log/slog"
	"time"

	"candor/internal/featureflags"
)

// Sweeper periodically expires restrictions so listings stay fresh between
// reads. It only runs while the restriction_sweeper flag is on.
type Sweeper struct {
	restrictions *RestrictionService
	flags        *featureflags.Manager
	interval     time.Duration
}

// NewSweeper builds a sweeper that ticks every interval.
func NewSweeper(restrictions *RestrictionService, flags *featureflags.Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{restrictions: restrictions, flags: flags, interval: interval}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep if the flag allows it and reports whether it ran.
func (s *Sweeper) RunOnce(ctx context.Context) bool {
	if !s.flags.EnabledGlobally(featureflags.RestrictionSweeper) {
		return false
	}
	if _, err := s.restrictions.ExpireDue(ctx); err != nil {
		slog.ErrorContext(ctx, "restriction sweep failed", slog.String("error", err.Error()))
	}
	return true
}
