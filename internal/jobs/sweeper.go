package jobs

import (
	"context"
	"log/slog"
	"time"
)

type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type UnverifiedUserCleaner interface {
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper runs the two periodic sweeps: expired sessions (storage reclaim
// only; Get/Touch already enforce expiry logically) and stale unverified
// accounts (frees their emails for re-registration). A failed tick is
// logged and skipped; the work is idempotent and the next tick
// self-corrects.
type Sweeper struct {
	Logger   *slog.Logger
	Sessions SessionCleaner
	Users    UnverifiedUserCleaner

	SessionInterval time.Duration
	AccountInterval time.Duration
	Retention       time.Duration

	Now func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run blocks until ctx is cancelled, firing both sweeps on their intervals.
// Each sweep also runs once at startup.
func (s *Sweeper) Run(ctx context.Context) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionInterval := s.SessionInterval
	if sessionInterval <= 0 {
		sessionInterval = time.Hour
	}
	accountInterval := s.AccountInterval
	if accountInterval <= 0 {
		accountInterval = 12 * time.Hour
	}

	s.SweepSessions(ctx, logger)
	s.SweepUnverified(ctx, logger)

	sessionTicker := time.NewTicker(sessionInterval)
	defer sessionTicker.Stop()
	accountTicker := time.NewTicker(accountInterval)
	defer accountTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionTicker.C:
			s.SweepSessions(ctx, logger)
		case <-accountTicker.C:
			s.SweepUnverified(ctx, logger)
		}
	}
}

func (s *Sweeper) SweepSessions(ctx context.Context, logger *slog.Logger) {
	if s.Sessions == nil {
		return
	}
	removed, err := s.Sessions.CleanupExpired(ctx)
	if err != nil {
		logger.Error("session sweep failed", "err", err)
		return
	}
	if removed > 0 {
		logger.Info("session sweep", "removed", removed)
	}
}

func (s *Sweeper) SweepUnverified(ctx context.Context, logger *slog.Logger) {
	if s.Users == nil {
		return
	}
	retention := s.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	removed, err := s.Users.DeleteUnverifiedBefore(ctx, s.now().Add(-retention))
	if err != nil {
		logger.Error("unverified account sweep failed", "err", err)
		return
	}
	if removed > 0 {
		logger.Info("unverified account sweep", "removed", removed)
	}
}
