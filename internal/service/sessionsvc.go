package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type SessionsStore interface {
	CreateSession(ctx context.Context, sess domain.Session) error
	GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error)
	TouchSession(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) (bool, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	DeleteSessionsForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	SessionStats(ctx context.Context, now time.Time) (domain.SessionStats, error)
}

// SessionService owns the sliding-expiration lifecycle. Identifiers are
// generated here (UUID-class entropy), never by the database, so the store
// can run delete-then-insert under the caller's key.
type SessionService struct {
	Store  SessionsStore
	Window time.Duration
	Now    func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionService) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return 30 * time.Minute
}

func (s *SessionService) Create(ctx context.Context, userID, ip, userAgent string) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.window()),
		IP:           ip,
		UserAgent:    userAgent,
	}
	if err := s.Store.CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// Get returns the session only while live. It does not refresh activity.
func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.Store.GetSession(ctx, sessionID, s.now())
}

// Touch slides the expiry to now + window. Returns false if the session no
// longer exists or already expired.
func (s *SessionService) Touch(ctx context.Context, sessionID string) (bool, error) {
	now := s.now()
	return s.Store.TouchSession(ctx, sessionID, now, now.Add(s.window()))
}

// Delete is idempotent; it reports whether a record was removed.
func (s *SessionService) Delete(ctx context.Context, sessionID string) (bool, error) {
	return s.Store.DeleteSession(ctx, sessionID)
}

// DeleteAllForUser supports global logout and account teardown.
func (s *SessionService) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	return s.Store.DeleteSessionsForUser(ctx, userID)
}

func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.Store.DeleteExpiredSessions(ctx, s.now())
}

func (s *SessionService) Stats(ctx context.Context) (domain.SessionStats, error) {
	return s.Store.SessionStats(ctx, s.now())
}
