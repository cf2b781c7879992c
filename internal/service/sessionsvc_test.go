package service

import (
	"context"
	"testing"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

// memSessionsStore mirrors the store contract in memory so lifecycle tests
// can drive real state transitions instead of scripted returns.
type memSessionsStore struct {
	sessions map[string]domain.Session
}

func newMemSessionsStore() *memSessionsStore {
	return &memSessionsStore{sessions: make(map[string]domain.Session)}
}

func (m *memSessionsStore) CreateSession(_ context.Context, sess domain.Session) error {
	delete(m.sessions, sess.ID)
	m.sessions[sess.ID] = sess
	return nil
}

func (m *memSessionsStore) GetSession(_ context.Context, sessionID string, now time.Time) (domain.Session, error) {
	sess, ok := m.sessions[sessionID]
	if !ok || !sess.ExpiresAt.After(now) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (m *memSessionsStore) TouchSession(_ context.Context, sessionID string, lastActivity, expiresAt time.Time) (bool, error) {
	sess, ok := m.sessions[sessionID]
	if !ok || !sess.ExpiresAt.After(lastActivity) {
		return false, nil
	}
	sess.LastActivity = lastActivity
	sess.ExpiresAt = expiresAt
	m.sessions[sessionID] = sess
	return true, nil
}

func (m *memSessionsStore) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok, nil
}

func (m *memSessionsStore) DeleteSessionsForUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionsStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, sess := range m.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionsStore) SessionStats(_ context.Context, now time.Time) (domain.SessionStats, error) {
	users := make(map[string]struct{})
	var n int64
	for _, sess := range m.sessions {
		if sess.ExpiresAt.After(now) {
			n++
			users[sess.UserID] = struct{}{}
		}
	}
	return domain.SessionStats{TotalSessions: n, ActiveUsers: int64(len(users))}, nil
}

func newSessionService(store SessionsStore, now *time.Time) *SessionService {
	return &SessionService{
		Store:  store,
		Window: 30 * time.Minute,
		Now:    func() time.Time { return *now },
	}
}

func TestSessionServiceCreateAndGet(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	sess, err := svc.Create(context.Background(), "user-1", "1.2.3.4", "unit-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("expected generated session id")
	}
	if !sess.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry: %s", sess.ExpiresAt)
	}

	got, err := svc.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "user-1" || got.IP != "1.2.3.4" || got.UserAgent != "unit-test" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionServiceTouchSlidesWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	sess, err := svc.Create(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 29 minutes later the session is one minute from expiry; a touch must
	// push expiry a full window past the touch time.
	now = now.Add(29 * time.Minute)
	ok, err := svc.Touch(context.Background(), sess.ID)
	if err != nil || !ok {
		t.Fatalf("touch failed: ok=%v err=%v", ok, err)
	}

	now = now.Add(29 * time.Minute)
	got, err := svc.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("session should still be live: %v", err)
	}
	if !got.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected expiry after touch: %s", got.ExpiresAt)
	}
}

func TestSessionServiceGetAfterWindowExpires(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	sess, err := svc.Create(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(30 * time.Minute)
	if _, err := svc.Get(context.Background(), sess.ID); err == nil {
		t.Fatalf("expected expired session to be invisible")
	}

	ok, err := svc.Touch(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("touch must not resurrect an expired session")
	}
}

func TestSessionServiceDeleteIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	sess, err := svc.Create(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err := svc.Delete(context.Background(), sess.ID)
	if err != nil || !ok {
		t.Fatalf("first delete: ok=%v err=%v", ok, err)
	}
	ok, err = svc.Delete(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("second delete should report nothing removed")
	}
}

func TestSessionServiceDeleteAllForUser(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "user-1", "", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	other, err := svc.Create(context.Background(), "user-2", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := svc.DeleteAllForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
	if _, err := svc.Get(context.Background(), other.ID); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}
}

func TestSessionServiceCleanupExpiredOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	stale, err := svc.Create(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(20 * time.Minute)
	fresh, err := svc.Create(context.Background(), "user-2", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(15 * time.Minute)
	n, err := svc.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", n)
	}
	if _, ok := store.sessions[stale.ID]; ok {
		t.Fatalf("stale session should be gone")
	}
	if _, err := svc.Get(context.Background(), fresh.ID); err != nil {
		t.Fatalf("fresh session must survive: %v", err)
	}
}

func TestSessionServiceStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemSessionsStore()
	svc := newSessionService(store, &now)

	for i := 0; i < 2; i++ {
		if _, err := svc.Create(context.Background(), "user-1", "", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := svc.Create(context.Background(), "user-2", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalSessions != 3 || stats.ActiveUsers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
