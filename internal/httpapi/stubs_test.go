package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
	"github.com/mahanaatma1/GateKeeper/internal/email"
)

type stubUsersStore struct {
	t *testing.T

	createUserFunc             func(context.Context, string, string, string) (domain.User, error)
	getUserByIDFunc            func(context.Context, string) (domain.User, error)
	getUserByEmailFunc         func(context.Context, string) (domain.UserWithPassword, error)
	setVerifiedFunc            func(context.Context, string) error
	setLastLoginFunc           func(context.Context, string, time.Time) error
	updateProfileFunc          func(context.Context, string, string, string) (domain.User, error)
	getUserByExternalFunc      func(context.Context, string, string) (domain.User, error)
	createUserWithExternalFunc func(context.Context, string, string, string, string, string) (domain.User, error)
	linkExternalAccountFunc    func(context.Context, string, string, string, string) error
}

func (s *stubUsersStore) CreateUser(ctx context.Context, email, displayName, passwordHash string) (domain.User, error) {
	if s.createUserFunc != nil {
		return s.createUserFunc(ctx, email, displayName, passwordHash)
	}
	s.t.Fatalf("CreateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if s.getUserByIDFunc != nil {
		return s.getUserByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetUserByID called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	if s.getUserByEmailFunc != nil {
		return s.getUserByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetUserByEmail called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) SetVerified(ctx context.Context, userID string) error {
	if s.setVerifiedFunc != nil {
		return s.setVerifiedFunc(ctx, userID)
	}
	s.t.Fatalf("SetVerified called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	if s.setLastLoginFunc != nil {
		return s.setLastLoginFunc(ctx, userID, when)
	}
	return nil
}

func (s *stubUsersStore) UpdateProfile(ctx context.Context, userID, displayName, imageURL string) (domain.User, error) {
	if s.updateProfileFunc != nil {
		return s.updateProfileFunc(ctx, userID, displayName, imageURL)
	}
	s.t.Fatalf("UpdateProfile called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByExternalAccount(ctx context.Context, provider, subject string) (domain.User, error) {
	if s.getUserByExternalFunc != nil {
		return s.getUserByExternalFunc(ctx, provider, subject)
	}
	s.t.Fatalf("GetUserByExternalAccount called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) CreateUserWithExternalAccount(ctx context.Context, provider, subject, email, displayName, imageURL string) (domain.User, error) {
	if s.createUserWithExternalFunc != nil {
		return s.createUserWithExternalFunc(ctx, provider, subject, email, displayName, imageURL)
	}
	s.t.Fatalf("CreateUserWithExternalAccount called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) LinkExternalAccount(ctx context.Context, userID, provider, subject, email string) error {
	if s.linkExternalAccountFunc != nil {
		return s.linkExternalAccountFunc(ctx, userID, provider, subject, email)
	}
	s.t.Fatalf("LinkExternalAccount called unexpectedly")
	return errors.New("unexpected call")
}

// memSessionsStore backs the session service with a map so middleware tests
// can observe real create/touch/delete transitions.
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

type stubOTPStore struct {
	t *testing.T

	replaceOTPFunc    func(context.Context, domain.OTPRecord) error
	getOTPFunc        func(context.Context, string) (domain.OTPRecord, error)
	deleteForEmailFun func(context.Context, string) (int64, error)
}

func (s *stubOTPStore) ReplaceOTP(ctx context.Context, rec domain.OTPRecord) error {
	if s.replaceOTPFunc != nil {
		return s.replaceOTPFunc(ctx, rec)
	}
	s.t.Fatalf("ReplaceOTP called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubOTPStore) GetOTPByEmail(ctx context.Context, email string) (domain.OTPRecord, error) {
	if s.getOTPFunc != nil {
		return s.getOTPFunc(ctx, email)
	}
	s.t.Fatalf("GetOTPByEmail called unexpectedly")
	return domain.OTPRecord{}, errors.New("unexpected call")
}

func (s *stubOTPStore) DeleteOTPsForEmail(ctx context.Context, email string) (int64, error) {
	if s.deleteForEmailFun != nil {
		return s.deleteForEmailFun(ctx, email)
	}
	s.t.Fatalf("DeleteOTPsForEmail called unexpectedly")
	return 0, errors.New("unexpected call")
}

type stubMailer struct {
	sendFunc func(context.Context, email.Message) error
}

func (s *stubMailer) Send(ctx context.Context, msg email.Message) error {
	if s.sendFunc != nil {
		return s.sendFunc(ctx, msg)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}
