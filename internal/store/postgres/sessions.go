package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type SessionsStore struct {
	pool *pgxpool.Pool
}

func NewSessionsStore(pool *pgxpool.Pool) *SessionsStore {
	return &SessionsStore{pool: pool}
}

// CreateSession persists the record under its caller-generated identifier.
// Any prior row under the same identifier is removed first, so the last
// writer for a given id wins.
func (s *SessionsStore) CreateSession(ctx context.Context, sess domain.Session) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const del = `DELETE FROM sessions WHERE id = $1`
	if _, err := s.pool.Exec(ctx, del, sess.ID); err != nil {
		return wrapErr("create session: dedup", err)
	}

	const ins = `
		INSERT INTO sessions (id, user_id, created_at, last_activity, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, ins,
		sess.ID,
		sess.UserID,
		sess.CreatedAt,
		sess.LastActivity,
		sess.ExpiresAt,
		nullIfEmpty(sess.IP),
		nullIfEmpty(sess.UserAgent),
	)
	if err != nil {
		return wrapErr("create session", err)
	}
	return nil
}

// GetSession returns the record only while it is live (expires_at > now).
// It never refreshes activity; that is TouchSession's job.
func (s *SessionsStore) GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		SELECT id, user_id, created_at, last_activity, expires_at, ip, user_agent
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`

	var (
		sess      domain.Session
		idUUID    pgtype.UUID
		userIDUU  pgtype.UUID
		ipText    pgtype.Text
		agentText pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, sessionID, now).Scan(
		&idUUID,
		&userIDUU,
		&sess.CreatedAt,
		&sess.LastActivity,
		&sess.ExpiresAt,
		&ipText,
		&agentText,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, wrapErr("get session", err)
	}

	sess.ID = uuidOrEmpty(idUUID)
	sess.UserID = uuidOrEmpty(userIDUU)
	sess.IP = textOrEmpty(ipText)
	sess.UserAgent = textOrEmpty(agentText)
	return sess, nil
}

// TouchSession slides the window forward. Returns false when the session no
// longer exists or has already expired.
func (s *SessionsStore) TouchSession(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		UPDATE sessions
		SET last_activity = $2, expires_at = $3
		WHERE id = $1 AND expires_at > $2
	`
	tag, err := s.pool.Exec(ctx, q, sessionID, lastActivity, expiresAt)
	if err != nil {
		return false, wrapErr("touch session", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SessionsStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `DELETE FROM sessions WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, sessionID)
	if err != nil {
		return false, wrapErr("delete session", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SessionsStore) DeleteSessionsForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `DELETE FROM sessions WHERE user_id = $1`
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, wrapErr("delete sessions for user", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredSessions reclaims storage for rows already invisible to
// GetSession. It uses the same expiry predicate, so running it concurrently
// with live traffic is safe.
func (s *SessionsStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `DELETE FROM sessions WHERE expires_at < $1`
	tag, err := s.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, wrapErr("delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}

func (s *SessionsStore) SessionStats(ctx context.Context, now time.Time) (domain.SessionStats, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		SELECT count(*), count(DISTINCT user_id)
		FROM sessions
		WHERE expires_at > $1
	`
	var stats domain.SessionStats
	if err := s.pool.QueryRow(ctx, q, now).Scan(&stats.TotalSessions, &stats.ActiveUsers); err != nil {
		return domain.SessionStats{}, wrapErr("session stats", err)
	}
	return stats, nil
}
