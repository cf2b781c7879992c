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

type ResetTokensStore struct {
	pool *pgxpool.Pool
}

func NewResetTokensStore(pool *pgxpool.Pool) *ResetTokensStore {
	return &ResetTokensStore{pool: pool}
}

func (s *ResetTokensStore) CreateResetToken(ctx context.Context, token domain.PasswordResetToken) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		INSERT INTO password_reset_tokens (user_id, token_hash, sent_to_email, created_at, expires_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, q,
		token.UserID,
		token.TokenHash,
		token.SentToEmail,
		token.CreatedAt,
		token.ExpiresAt,
		token.UsedAt,
	)
	if err != nil {
		return wrapErr("create reset token", err)
	}
	return nil
}

func (s *ResetTokensStore) GetResetTokenByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		SELECT id, user_id, token_hash, sent_to_email, created_at, expires_at, used_at
		FROM password_reset_tokens
		WHERE token_hash = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var (
		token      domain.PasswordResetToken
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		usedAt     pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, tokenHash).Scan(
		&idUUID,
		&userIDUUID,
		&token.TokenHash,
		&token.SentToEmail,
		&token.CreatedAt,
		&token.ExpiresAt,
		&usedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PasswordResetToken{}, domain.ErrNotFound
		}
		return domain.PasswordResetToken{}, wrapErr("get reset token", err)
	}

	token.ID = uuidOrEmpty(idUUID)
	token.UserID = uuidOrEmpty(userIDUUID)
	token.UsedAt = timestamptzPtr(usedAt)
	return token, nil
}

func (s *ResetTokensStore) MarkResetTokenUsed(ctx context.Context, tokenHash string, when time.Time) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `UPDATE password_reset_tokens SET used_at = $2 WHERE token_hash = $1`
	tag, err := s.pool.Exec(ctx, q, tokenHash, when)
	if err != nil {
		return wrapErr("mark reset token used", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
