package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type OTPStore struct {
	pool *pgxpool.Pool
}

func NewOTPStore(pool *pgxpool.Pool) *OTPStore {
	return &OTPStore{pool: pool}
}

// ReplaceOTP installs rec as the only OTP row for its email. The unique
// constraint on email plus ON CONFLICT gives last-writer-wins without a
// transaction: a concurrent issue for the same address simply overwrites.
func (s *OTPStore) ReplaceOTP(ctx context.Context, rec domain.OTPRecord) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		INSERT INTO otps (email, code, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT otps_email_uq DO UPDATE
		SET code = EXCLUDED.code,
		    purpose = EXCLUDED.purpose,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`
	_, err := s.pool.Exec(ctx, q, rec.Email, rec.Code, rec.Purpose, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return wrapErr("replace otp", err)
	}
	return nil
}

// GetOTPByEmail returns the row for the address regardless of expiry; the
// service distinguishes live from expired so verify can report the
// difference.
func (s *OTPStore) GetOTPByEmail(ctx context.Context, email string) (domain.OTPRecord, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		SELECT id, email, code, purpose, created_at, expires_at
		FROM otps
		WHERE email = $1
	`

	var (
		rec    domain.OTPRecord
		idUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&idUUID,
		&rec.Email,
		&rec.Code,
		&rec.Purpose,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OTPRecord{}, domain.ErrNotFound
		}
		return domain.OTPRecord{}, wrapErr("get otp", err)
	}

	rec.ID = uuidOrEmpty(idUUID)
	return rec, nil
}

// DeleteOTPsForEmail consumes whatever rows exist for the address. Used both
// on successful verification (single use) and before issuing a fresh code.
func (s *OTPStore) DeleteOTPsForEmail(ctx context.Context, email string) (int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `DELETE FROM otps WHERE email = $1`
	tag, err := s.pool.Exec(ctx, q, email)
	if err != nil {
		return 0, wrapErr("delete otps for email", err)
	}
	return tag.RowsAffected(), nil
}
