package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

const userColumns = `id, email, display_name, is_verified, image_url, created_at, updated_at, last_login_at`

func (s *UsersStore) CreateUser(ctx context.Context, email, displayName, passwordHash string) (domain.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		INSERT INTO users (email, display_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, displayName, passwordHash))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, wrapErr("get user by id", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		SELECT id, email, display_name, password_hash, is_verified, image_url, created_at, updated_at, last_login_at
		FROM users
		WHERE email = $1
	`

	var (
		u           domain.UserWithPassword
		idUUID      pgtype.UUID
		imageText   pgtype.Text
		lastLoginTS pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&idUUID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.IsVerified,
		&imageText,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, wrapErr("get user by email", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.ImageURL = textOrEmpty(imageText)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func (s *UsersStore) SetVerified(ctx context.Context, userID string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `UPDATE users SET is_verified = true, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return wrapErr("set verified", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, userID, passwordHash)
	if err != nil {
		return wrapErr("set password hash", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, userID, when); err != nil {
		return wrapErr("set last login", err)
	}
	return nil
}

func (s *UsersStore) UpdateProfile(ctx context.Context, userID, displayName, imageURL string) (domain.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		UPDATE users
		SET display_name = $2, image_url = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, userID, displayName, imageURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, wrapErr("update profile", err)
	}
	return u, nil
}

// DeleteUnverifiedBefore removes users who never verified within the
// retention window, freeing their email for re-registration.
func (s *UsersStore) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `DELETE FROM users WHERE NOT is_verified AND created_at < $1`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, wrapErr("delete unverified users", err)
	}
	return tag.RowsAffected(), nil
}

func (s *UsersStore) GetUserByExternalAccount(ctx context.Context, provider, subject string) (domain.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		SELECT u.id, u.email, u.display_name, u.is_verified, u.image_url, u.created_at, u.updated_at, u.last_login_at
		FROM users u
		JOIN external_accounts ea ON ea.user_id = u.id
		WHERE ea.provider = $1 AND ea.subject = $2
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, provider, subject))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, wrapErr("get user by external account", err)
	}
	return u, nil
}

// CreateUserWithExternalAccount creates a verified user and its provider
// link in one transaction. Provider-backed accounts have no local password.
func (s *UsersStore) CreateUserWithExternalAccount(ctx context.Context, provider, subject, email, displayName, imageURL string) (domain.User, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.User{}, wrapErr("create user with external account: begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insUser = `
		INSERT INTO users (email, display_name, image_url, is_verified)
		VALUES ($1, $2, $3, true)
		RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, insUser, email, displayName, imageURL))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}

	const insExt = `
		INSERT INTO external_accounts (user_id, provider, subject, email)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, insExt, u.ID, provider, subject, email); err != nil {
		return domain.User{}, wrapErr("create external account", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, wrapErr("create user with external account: commit", err)
	}
	return u, nil
}

func (s *UsersStore) LinkExternalAccount(ctx context.Context, userID, provider, subject, email string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	const q = `
		INSERT INTO external_accounts (user_id, provider, subject, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT external_accounts_provider_subject_uq DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, userID, provider, subject, email); err != nil {
		return wrapErr("link external account", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u           domain.User
		idUUID      pgtype.UUID
		imageText   pgtype.Text
		lastLoginTS pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&u.Email,
		&u.DisplayName,
		&u.IsVerified,
		&imageText,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.ImageURL = textOrEmpty(imageText)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		if pgerr.ConstraintName == "users_email_uq" {
			return domain.ErrEmailTaken
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return wrapErr("write user", err)
}
