package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type ResetTokensStore interface {
	CreateResetToken(ctx context.Context, token domain.PasswordResetToken) error
	GetResetTokenByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, tokenHash string, when time.Time) error
}

type ResetUsersStore interface {
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
}

type ResetSessionsStore interface {
	DeleteSessionsForUser(ctx context.Context, userID string) (int64, error)
}

// PasswordResetService turns a verified reset OTP into a short-lived,
// single-use token that authorizes exactly one password change. Only the
// token's hash is stored.
type PasswordResetService struct {
	Store    ResetTokensStore
	Users    ResetUsersStore
	Sessions ResetSessionsStore
	TokenTTL time.Duration
	Now      func() time.Time
}

func (s *PasswordResetService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *PasswordResetService) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 15 * time.Minute
}

func (s *PasswordResetService) CreateResetToken(ctx context.Context, userID, sentToEmail string) (string, error) {
	if userID == "" || sentToEmail == "" {
		return "", fmt.Errorf("user id and email are required")
	}

	raw, tokenHash, err := newResetToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	token := domain.PasswordResetToken{
		UserID:      userID,
		TokenHash:   tokenHash,
		SentToEmail: sentToEmail,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl()),
	}
	if err := s.Store.CreateResetToken(ctx, token); err != nil {
		return "", err
	}
	return raw, nil
}

// ResetPassword consumes the token, installs the new password hash and
// revokes every session the user holds.
func (s *PasswordResetService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	tokenHash := hashResetToken(rawToken)
	token, err := s.Store.GetResetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrResetTokenInvalid
		}
		return err
	}
	if token.UsedAt != nil {
		return domain.ErrResetTokenInvalid
	}
	if token.ExpiresAt.Before(s.now()) {
		return domain.ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Users.SetPasswordHash(ctx, token.UserID, hash); err != nil {
		return err
	}
	if err := s.Store.MarkResetTokenUsed(ctx, tokenHash, s.now()); err != nil {
		return err
	}
	if s.Sessions != nil {
		if _, err := s.Sessions.DeleteSessionsForUser(ctx, token.UserID); err != nil {
			return err
		}
	}
	return nil
}

func newResetToken() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
