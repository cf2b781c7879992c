package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetVerified(ctx context.Context, userID string) error
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
	UpdateProfile(ctx context.Context, userID, displayName, imageURL string) (domain.User, error)
	GetUserByExternalAccount(ctx context.Context, provider, subject string) (domain.User, error)
	CreateUserWithExternalAccount(ctx context.Context, provider, subject, email, displayName, imageURL string) (domain.User, error)
	LinkExternalAccount(ctx context.Context, userID, provider, subject, email string) error
}

type AuthService struct {
	Users UsersStore
	Now   func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates an unverified user. The account stays unusable until the
// registration OTP is verified, and the cleanup job reclaims it if that
// never happens.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	return s.Users.CreateUser(ctx, email, displayName, passwordHash)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if u.PasswordHash == "" {
		// Provider-backed account without a local password.
		return domain.User{}, domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !u.IsVerified {
		return domain.User{}, domain.ErrNotVerified
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.now())

	return u.User, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, userID)
}

// FindOrLinkAccount reconciles a verified provider identity with the local
// store: match on (provider, subject) first, then merge by email, otherwise
// create a fresh verified account. The provider's display name and picture
// are adopted only when the local record has none.
func (s *AuthService) FindOrLinkAccount(ctx context.Context, claims *auth.ProviderClaims) (domain.User, error) {
	u, err := s.Users.GetUserByExternalAccount(ctx, claims.Provider, claims.Subject)
	if err == nil {
		_ = s.Users.SetLastLogin(ctx, u.ID, s.now())
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	emailAddr := strings.TrimSpace(strings.ToLower(claims.Email))
	if emailAddr == "" {
		return domain.User{}, domain.NewValidationError(map[string]string{
			"email": "provider did not supply an email address",
		})
	}

	existing, err := s.Users.GetUserByEmail(ctx, emailAddr)
	if err == nil {
		if err := s.Users.LinkExternalAccount(ctx, existing.ID, claims.Provider, claims.Subject, emailAddr); err != nil {
			return domain.User{}, err
		}
		user := existing.User
		if !user.IsVerified {
			// The provider vouches for the address.
			if err := s.Users.SetVerified(ctx, user.ID); err != nil {
				return domain.User{}, err
			}
			user.IsVerified = true
		}
		displayName := user.DisplayName
		imageURL := user.ImageURL
		if displayName == "" && claims.Name != "" {
			displayName = claims.Name
		}
		if imageURL == "" && claims.Picture != "" {
			imageURL = claims.Picture
		}
		if displayName != user.DisplayName || imageURL != user.ImageURL {
			updated, err := s.Users.UpdateProfile(ctx, user.ID, displayName, imageURL)
			if err != nil {
				return domain.User{}, err
			}
			user = updated
		}
		_ = s.Users.SetLastLogin(ctx, user.ID, s.now())
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	created, err := s.Users.CreateUserWithExternalAccount(ctx, claims.Provider, claims.Subject, emailAddr, claims.Name, claims.Picture)
	if err != nil {
		return domain.User{}, err
	}
	_ = s.Users.SetLastLogin(ctx, created.ID, s.now())
	return created, nil
}

// UpdateProfile changes the caller's display name. Image uploads happen
// elsewhere; only the resulting URL is stored here.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName, imageURL string) (domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.User{}, domain.NewValidationError(map[string]string{"displayName": "required"})
	}
	return s.Users.UpdateProfile(ctx, userID, displayName, imageURL)
}
