package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
	"github.com/mahanaatma1/GateKeeper/internal/email"
)

type OTPStore interface {
	ReplaceOTP(ctx context.Context, rec domain.OTPRecord) error
	GetOTPByEmail(ctx context.Context, email string) (domain.OTPRecord, error)
	DeleteOTPsForEmail(ctx context.Context, email string) (int64, error)
}

type OTPUsersStore interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetVerified(ctx context.Context, userID string) error
}

type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

type IssueResult struct {
	Code      string
	IsNewUser bool
}

const (
	deliveryRetries   = 2
	defaultRetryDelay = 2 * time.Second
)

// OTPService issues and verifies one-time passcodes. At most one live code
// exists per email; the store's replace semantics enforce that without
// in-process locking.
type OTPService struct {
	Store  OTPStore
	Users  OTPUsersStore
	Mailer Mailer

	CodeTTL    time.Duration
	RetryDelay time.Duration
	Now        func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OTPService) ttl() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return 10 * time.Minute
}

// Issue persists a code for the address and triggers delivery.
//
// A plain (non-resend) issue against a live code re-sends the same code
// instead of regenerating, so a double-submitted form does not invalidate
// the code already in the user's inbox. An explicit resend always
// regenerates. Delivery failure after retries is reported but does not roll
// back the stored code.
func (s *OTPService) Issue(ctx context.Context, emailAddr string, purpose domain.OTPPurpose, isResend bool) (IssueResult, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))

	isNewUser := false
	user, err := s.Users.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return IssueResult{}, err
		}
		isNewUser = true
	}
	if !isNewUser && user.IsVerified && purpose == domain.OTPPurposeRegistration && !isResend {
		return IssueResult{}, domain.ErrAlreadyVerified
	}

	now := s.now()
	code := ""

	if !isResend {
		rec, err := s.Store.GetOTPByEmail(ctx, emailAddr)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return IssueResult{}, err
		}
		if err == nil && rec.Purpose == purpose && rec.ExpiresAt.After(now) {
			code = rec.Code
		}
	}

	if code == "" {
		code, err = generateCode()
		if err != nil {
			return IssueResult{}, err
		}
		rec := domain.OTPRecord{
			Email:     emailAddr,
			Code:      code,
			Purpose:   purpose,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl()),
		}
		if err := s.Store.ReplaceOTP(ctx, rec); err != nil {
			return IssueResult{}, err
		}
	}

	result := IssueResult{Code: code, IsNewUser: isNewUser}

	msg := email.VerificationMessage(emailAddr, code, purpose, int(s.ttl().Minutes()))
	if err := s.deliver(ctx, msg); err != nil {
		return result, fmt.Errorf("%v: %w", err, domain.ErrDeliveryFailed)
	}
	return result, nil
}

// Verify consumes a matching live code and returns the owning user, marking
// it verified for registration flows. A matching-but-expired code reports
// ErrOTPExpired so clients can offer a resend instead of a generic failure.
func (s *OTPService) Verify(ctx context.Context, emailAddr, code string, purpose domain.OTPPurpose) (domain.User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))

	rec, err := s.Store.GetOTPByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrOTPInvalid
		}
		return domain.User{}, err
	}
	if rec.Code != code || rec.Purpose != purpose {
		return domain.User{}, domain.ErrOTPInvalid
	}
	if !rec.ExpiresAt.After(s.now()) {
		return domain.User{}, domain.ErrOTPExpired
	}

	if _, err := s.Store.DeleteOTPsForEmail(ctx, emailAddr); err != nil {
		return domain.User{}, err
	}

	user, err := s.Users.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if purpose == domain.OTPPurposeRegistration && !user.IsVerified {
		if err := s.Users.SetVerified(ctx, user.ID); err != nil {
			return domain.User{}, err
		}
		user.IsVerified = true
	}
	return user.User, nil
}

// Resend regenerates and redelivers a code. Unlike Issue, the user record
// must already exist.
func (s *OTPService) Resend(ctx context.Context, emailAddr string, purpose domain.OTPPurpose) (IssueResult, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))

	if _, err := s.Users.GetUserByEmail(ctx, emailAddr); err != nil {
		return IssueResult{}, err
	}
	return s.Issue(ctx, emailAddr, purpose, true)
}

func (s *OTPService) deliver(ctx context.Context, msg email.Message) error {
	delay := s.RetryDelay
	if delay == 0 {
		delay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 0; attempt <= deliveryRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
		if lastErr = s.Mailer.Send(ctx, msg); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// generateCode draws a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
