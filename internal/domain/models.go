package domain

import "time"

type User struct {
	ID          string
	Email       string
	DisplayName string
	IsVerified  bool
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

type ExternalAccount struct {
	ID        string
	UserID    string
	Provider  string
	Subject   string
	Email     string
	CreatedAt time.Time
}

// OTPPurpose scopes a code to the flow that issued it so a registration
// code cannot be replayed against a password reset.
type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTPRecord is a short-lived credential challenge. At most one live record
// exists per email; issuing a new one removes prior rows for that address.
type OTPRecord struct {
	ID        string
	Email     string
	Code      string
	Purpose   OTPPurpose
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Session is server-side proof of an authenticated client. Expiration is a
// sliding window: every qualifying request pushes ExpiresAt forward to
// LastActivity + window. A session is valid iff ExpiresAt > now.
type Session struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	IP           string
	UserAgent    string
}

// SessionStats reports non-expired sessions and the distinct users holding
// at least one of them.
type SessionStats struct {
	TotalSessions int64
	ActiveUsers   int64
}

type PasswordResetToken struct {
	ID          string
	UserID      string
	TokenHash   string
	SentToEmail string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
}
