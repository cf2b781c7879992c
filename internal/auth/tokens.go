package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrTokenInvalid = errors.New("token invalid")

// IdentityClaims is the authenticated identity carried by an access token.
// The session middleware reads it when minting a session for a request that
// arrives without one.
type IdentityClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
}

// TokenManager issues and parses the HS256 access/refresh token pair.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret []byte) *TokenManager {
	return &TokenManager{secret: secret, now: time.Now}
}

func (m *TokenManager) GenerateAccessToken(userID, email string) (string, error) {
	return m.generate(userID, email, tokenTypeAccess, AccessTokenTTL)
}

func (m *TokenManager) GenerateRefreshToken(userID, email string) (string, error) {
	return m.generate(userID, email, tokenTypeRefresh, RefreshTokenTTL)
}

func (m *TokenManager) generate(userID, email, typ string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		Email:     email,
		TokenType: typ,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (m *TokenManager) ParseAccessToken(tokenString string) (*IdentityClaims, error) {
	return m.parse(tokenString, tokenTypeAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (m *TokenManager) ParseRefreshToken(tokenString string) (*IdentityClaims, error) {
	return m.parse(tokenString, tokenTypeRefresh)
}

func (m *TokenManager) parse(tokenString, wantType string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
