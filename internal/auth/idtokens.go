package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

// ProviderClaims is the normalized identity extracted from an external
// provider, regardless of whether it arrived as an ID token or via a code
// exchange.
type ProviderClaims struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ProviderClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing google client id")
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	return &ProviderClaims{
		Provider: "google",
		Subject:  payload.Subject,
		Email:    strings.TrimSpace(strings.ToLower(stringClaim(payload.Claims, "email"))),
		Name:     stringClaim(payload.Claims, "name"),
		Picture:  stringClaim(payload.Claims, "picture"),
	}, nil
}

func VerifyAppleIDToken(ctx context.Context, tokenString, expectedAud string) (*ProviderClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing apple service id")
	}

	client := validator.NewClient()
	idTok, err := client.VerifyIdToken(expectedAud, tokenString)
	if err != nil {
		return nil, err
	}
	if idTok.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idTok.Iss)
	}

	_ = ctx
	return &ProviderClaims{
		Provider: "apple",
		Subject:  idTok.Sub,
		Email:    strings.TrimSpace(strings.ToLower(idTok.Email)),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	if raw, ok := claims[key]; ok {
		if v, ok := raw.(string); ok {
			return v
		}
	}
	return ""
}
