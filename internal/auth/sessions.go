package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName and SessionHeaderName are shared constants between the
// server and its clients. The header carries the same signed value as the
// cookie for API clients that cannot rely on cookies.
const (
	SessionCookieName = "gk_session"
	SessionHeaderName = "X-Session-Token"
)

// SameSiteFlow selects the cookie's SameSite attribute. OAuth sign-in ends
// with a cross-site top-level navigation back from the provider, which a
// Strict cookie would not survive.
type SameSiteFlow int

const (
	FlowDefault SameSiteFlow = iota
	FlowOAuthRedirect
)

func (f SameSiteFlow) sameSite() http.SameSite {
	if f == FlowOAuthRedirect {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
}

// CookieCodec signs session identifiers so a forged cookie value is rejected
// before the store is consulted. An empty secret disables signing (dev only).
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return CookieCodec{secret: secretCopy}
}

func (c CookieCodec) EncodeSessionID(sessionID string) string {
	if len(c.secret) == 0 {
		return sessionID
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(sessionID))
	sig := mac.Sum(nil)

	return sessionID + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (c CookieCodec) DecodeSessionID(value string) (string, bool) {
	if len(c.secret) == 0 {
		return value, value != ""
	}

	id, sigB64, ok := strings.Cut(value, ".")
	if !ok || id == "" || sigB64 == "" {
		return "", false
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != sha256.Size {
		return "", false
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(id))
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}

	return id, true
}

// SetSessionCookie writes the signed session value on both the cookie and
// the response header. MaxAge mirrors the inactivity window; the server-side
// record is the source of truth and slides forward on each request.
func SetSessionCookie(w http.ResponseWriter, value string, window time.Duration, secure bool, flow SameSiteFlow) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: flow.sameSite(),
		MaxAge:   int(window.Seconds()),
		Expires:  time.Now().Add(window),
	})
	w.Header().Set(SessionHeaderName, value)
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	w.Header().Set(SessionHeaderName, "")
}

// SessionValueFromRequest extracts the signed session value from the cookie,
// falling back to the request header for non-browser clients.
func SessionValueFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeaderName))
}
