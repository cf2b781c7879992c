package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type authCtxKey int

const (
	authUserKey authCtxKey = iota
	authSessionKey
)

// Paths that carry their own proof (credentials, OTP, provider assertion)
// bypass session handling entirely.
var exemptPaths = map[string]bool{
	"/healthz":                     true,
	"/auth/register":               true,
	"/auth/login":                  true,
	"/auth/send-registration-otp":  true,
	"/auth/verify-email":           true,
	"/auth/resend-otp":             true,
	"/auth/forgot-password":        true,
	"/auth/verify-reset-otp":       true,
	"/auth/reset-password":         true,
	"/auth/refresh-token":          true,
}

func isExemptPath(path string) bool {
	return exemptPaths[path] || strings.HasPrefix(path, "/auth/oauth/")
}

// sessionMiddleware runs the per-request session state machine:
//
//  1. exempt paths pass through untouched;
//  2. a valid presented session is touched (sliding window) and its user
//     attached;
//  3. a presented-but-dead session gets its cookie cleared, then
//  4. a valid bearer access token mints a fresh session, set on both cookie
//     and header;
//  5. otherwise the request proceeds unauthenticated and downstream
//     authorization decides.
func (a *api) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if value := auth.SessionValueFromRequest(r); value != "" {
			if sessID, ok := a.cookieCodec.DecodeSessionID(value); ok {
				sess, err := a.sessions.Get(r.Context(), sessID)
				switch {
				case err == nil:
					_, _ = a.sessions.Touch(r.Context(), sessID)
					a.serveWithSession(w, r, next, sess)
					return
				case !errors.Is(err, domain.ErrNotFound):
					// Store failure, not a dead session. Keep the client's
					// cookie and continue unauthenticated.
					a.logger.Error("session lookup failed", "err", err)
					next.ServeHTTP(w, r)
					return
				}
			}
			auth.ClearSessionCookie(w, a.cookieSecure)
		}

		if claims := a.bearerClaims(r); claims != nil {
			sess, err := a.sessions.Create(r.Context(), claims.UserID, clientIP(r), r.UserAgent())
			if err == nil {
				auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionWindow, a.cookieSecure, auth.FlowDefault)
				a.serveWithSession(w, r, next, sess)
				return
			}
			a.logger.Error("session create failed", "err", err)
		}

		next.ServeHTTP(w, r)
	})
}

func (a *api) serveWithSession(w http.ResponseWriter, r *http.Request, next http.Handler, sess domain.Session) {
	ctx := context.WithValue(r.Context(), authSessionKey, sess)
	if u, err := a.authSvc.GetUser(ctx, sess.UserID); err == nil {
		ctx = context.WithValue(ctx, authUserKey, u)
	}
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (a *api) bearerClaims(r *http.Request) *auth.IdentityClaims {
	if a.tokens == nil {
		return nil
	}
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return nil
	}
	claims, err := a.tokens.ParseAccessToken(strings.TrimSpace(tokenString))
	if err != nil {
		return nil
	}
	return claims
}

func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func CurrentSession(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(authSessionKey).(domain.Session)
	return s, ok
}
