package httpapi

import (
	"net/http"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	IsVerified  bool       `json:"isVerified"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsVerified:  u.IsVerified,
		ImageURL:    u.ImageURL,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

type authData struct {
	RedirectTo   string       `json:"redirectTo,omitempty"`
	User         userResponse `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// establishSession creates a server-side session for the user and sets the
// signed identifier on both the cookie and the response header.
func (a *api) establishSession(w http.ResponseWriter, r *http.Request, userID string, flow auth.SameSiteFlow) {
	sess, err := a.sessions.Create(r.Context(), userID, clientIP(r), r.UserAgent())
	if err != nil {
		// The token pair still authenticates the client; the next request
		// through the middleware will mint a session.
		a.logger.Error("session create failed", "err", err)
		return
	}
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionWindow, a.cookieSecure, flow)
}

func (a *api) issueTokenPair(u domain.User) (string, string, error) {
	token, err := a.tokens.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return "", "", err
	}
	refresh, err := a.tokens.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return "", "", err
	}
	return token, refresh, nil
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		WriteError(w, http.StatusBadRequest, CodeInvalidEmail, "must be a valid email address")
		return
	}
	if !validPassword(req.Password) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"password": "must be 8-72 characters"}))
		return
	}

	u, err := a.authSvc.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	res, err := a.otpSvc.Issue(r.Context(), req.Email, domain.OTPPurposeRegistration, false)
	if err != nil {
		// Account exists; the client can still request a resend.
		a.logger.Error("registration otp send failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, "account created, verification code sent", CodeRegistered, map[string]any{
		"user": toUserResponse(u),
		"otp":  a.otpField(res.Code),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.limiter.Allow("login:ip:"+ip, now) || !a.limiter.Allow("login:email:"+req.Email, now) {
		WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "too many attempts")
		return
	}

	u, err := a.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	token, refresh, err := a.issueTokenPair(u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.establishSession(w, r, u.ID, auth.FlowDefault)

	WriteSuccess(w, http.StatusOK, "logged in", CodeLoginSuccess, authData{
		RedirectTo:   "/dashboard",
		User:         toUserResponse(u),
		Token:        token,
		RefreshToken: refresh,
	})
}

type logoutRequest struct {
	SessionID string `json:"sessionId"`
}

// handleLogout deletes the backing session record and clears the client's
// cookie/header. It reports success even when no session existed.
func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSONAllowEmpty(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	sessID := ""
	if sess, ok := CurrentSession(r.Context()); ok {
		sessID = sess.ID
	} else if value := auth.SessionValueFromRequest(r); value != "" {
		if id, ok := a.cookieCodec.DecodeSessionID(value); ok {
			sessID = id
		}
	}
	if sessID == "" && req.SessionID != "" {
		sessID = req.SessionID
	}

	if sessID != "" {
		if _, err := a.sessions.Delete(r.Context(), sessID); err != nil {
			a.logger.Error("session delete failed", "err", err)
		}
	}
	auth.ClearSessionCookie(w, a.cookieSecure)

	WriteSuccess(w, http.StatusOK, "logged out", CodeLoggedOut, nil)
}

func (a *api) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	count, err := a.sessions.DeleteAllForUser(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	auth.ClearSessionCookie(w, a.cookieSecure)

	WriteSuccess(w, http.StatusOK, "logged out everywhere", CodeLoggedOut, map[string]any{
		"sessionsRevoked": count,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *api) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	claims, err := a.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	u, err := a.authSvc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	token, refresh, err := a.issueTokenPair(u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "token refreshed", CodeTokenRefreshed, map[string]any{
		"token":        token,
		"refreshToken": refresh,
	})
}

// otpField hides the code outside dev; clients in production receive it by
// email only.
func (a *api) otpField(code string) string {
	if a.isProd {
		return "sent"
	}
	return code
}
