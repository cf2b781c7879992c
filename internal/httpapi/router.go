package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth     *service.AuthService
	OTP      *service.OTPService
	Reset    *service.PasswordResetService
	Sessions *service.SessionService
	Tokens   *auth.TokenManager

	CookieCodec   auth.CookieCodec
	CookieSecure  bool
	SessionWindow time.Duration

	GoogleClientID string
	AppleServiceID string
	OAuthClients   map[string]*auth.OAuthClient
	RedirectURL    string
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	window := opts.SessionWindow
	if window <= 0 {
		window = 30 * time.Minute
	}

	a := &api{
		logger:         logger,
		isProd:         opts.IsProd,
		dbPing:         opts.DBPing,
		authSvc:        opts.Auth,
		otpSvc:         opts.OTP,
		resetSvc:       opts.Reset,
		sessions:       opts.Sessions,
		tokens:         opts.Tokens,
		cookieCodec:    opts.CookieCodec,
		cookieSecure:   opts.CookieSecure,
		sessionWindow:  window,
		googleClientID: opts.GoogleClientID,
		appleServiceID: opts.AppleServiceID,
		oauthClients:   opts.OAuthClients,
		redirectURL:    opts.RedirectURL,
		limiter:        newRateLimiter(5*time.Minute, 10),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("POST /auth/register", a.handleRegister)
	mux.HandleFunc("POST /auth/login", a.handleLogin)
	mux.HandleFunc("POST /auth/logout", a.handleLogout)
	mux.HandleFunc("POST /auth/logout-all", a.requireAuth(a.handleLogoutAll))
	mux.HandleFunc("POST /auth/refresh-token", a.handleRefreshToken)

	mux.HandleFunc("POST /auth/send-registration-otp", a.handleSendRegistrationOTP)
	mux.HandleFunc("POST /auth/verify-email", a.handleVerifyEmail)
	mux.HandleFunc("POST /auth/resend-otp", a.handleResendOTP)

	mux.HandleFunc("POST /auth/forgot-password", a.handleForgotPassword)
	mux.HandleFunc("POST /auth/verify-reset-otp", a.handleVerifyResetOTP)
	mux.HandleFunc("POST /auth/reset-password", a.handleResetPassword)

	mux.HandleFunc("POST /auth/oauth/{provider}", a.handleOAuthLogin)

	mux.HandleFunc("GET /users/me", a.requireAuth(a.handleUsersMe))
	mux.HandleFunc("PATCH /users/me", a.requireAuth(a.handleUsersMeUpdate))
	mux.HandleFunc("GET /auth/sessions/stats", a.requireAuth(a.handleSessionStats))

	var h http.Handler = mux
	h = a.sessionMiddleware(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc  *service.AuthService
	otpSvc   *service.OTPService
	resetSvc *service.PasswordResetService
	sessions *service.SessionService
	tokens   *auth.TokenManager

	cookieCodec   auth.CookieCodec
	cookieSecure  bool
	sessionWindow time.Duration

	googleClientID string
	appleServiceID string
	oauthClients   map[string]*auth.OAuthClient
	redirectURL    string

	limiter *rateLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
