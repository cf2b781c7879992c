package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/config"
	"github.com/mahanaatma1/GateKeeper/internal/email"
	"github.com/mahanaatma1/GateKeeper/internal/httpapi"
	"github.com/mahanaatma1/GateKeeper/internal/jobs"
	"github.com/mahanaatma1/GateKeeper/internal/service"
	"github.com/mahanaatma1/GateKeeper/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if cfg.DBDSN == "" {
		logger.Error("APP_DB_DSN is required")
		os.Exit(1)
	}

	pgPool, err := postgres.Open(context.Background(), cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	users := postgres.NewUsersStore(pgPool)
	sessions := postgres.NewSessionsStore(pgPool)
	otps := postgres.NewOTPStore(pgPool)
	resetTokens := postgres.NewResetTokensStore(pgPool)

	mailer := &email.Client{
		Settings: email.Settings{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			FromName:  cfg.SMTP.FromName,
			TLSMode:   cfg.SMTP.TLSMode,
		},
	}

	authSvc := &service.AuthService{Users: users}
	sessionSvc := &service.SessionService{
		Store:  sessions,
		Window: cfg.SessionWindow,
	}
	otpSvc := &service.OTPService{
		Store:   otps,
		Users:   users,
		Mailer:  mailer,
		CodeTTL: cfg.OTPTTL,
	}
	resetSvc := &service.PasswordResetService{
		Store:    resetTokens,
		Users:    users,
		Sessions: sessions,
	}

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()
	sweeper := &jobs.Sweeper{
		Logger:          logger,
		Sessions:        sessionSvc,
		Users:           users,
		SessionInterval: cfg.SessionSweepInterval,
		AccountInterval: cfg.AccountSweepInterval,
		Retention:       cfg.UnverifiedRetention,
	}
	go sweeper.Run(sweepCtx)

	oauthClients := make(map[string]*auth.OAuthClient)
	for provider, creds := range map[string]config.OAuthProvider{
		"github":   cfg.GitHub,
		"linkedin": cfg.LinkedIn,
		"facebook": cfg.Facebook,
	} {
		if creds.ClientID == "" {
			continue
		}
		oauthClients[provider] = &auth.OAuthClient{
			Provider:     provider,
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
		}
	}

	handler := httpapi.NewRouter(httpapi.RouterOpts{
		Logger: logger,
		IsProd: cfg.IsProd(),
		DBPing: pgPool.Ping,

		Auth:     authSvc,
		OTP:      otpSvc,
		Reset:    resetSvc,
		Sessions: sessionSvc,
		Tokens:   auth.NewTokenManager([]byte(cfg.JWTSecret)),

		CookieCodec:   auth.NewCookieCodec([]byte(cfg.CookieSecret)),
		CookieSecure:  cfg.CookieSecure(),
		SessionWindow: cfg.SessionWindow,

		GoogleClientID: cfg.GoogleClientID,
		AppleServiceID: cfg.AppleServiceID,
		OAuthClients:   oauthClients,
		RedirectURL:    cfg.OAuthRedirectURL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		stopSweeps()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
