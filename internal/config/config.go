package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type SMTP struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	TLSMode   string
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Env       string
	Addr      string
	PublicURL *url.URL
	DBDSN     string
	LogLevel  string

	CookieSecret string
	JWTSecret    string

	SessionWindow        time.Duration
	OTPTTL               time.Duration
	UnverifiedRetention  time.Duration
	SessionSweepInterval time.Duration
	AccountSweepInterval time.Duration

	SMTP SMTP

	GoogleClientID   string
	AppleServiceID   string
	GitHub           OAuthProvider
	LinkedIn         OAuthProvider
	Facebook         OAuthProvider
	OAuthRedirectURL string
}

func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := loadDotEnvFile(".env", os.Setenv, os.Getenv); err != nil {
			return Config{}, err
		}
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:          getenv("APP_ENV"),
		Addr:         getenv("APP_ADDR"),
		DBDSN:        getenv("APP_DB_DSN"),
		LogLevel:     getenv("APP_LOG_LEVEL"),
		CookieSecret: getenv("APP_COOKIE_SECRET"),
		JWTSecret:    getenv("APP_JWT_SECRET"),

		GoogleClientID: getenv("APP_GOOGLE_CLIENT_ID"),
		AppleServiceID: getenv("APP_APPLE_SERVICE_ID"),
		GitHub: OAuthProvider{
			ClientID:     getenv("APP_GITHUB_CLIENT_ID"),
			ClientSecret: getenv("APP_GITHUB_CLIENT_SECRET"),
		},
		LinkedIn: OAuthProvider{
			ClientID:     getenv("APP_LINKEDIN_CLIENT_ID"),
			ClientSecret: getenv("APP_LINKEDIN_CLIENT_SECRET"),
		},
		Facebook: OAuthProvider{
			ClientID:     getenv("APP_FACEBOOK_CLIENT_ID"),
			ClientSecret: getenv("APP_FACEBOOK_CLIENT_SECRET"),
		},
		OAuthRedirectURL: getenv("APP_OAUTH_REDIRECT_URL"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	cfg.SessionWindow, err = durationEnv(getenv, "APP_SESSION_WINDOW", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.OTPTTL, err = durationEnv(getenv, "APP_OTP_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.UnverifiedRetention, err = durationEnv(getenv, "APP_UNVERIFIED_RETENTION", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionSweepInterval, err = durationEnv(getenv, "APP_SESSION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.AccountSweepInterval, err = durationEnv(getenv, "APP_ACCOUNT_SWEEP_INTERVAL", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	cfg.SMTP = SMTP{
		Host:      getenv("APP_SMTP_HOST"),
		Username:  getenv("APP_SMTP_USERNAME"),
		Password:  getenv("APP_SMTP_PASSWORD"),
		FromEmail: strings.TrimSpace(strings.ToLower(getenv("APP_SMTP_FROM_EMAIL"))),
		FromName:  getenv("APP_SMTP_FROM_NAME"),
		TLSMode:   getenv("APP_SMTP_TLS_MODE"),
	}
	if portRaw := getenv("APP_SMTP_PORT"); portRaw != "" {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, errors.New("APP_SMTP_PORT: must be a valid port")
		}
		cfg.SMTP.Port = port
	} else if cfg.SMTP.Host != "" {
		cfg.SMTP.Port = 587
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
		if len(cfg.JWTSecret) < 32 {
			return Config{}, errors.New("APP_JWT_SECRET: must be at least 32 bytes in prod")
		}
		if cfg.SMTP.Host == "" {
			return Config{}, errors.New("APP_SMTP_HOST: required in prod")
		}
		if cfg.SMTP.FromEmail == "" {
			return Config{}, errors.New("APP_SMTP_FROM_EMAIL: required in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

func durationEnv(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}

// loadDotEnvFile applies KEY=VALUE lines from a .env file without overriding
// variables already present in the environment. Lines may carry an optional
// "export " prefix and single or double quotes; malformed lines are skipped.
func loadDotEnvFile(path string, setenv func(string, string) error, getenv func(string) string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if getenv(key) != "" {
			continue
		}
		if err := setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
