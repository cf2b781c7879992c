package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("unexpected env: %s", cfg.Env)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.SessionWindow != 30*time.Minute {
		t.Fatalf("unexpected session window: %s", cfg.SessionWindow)
	}
	if cfg.OTPTTL != 10*time.Minute {
		t.Fatalf("unexpected otp ttl: %s", cfg.OTPTTL)
	}
	if cfg.UnverifiedRetention != 24*time.Hour {
		t.Fatalf("unexpected retention: %s", cfg.UnverifiedRetention)
	}
	if cfg.SessionSweepInterval != time.Hour || cfg.AccountSweepInterval != 12*time.Hour {
		t.Fatalf("unexpected sweep intervals: %s %s", cfg.SessionSweepInterval, cfg.AccountSweepInterval)
	}
	if cfg.CookieSecure() {
		t.Fatalf("dev without public url should not force secure cookies")
	}
}

func TestLoadFromEnvDurations(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{
		"APP_SESSION_WINDOW": "45m",
		"APP_OTP_TTL":        "5m",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.SessionWindow != 45*time.Minute || cfg.OTPTTL != 5*time.Minute {
		t.Fatalf("unexpected durations: %s %s", cfg.SessionWindow, cfg.OTPTTL)
	}

	if _, err := LoadFromEnv(envMap(map[string]string{"APP_SESSION_WINDOW": "soon"})); err == nil {
		t.Fatalf("expected error for unparseable duration")
	}
	if _, err := LoadFromEnv(envMap(map[string]string{"APP_OTP_TTL": "-5m"})); err == nil {
		t.Fatalf("expected error for non-positive duration")
	}
}

func TestLoadFromEnvRejectsUnknownEnv(t *testing.T) {
	if _, err := LoadFromEnv(envMap(map[string]string{"APP_ENV": "staging"})); err == nil {
		t.Fatalf("expected error for unknown APP_ENV")
	}
}

func TestLoadFromEnvPublicURL(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{"APP_PUBLIC_URL": "https://auth.example.com"}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.PublicURL == nil || cfg.PublicURL.Host != "auth.example.com" {
		t.Fatalf("unexpected public url: %v", cfg.PublicURL)
	}
	if !cfg.CookieSecure() {
		t.Fatalf("https public url should force secure cookies")
	}

	if _, err := LoadFromEnv(envMap(map[string]string{"APP_PUBLIC_URL": "ftp://example.com"})); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
	if _, err := LoadFromEnv(envMap(map[string]string{"APP_PUBLIC_URL": "/relative"})); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

func TestLoadFromEnvProdValidation(t *testing.T) {
	base := map[string]string{
		"APP_ENV":             "prod",
		"APP_PUBLIC_URL":      "https://auth.example.com",
		"APP_DB_DSN":          "postgres://localhost/gatekeeper",
		"APP_COOKIE_SECRET":   strings.Repeat("c", 32),
		"APP_JWT_SECRET":      strings.Repeat("j", 32),
		"APP_SMTP_HOST":       "smtp.example.com",
		"APP_SMTP_FROM_EMAIL": "no-reply@example.com",
	}

	if _, err := LoadFromEnv(envMap(base)); err != nil {
		t.Fatalf("valid prod config rejected: %v", err)
	}

	for _, key := range []string{"APP_PUBLIC_URL", "APP_DB_DSN", "APP_SMTP_HOST", "APP_SMTP_FROM_EMAIL"} {
		m := make(map[string]string, len(base))
		for k, v := range base {
			m[k] = v
		}
		delete(m, key)
		if _, err := LoadFromEnv(envMap(m)); err == nil {
			t.Fatalf("expected error when %s missing in prod", key)
		}
	}

	m := make(map[string]string, len(base))
	for k, v := range base {
		m[k] = v
	}
	m["APP_COOKIE_SECRET"] = "short"
	if _, err := LoadFromEnv(envMap(m)); err == nil {
		t.Fatalf("expected error for short cookie secret in prod")
	}
}

func TestLoadFromEnvSMTPPort(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{"APP_SMTP_HOST": "smtp.example.com"}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("expected default submission port, got %d", cfg.SMTP.Port)
	}

	if _, err := LoadFromEnv(envMap(map[string]string{"APP_SMTP_PORT": "notaport"})); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"# comment",
		"",
		"APP_ENV=test",
		"export APP_ADDR=0.0.0.0:9090",
		`APP_DB_DSN="postgres://localhost/gatekeeper"`,
		"APP_LOG_LEVEL='debug'",
		"MALFORMED LINE",
		"APP_COOKIE_SECRET=",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	env := map[string]string{
		"APP_ENV": "prod", // already set; must not be overridden
	}
	setenv := func(k, v string) error { env[k] = v; return nil }
	getenv := func(k string) string { return env[k] }

	if err := loadDotEnvFile(path, setenv, getenv); err != nil {
		t.Fatalf("loadDotEnvFile: %v", err)
	}

	if env["APP_ENV"] != "prod" {
		t.Fatalf("existing env must win, got %q", env["APP_ENV"])
	}
	if env["APP_ADDR"] != "0.0.0.0:9090" {
		t.Fatalf("export prefix not handled: %q", env["APP_ADDR"])
	}
	if env["APP_DB_DSN"] != "postgres://localhost/gatekeeper" {
		t.Fatalf("double quotes not stripped: %q", env["APP_DB_DSN"])
	}
	if env["APP_LOG_LEVEL"] != "debug" {
		t.Fatalf("single quotes not stripped: %q", env["APP_LOG_LEVEL"])
	}
	if _, ok := env["MALFORMED"]; ok {
		t.Fatalf("malformed line should be skipped")
	}
	if _, ok := env["APP_COOKIE_SECRET"]; ok {
		t.Fatalf("empty value should be skipped")
	}
}
