package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCookieCodec_SignAndVerify(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("x", 32)))

	encoded := codec.EncodeSessionID("abc")
	if encoded == "abc" {
		t.Fatalf("expected signed cookie value")
	}

	id, ok := codec.DecodeSessionID(encoded)
	if !ok || id != "abc" {
		t.Fatalf("expected decode ok for signed cookie")
	}

	_, ok = codec.DecodeSessionID(encoded + "x")
	if ok {
		t.Fatalf("expected tampered cookie to fail verification")
	}
}

func TestCookieCodec_Unsigned(t *testing.T) {
	codec := NewCookieCodec(nil)
	id, ok := codec.DecodeSessionID("abc")
	if !ok || id != "abc" {
		t.Fatalf("expected unsigned cookie to decode")
	}
}

func TestSetSessionCookieDefaultFlow(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "v", 10*time.Minute, false, FlowDefault)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName {
		t.Fatalf("unexpected cookie name: %s", c.Name)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie attributes: %+v", c)
	}
	if c.MaxAge != 600 {
		t.Fatalf("expected MaxAge to match window, got %d", c.MaxAge)
	}
	if rr.Header().Get(SessionHeaderName) != "v" {
		t.Fatalf("expected session header to mirror cookie value")
	}
}

func TestSetSessionCookieOAuthFlow(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "v", 10*time.Minute, true, FlowOAuthRedirect)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("oauth flow cookie must be Lax")
	}
	if !c.Secure {
		t.Fatalf("expected secure cookie")
	}
}

func TestClearSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	ClearSessionCookie(rr, false)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Fatalf("expected MaxAge=-1 on clear")
	}
}

func TestSessionValueFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionValueFromRequest(r); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(SessionHeaderName, " header-value ")
	if got := SessionValueFromRequest(r); got != "header-value" {
		t.Fatalf("expected header fallback, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(SessionHeaderName, "header-value")
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-value"})
	if got := SessionValueFromRequest(r); got != "cookie-value" {
		t.Fatalf("cookie must win over header, got %q", got)
	}
}
