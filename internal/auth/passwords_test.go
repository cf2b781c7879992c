package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordSaltsEachHash(t *testing.T) {
	p := "correct horse battery staple"
	h1, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for same password")
	}
	if !strings.HasPrefix(h1, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", h1)
	}
}

func TestVerifyPassword(t *testing.T) {
	p := "correct horse battery staple"
	h, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword(h, p)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword(h, "wrong password")
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestVerifyPasswordRejectsGarbageHash(t *testing.T) {
	ok, err := VerifyPassword("not a bcrypt hash", "whatever")
	if err == nil {
		t.Fatalf("expected error for malformed hash")
	}
	if ok {
		t.Fatalf("malformed hash must not verify")
	}
}

func TestHashPasswordTooLong(t *testing.T) {
	// bcrypt caps input at 72 bytes; longer inputs must error, not truncate.
	_, err := HashPassword(strings.Repeat("x", 100))
	if err == nil {
		t.Fatalf("expected error for over-length password")
	}
}
