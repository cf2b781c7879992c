package httpapi

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpRe   = regexp.MustCompile(`^\d{6}$`)
)

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func validEmail(s string) bool {
	return len(s) <= 254 && emailRe.MatchString(s)
}

func validOTP(s string) bool {
	return otpRe.MatchString(s)
}

// bcrypt rejects inputs over 72 bytes, so that is the ceiling here too.
func validPassword(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}
