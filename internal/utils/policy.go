package utils

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// commonPasswords is a small deny-list of passwords that pass the character
// class rules but are still trivially guessable. Matched case-insensitively.
var commonPasswords = map[string]struct{}{
	"password1234!":  {},
	"p@ssword12345":  {},
	"administrator1!": {},
	"welcome12345!":  {},
	"qwerty123456!":  {},
	"letmein12345!":  {},
}

// PolicyError reports a rejected password. Reasons lists every violated
// rule, not just the first, so the dashboard can show the full checklist.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "weak password: " + strings.Join(e.Reasons, "; ")
}

// ValidatePassword checks a candidate password against the policy: at
// least minLen characters with upper, lower, digit and special classes all
// present, and not on the common-password deny-list. Returns nil when the
// password is acceptable, or a *PolicyError enumerating all violations.
func ValidatePassword(plain string, minLen int) error {
	var reasons []string

	// Rune count, not byte count: a multibyte character is one character.
	if utf8.RuneCountInString(plain) < minLen {
		reasons = append(reasons, fmt.Sprintf("must be at least %d characters", minLen))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "must contain a digit")
	}
	if !hasSpecial {
		reasons = append(reasons, "must contain a special character")
	}

	if _, found := commonPasswords[strings.ToLower(plain)]; found {
		reasons = append(reasons, "is a commonly used password")
	}

	if len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}
	return nil
}
