package utils

import (
	"errors"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestValidatePasswordAcceptsStrong(t *testing.T) {
	c := qt.New(t)

	c.Assert(ValidatePassword("Correct-Horse7battery", 12), qt.IsNil)
	// Exactly the minimum length with all classes present.
	c.Assert(ValidatePassword("Ab3!Ab3!Ab3!", 12), qt.IsNil)
}

func TestValidatePasswordLengthBoundary(t *testing.T) {
	c := qt.New(t)

	// One character short of the minimum, everything else fine.
	err := ValidatePassword("Ab3!Ab3!Ab3", 12)
	c.Assert(err, qt.IsNotNil)

	var policyErr *PolicyError
	c.Assert(errors.As(err, &policyErr), qt.IsTrue)
	c.Assert(policyErr.Reasons, qt.HasLen, 1)
	c.Assert(policyErr.Reasons[0], qt.Contains, "at least 12 characters")
}

func TestValidatePasswordCountsRunesNotBytes(t *testing.T) {
	c := qt.New(t)

	// 11 characters but 12 bytes ("é" is two bytes): still too short.
	short := "Aé1!aaaaaaa"
	c.Assert(len(short) >= 12, qt.IsTrue)
	err := ValidatePassword(short, 12)
	var policyErr *PolicyError
	c.Assert(errors.As(err, &policyErr), qt.IsTrue)
	c.Assert(policyErr.Reasons, qt.HasLen, 1)
	c.Assert(policyErr.Reasons[0], qt.Contains, "at least 12 characters")

	// 12 characters including a multibyte one is accepted.
	c.Assert(ValidatePassword("Aé1!aaaaaaaa", 12), qt.IsNil)
}

func TestValidatePasswordEnumeratesAllViolations(t *testing.T) {
	c := qt.New(t)

	// Too short, no upper, no digit, no special: four distinct reasons.
	err := ValidatePassword("abcdef", 12)
	var policyErr *PolicyError
	c.Assert(errors.As(err, &policyErr), qt.IsTrue)
	c.Assert(policyErr.Reasons, qt.HasLen, 4)

	joined := strings.Join(policyErr.Reasons, "|")
	c.Assert(joined, qt.Contains, "at least 12 characters")
	c.Assert(joined, qt.Contains, "uppercase")
	c.Assert(joined, qt.Contains, "digit")
	c.Assert(joined, qt.Contains, "special")
}

func TestValidatePasswordDenyList(t *testing.T) {
	c := qt.New(t)

	// Passes every class rule but is on the deny-list.
	err := ValidatePassword("Password1234!", 12)
	var policyErr *PolicyError
	c.Assert(errors.As(err, &policyErr), qt.IsTrue)
	c.Assert(policyErr.Reasons, qt.HasLen, 1)
	c.Assert(policyErr.Reasons[0], qt.Contains, "commonly used")
}
