// Package security provides advisory strength checks for store passphrases.
package security

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MinPassphraseLength is the NIST SP 800-63B minimum for user-chosen secrets.
const MinPassphraseLength = 8

// Strength represents the strength level of a passphrase.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthFair
	StrengthGood
	StrengthStrong
)

// String returns a human-readable representation of the strength.
func (s Strength) String() string {
	switch s {
	case StrengthWeak:
		return "weak"
	case StrengthFair:
		return "fair"
	case StrengthGood:
		return "good"
	case StrengthStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// Check is the result of CheckPassphrase. Warnings are suggestions, never errors.
type Check struct {
	Strength Strength
	Warnings []string
}

// CheckPassphrase estimates passphrase strength.
//
// Length is the primary factor per NIST guidelines; character variety only
// adds a warning when it is very low.
func CheckPassphrase(passphrase []byte) Check {
	length := utf8.RuneCount(passphrase)
	var c Check

	switch {
	case length >= 20:
		c.Strength = StrengthStrong
	case length >= 14:
		c.Strength = StrengthGood
	case length >= MinPassphraseLength:
		c.Strength = StrengthFair
	default:
		c.Strength = StrengthWeak
		c.Warnings = append(c.Warnings,
			fmt.Sprintf("Passphrase is shorter than %d characters", MinPassphraseLength))
	}

	if length >= MinPassphraseLength && length < 12 {
		c.Warnings = append(c.Warnings, "Longer passphrases (12+ characters) are more secure")
	}
	if length > 0 && classCount(passphrase) < 2 && length < 20 {
		c.Warnings = append(c.Warnings,
			"Consider mixing letters, numbers and symbols, or use a longer passphrase")
	}
	return c
}

func classCount(b []byte) int {
	var upper, lower, digit, other bool
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	n := 0
	for _, ok := range []bool{upper, lower, digit, other} {
		if ok {
			n++
		}
	}
	return n
}
