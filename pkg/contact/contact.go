// Package contact normalizes the customer and volunteer contact fields the
// campaign collects: Indian mobile numbers and postal PIN codes.
package contact

import (
	"regexp"
	"strings"
)

var (
	mobilePattern  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// NormalizePhone strips separators and a leading +91, 91 or 0 trunk prefix,
// returning the bare ten digit number. ok is false when the result is not a
// valid mobile number.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	return digits, mobilePattern.MatchString(digits)
}

// ValidPincode reports whether the value is a six digit PIN code.
func ValidPincode(raw string) bool {
	return pincodePattern.MatchString(strings.TrimSpace(raw))
}

// CleanField trims and collapses internal whitespace in free-text address
// parts so equality matching is not defeated by double spaces.
func CleanField(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
