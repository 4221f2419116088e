// Package refcode generates short human-readable identifiers such as
// volunteer referral codes and order numbers.
package refcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// alphabet omits 0/O and 1/I so codes survive being read over the phone.
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	VolunteerPrefix = "VOL"
	OrderPrefix     = "SD"
)

// New returns prefix-XXXX with n random characters.
func New(prefix string, n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("refcode length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	for _, c := range buf {
		b.WriteByte(alphabet[int(c)%len(alphabet)])
	}
	return b.String(), nil
}

// Normalize uppercases and trims user-entered codes.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Volunteer returns a new VOL-XXXXXX referral code.
func Volunteer() (string, error) {
	return New(VolunteerPrefix, 6)
}

// Order returns a new SD-XXXXXXXX order number.
func Order() (string, error) {
	return New(OrderPrefix, 8)
}
