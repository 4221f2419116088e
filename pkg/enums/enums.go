// Package enums holds the string enumerations stored in text columns and
// carried on the wire. Parse functions trim and lowercase their input.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func parse[T ~string](known []T, kind, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(known, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
