package validators

import (
	"strings"
	"unicode"
)

// CleanText normalises free-text operator input before it is stored: control
// characters are dropped, whitespace runs collapse to one space, and the
// result is cut to maxRunes runes when maxRunes > 0.
func CleanText(input string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	count := 0
	for _, r := range input {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if maxRunes > 0 && count >= maxRunes {
			break
		}
		if pendingSpace {
			if maxRunes > 0 && count+1 >= maxRunes {
				break
			}
			b.WriteByte(' ')
			count++
			pendingSpace = false
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

// CleanOptionalText applies CleanText to an optional field; empty results
// become nil.
func CleanOptionalText(input *string, maxRunes int) *string {
	if input == nil {
		return nil
	}
	cleaned := CleanText(*input, maxRunes)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
