package validators

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeString normalises user text to NFC and strips control characters.
// Whitespace runs collapse to one space and the result is cut at maxLen
// runes, never mid-character.
func SanitizeString(input string, maxLen int) string {
	normalized := norm.NFC.String(input)

	var b strings.Builder
	b.Grow(len(normalized))
	pendingSpace := false
	runes := 0
	for _, r := range normalized {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if maxLen > 0 && runes >= maxLen {
			break
		}
		if pendingSpace {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
