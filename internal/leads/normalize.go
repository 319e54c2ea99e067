package leads

import (
	"strings"
	"unicode"
)

// NormalizeEmail lowercases and trims; an address without "@" normalizes to
// empty.
func NormalizeEmail(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(v, "@") {
		return ""
	}
	return v
}

// NormalizePhone keeps digits only and drops a leading country code so that
// "+52 55 1234 5678" and "55-1234-5678" collide.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	if len(digits) < 7 {
		return ""
	}
	return digits
}
