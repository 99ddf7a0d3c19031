package utils

import (
	"strings"
	"unicode"
)

// NormalizePhone strips formatting from a phone number, keeping only
// digits and a leading plus. "+63 (917) 555-0101" and "+639175550101"
// store identically.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range phone {
		if i == 0 && r == '+' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPhone reports whether a number still has enough digits to be
// dialable once formatting is stripped.
func IsValidPhone(phone string) bool {
	digits := strings.TrimPrefix(NormalizePhone(phone), "+")
	return len(digits) >= 7
}
