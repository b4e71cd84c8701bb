package utils

import (
	"strings"
)

// NormalizePhone canonicalizes a Brazilian phone number into the digits-only
// form the chat channel uses (55 + DDD + number). WhatsApp ids for older
// numbers omit the ninth digit, so an 8-digit local part is accepted as-is.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "55") && len(digits) >= 12 {
		return digits
	}
	// local number with DDD
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
