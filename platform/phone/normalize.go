// Package phone provides phone number canonicalization used by every
// ingestion path. This is part of the platform layer and contains no
// business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Normalize converts a raw phone string into an E.164-like canonical form.
// 10 raw digits become +1XXXXXXXXXX, 11 digits starting with 1 become
// +1XXXXXXXXXX. Anything else is parsed with libphonenumber as a fallback;
// if that fails too, the input is returned with a leading + so lookups
// stay stable. Malformed input produces a best-effort canonical string,
// never an error.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	digits := stripNonDigits(trimmed)
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}
	return "+" + digits
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
