// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"workshop_portal_backend/platform/apperr"
)

const defaultRegion = "MX"

const (
	// CountryCode is the Mexican country calling code.
	CountryCode = "52"
	// MobileSendPrefix is the country code plus the trunk digit the
	// messaging gateway expects in front of a 10-digit national number.
	MobileSendPrefix = "521"

	localDigits = 10
)

// ToLocalForm canonicalizes a raw phone number to the 10-digit national form
// used as the agent-settings key. Inputs with more than 10 digits keep the
// last 10 (drops country code and trunk prefixes). Fewer than 10 digits is
// a validation error.
func ToLocalForm(raw string) (string, error) {
	digits := stripNonDigits(raw)
	if len(digits) < localDigits {
		return "", apperr.Validation("invalid phone number: " + strings.TrimSpace(raw))
	}
	if len(digits) > localDigits {
		digits = digits[len(digits)-localDigits:]
	}
	return digits, nil
}

// ToGatewayForm converts a raw phone number to the country-prefixed form the
// messaging gateway expects. It never fails: inputs that match none of the
// known shapes are returned as-is and rejected downstream by the gateway.
// Batch loops rely on this leniency; only ToLocalForm rejects.
func ToGatewayForm(raw string) string {
	digits := stripNonDigits(raw)

	switch {
	case len(digits) > localDigits && strings.HasPrefix(digits, CountryCode):
		return digits
	case len(digits) == localDigits:
		return MobileSendPrefix + digits
	case len(digits) == localDigits+1 && strings.HasPrefix(digits, "1"):
		return CountryCode + digits[1:]
	default:
		return raw
	}
}

// IsValidLocal reports whether s is a canonical 10-digit national number.
func IsValidLocal(s string) bool {
	if len(s) != localDigits {
		return false
	}
	return allDigits(s)
}

// IsGatewayDeliverable reports whether s looks like a number the gateway will
// accept: country-prefixed, 12 or 13 digits total.
func IsGatewayDeliverable(s string) bool {
	if !strings.HasPrefix(s, CountryCode) {
		return false
	}
	if len(s) != localDigits+2 && len(s) != localDigits+3 {
		return false
	}
	return allDigits(s)
}

// NormalizeE164 formats arbitrary user input to E.164 using the default
// region. If parsing fails the trimmed input is returned unchanged, so the
// digit rules above still get a chance at it.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
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
