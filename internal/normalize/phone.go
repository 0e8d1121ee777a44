package normalize

import (
	"regexp"
	"strings"
)

var (
	countryPrefixRegex = regexp.MustCompile(`^(\+91|91|0091)`)
	nonDigitRegex      = regexp.MustCompile(`\D`)
)

// Phone returns the 10-digit mobile number contained in raw, or "" when raw
// does not hold a valid one. A leading +91, 91 or 0091 is removed before
// the digits are extracted.
func Phone(raw string) string {
	v, _ := CheckPhone(raw)
	return v
}

// CheckPhone is Phone with a validity flag.
func CheckPhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	stripped := nonDigitRegex.ReplaceAllString(countryPrefixRegex.ReplaceAllString(raw, ""), "")
	if isMobile(stripped) {
		return stripped, true
	}

	// A canonical number that itself starts with 91 loses its first two
	// digits to the prefix rule. Only bare 10-digit input is taken as is.
	if allDigitsRegex.MatchString(raw) && isMobile(raw) {
		return raw, true
	}

	return "", false
}

func isMobile(digits string) bool {
	return len(digits) == 10 && digits[0] >= '6' && digits[0] <= '9'
}
