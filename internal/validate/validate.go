package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	snRe       = regexp.MustCompile(`^[A-Z0-9]{16}$`)
	phoneStrip = regexp.MustCompile(`[\s\-()]`)

	phoneIntl  = regexp.MustCompile(`^\+216\d{8}$`)
	phoneCC    = regexp.MustCompile(`^216\d{8}$`)
	phoneLocal = regexp.MustCompile(`^\d{8}$`)

	pwLower   = regexp.MustCompile(`[a-z]`)
	pwUpper   = regexp.MustCompile(`[A-Z]`)
	pwDigit   = regexp.MustCompile(`\d`)
	pwSpecial = regexp.MustCompile(`[^A-Za-z\d]`)
)

// Email reports whether the address is plausibly formed.
func Email(email string) bool {
	return emailRe.MatchString(email)
}

// NormalizeEmail lowercases and trims an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Password enforces at least 8 characters with lower, upper, digit and
// special character classes.
func Password(password string) bool {
	return len(password) >= 8 &&
		pwLower.MatchString(password) &&
		pwUpper.MatchString(password) &&
		pwDigit.MatchString(password) &&
		pwSpecial.MatchString(password)
}

// SerialNumber validates the 16-character uppercase-alphanumeric service SN.
func SerialNumber(sn string) bool {
	return snRe.MatchString(sn)
}

// NormalizePhone canonicalizes a Tunisian subscriber number to +216XXXXXXXX.
// Returns "" when the input cannot be normalized.
func NormalizePhone(phone string) string {
	clean := phoneStrip.ReplaceAllString(phone, "")
	switch {
	case phoneIntl.MatchString(clean):
		return clean
	case phoneCC.MatchString(clean):
		return "+" + clean
	case phoneLocal.MatchString(clean):
		return "+216" + clean
	}
	return ""
}
