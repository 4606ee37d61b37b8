package validation

import (
	"regexp"
	"strings"
)

// MinPasswordLength is the identity provider's minimum.
const MinPasswordLength = 6

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasDomain reports whether email ends with suffix (e.g. "@lawrence.edu"), ignoring case.
func HasDomain(email, suffix string) bool {
	if suffix == "" {
		return IsValidEmail(email)
	}
	email = NormalizeEmail(email)
	suffix = strings.ToLower(strings.TrimSpace(suffix))
	if !strings.HasPrefix(suffix, "@") {
		suffix = "@" + suffix
	}
	return strings.HasSuffix(email, suffix) && len(email) > len(suffix) && IsValidEmail(email)
}

// IsValidPassword only enforces length; strength rules belong to the identity provider.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// LocalPart returns the text before '@', used as a display name.
func LocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
