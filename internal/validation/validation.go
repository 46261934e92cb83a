// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 4
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes       = 72
	MaxVisitorTokenLength  = 128
	MaxTitleLength         = 300
	MaxContentLength       = 100_000
	MaxCommentLength       = 5_000
	MaxCommenterNameLength = 64
	MaxAuthorLength        = 128
	MaxImageURLLength      = 2048
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// visitor tokens are opaque but must be printable and free of whitespace so
// they survive a round trip through an HTTP header.
var visitorTokenRegex = regexp.MustCompile(`^[\x21-\x7e]+$`)

// ValidateUsername checks length and the allowed character set.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLength)
	}
	if n > MaxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, numbers, dots, hyphens and underscores")
	}
	return nil
}

// ValidatePassword checks a staff password meets the minimum length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateVisitorToken checks the anonymous visitor identifier.
func ValidateVisitorToken(token string) error {
	if token == "" {
		return fmt.Errorf("visitor token is required")
	}
	if len(token) > MaxVisitorTokenLength {
		return fmt.Errorf("visitor token must not exceed %d characters", MaxVisitorTokenLength)
	}
	if !visitorTokenRegex.MatchString(token) {
		return fmt.Errorf("visitor token contains invalid characters")
	}
	return nil
}

// ValidateRating checks a comment rating lies in [lo, hi].
func ValidateRating(rating, lo, hi int) error {
	if rating < lo || rating > hi {
		return fmt.Errorf("rating must be between %d and %d", lo, hi)
	}
	return nil
}

// RequireText trims value and fails when the result is empty or longer than
// maxLen runes.
func RequireText(field, value string, maxLen int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(v) > maxLen {
		return "", fmt.Errorf("%s must not exceed %d characters", field, maxLen)
	}
	return v, nil
}
