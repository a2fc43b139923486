// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength  = 4
	MaxUsernameLength  = 40
	MinPasswordLength  = 6
	MaxPasswordLength  = 40
	MaxQuoteTextLength = 255
)

// ValidateUsername checks the handle length. Handles are case-sensitive and
// stored exactly as given.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if strings.TrimSpace(username) != username {
		return fmt.Errorf("username must not start or end with whitespace")
	}
	return nil
}

// ValidatePassword checks the password length.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// NormalizeQuoteText trims text and checks it is 1..255 characters.
func NormalizeQuoteText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("text is required")
	}
	if utf8.RuneCountInString(text) > MaxQuoteTextLength {
		return "", fmt.Errorf("text must not exceed %d characters", MaxQuoteTextLength)
	}
	return text, nil
}
