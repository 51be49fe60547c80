package validation

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// ValidatePassword enforces length bounds and rejects passwords made only of
// digits or without any letter.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return errors.New("password must be at least 8 characters long")
	}
	if n > MaxPasswordLength {
		return errors.New("password must not exceed 128 characters")
	}

	hasLetter := false
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return errors.New("password must contain at least one letter")
	}
	return nil
}
