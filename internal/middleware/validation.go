package middleware

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/sinkapp/sink/internal/model"
)

// Validation limits.
const (
	// MaxDisplayNameLength is the longest accepted display name.
	MaxDisplayNameLength = 50

	// MaxPasswordLength bounds the input fed to the password hash.
	MaxPasswordLength = 128

	// MaxEmailLength follows the SMTP path limit.
	MaxEmailLength = 254
)

// Validation errors.
var (
	ErrCodeInvalid         = errors.New("apartment code must be 6 letters or digits")
	ErrDisplayNameTooLong  = errors.New("display name exceeds maximum length")
	ErrDisplayNameInvalid  = errors.New("display name contains control characters")
	ErrPasswordTooLong     = errors.New("password exceeds maximum length")
	ErrEmailTooLong        = errors.New("email exceeds maximum length")
	ErrTextInvalidEncoding = errors.New("text is not valid UTF-8")
)

// ValidateApartmentCode normalizes a user supplied code and checks its format.
func ValidateApartmentCode(code string) (string, error) {
	code = model.NormalizeApartmentCode(code)
	if !model.IsValidApartmentCode(code) {
		return "", ErrCodeInvalid
	}
	return code, nil
}

// ValidateDisplayName checks an optional display name.
func ValidateDisplayName(name string) error {
	if name == "" {
		return nil
	}
	if !utf8.ValidString(name) {
		return ErrTextInvalidEncoding
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return ErrDisplayNameTooLong
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrDisplayNameInvalid
		}
	}
	return nil
}

// ValidateCredentials bounds the size of sign-in input before hashing.
// Format rules are enforced by the auth provider.
func ValidateCredentials(email, password string) error {
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
