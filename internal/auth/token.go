package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Session token format: sk_{secret}
// Example: sk_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenPrefix    = "sk_"
	TokenSecretLen = 32 // hex encoded 16 bytes
)

var (
	// ErrInvalidTokenFormat indicates the bearer token is malformed.
	ErrInvalidTokenFormat = errors.New("invalid session token format")

	tokenFormatRegex = regexp.MustCompile(`^sk_[a-f0-9]{32}$`)
)

// GenerateSessionToken returns a fresh bearer token and the hash it is stored under.
func GenerateSessionToken() (token, hash string, err error) {
	secret := make([]byte, TokenSecretLen/2)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	token = TokenPrefix + hex.EncodeToString(secret)
	return token, HashToken(token), nil
}

// ValidateTokenFormat checks if token matches the session token format.
func ValidateTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
