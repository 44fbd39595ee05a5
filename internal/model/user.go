// Package model defines domain entities for the application.
package model

import "time"

// User is an account known to the auth provider.
// Email is the canonical user identifier used by every apartment-scoped store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the authenticated identity for this user.
func (u *User) Principal() *Principal {
	return &Principal{
		UserID:      u.Email,
		DisplayName: u.DisplayName,
	}
}

// Principal is a signed-in identity.
type Principal struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Session is a server-side sign-in record.
// It is stored under a hash of the bearer token, never the token itself.
type Session struct {
	TokenHash   string    `json:"-"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the session can no longer be used.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	TokenHash   string
	UserID      string
	DisplayName string
}
