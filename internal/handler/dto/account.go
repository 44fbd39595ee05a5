package dto

import (
	"sort"
	"time"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/service"
)

// SignUpRequest represents the request body for creating an account.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// SignInRequest represents the request body for signing in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangeEmailRequest represents the request body for changing the account email.
type ChangeEmailRequest struct {
	Email string `json:"email"`
}

// SessionResponse is returned when a session is issued.
// The token is only ever shown here.
type SessionResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
}

// MeResponse describes the signed-in user.
type MeResponse struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name,omitempty"`
	ApartmentCode string `json:"apartment_code,omitempty"`
}

// ChangeEmailResponse carries the new session and the migration outcome.
type ChangeEmailResponse struct {
	Session           *SessionResponse `json:"session"`
	MigrationComplete bool             `json:"migration_complete"`
	FailedStores      []string         `json:"failed_stores,omitempty"`
}

// AccountDeletedResponse summarizes an account removal.
type AccountDeletedResponse struct {
	LeftApartments    []string `json:"left_apartments"`
	DeletedApartments []string `json:"deleted_apartments"`
	Complete          bool     `json:"complete"`
}

// ToSessionResponse converts an auth grant to SessionResponse.
func ToSessionResponse(grant *auth.Grant) *SessionResponse {
	return &SessionResponse{
		Token:       grant.Token,
		ExpiresAt:   grant.ExpiresAt,
		UserID:      grant.Principal.UserID,
		DisplayName: grant.Principal.DisplayName,
	}
}

// ToMeResponse converts the account summary to MeResponse.
func ToMeResponse(me *service.Me) *MeResponse {
	return &MeResponse{
		UserID:        me.UserID,
		DisplayName:   me.DisplayName,
		ApartmentCode: me.ApartmentCode,
	}
}

// ToChangeEmailResponse converts an email change result.
func ToChangeEmailResponse(change *service.EmailChange) *ChangeEmailResponse {
	resp := &ChangeEmailResponse{
		Session:           ToSessionResponse(change.Grant),
		MigrationComplete: change.MigrationComplete(),
	}
	if change.Migration != nil {
		for name := range change.Migration.Failed {
			resp.FailedStores = append(resp.FailedStores, name)
		}
		sort.Strings(resp.FailedStores)
	}
	return resp
}

// ToAccountDeletedResponse converts an account removal.
func ToAccountDeletedResponse(removal *membership.AccountRemoval) *AccountDeletedResponse {
	resp := &AccountDeletedResponse{
		LeftApartments:    []string{},
		DeletedApartments: []string{},
		Complete:          removal.OK(),
	}
	resp.LeftApartments = append(resp.LeftApartments, removal.Left...)
	resp.DeletedApartments = append(resp.DeletedApartments, removal.Deleted...)
	return resp
}
