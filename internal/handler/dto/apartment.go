package dto

import (
	"time"

	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/model"
)

// ApartmentResponse represents an apartment in API responses.
type ApartmentResponse struct {
	Code       string    `json:"code"`
	Owner      string    `json:"owner"`
	Members    []string  `json:"members"`
	MaxMembers int       `json:"max_members"`
	IsOwner    bool      `json:"is_owner"`
	CreatedAt  time.Time `json:"created_at"`
}

// JoinResponse is returned by the join endpoint.
type JoinResponse struct {
	Apartment     *ApartmentResponse `json:"apartment"`
	AlreadyMember bool               `json:"already_member"`
}

// LeaveResponse is returned by the leave endpoint.
type LeaveResponse struct {
	WasMember        bool     `json:"was_member"`
	ApartmentDeleted bool     `json:"apartment_deleted"`
	Owner            string   `json:"owner,omitempty"`
	Members          []string `json:"members"`
	CleanupComplete  bool     `json:"cleanup_complete"`
}

// DeleteApartmentResponse is returned by the delete endpoint.
type DeleteApartmentResponse struct {
	Code            string `json:"code"`
	CleanupComplete bool   `json:"cleanup_complete"`
}

// ToApartmentResponse converts an Apartment model as seen by viewer.
func ToApartmentResponse(apt *model.Apartment, viewer string, maxMembers int) *ApartmentResponse {
	members := make([]string, len(apt.Members))
	copy(members, apt.Members)
	return &ApartmentResponse{
		Code:       apt.Code,
		Owner:      apt.Owner,
		Members:    members,
		MaxMembers: maxMembers,
		IsOwner:    apt.Owner == viewer,
		CreatedAt:  apt.CreatedAt,
	}
}

// ToLeaveResponse converts a leave outcome.
func ToLeaveResponse(out *membership.LeaveOutcome) *LeaveResponse {
	members := out.Members
	if members == nil {
		members = []string{}
	}
	return &LeaveResponse{
		WasMember:        out.WasMember,
		ApartmentDeleted: out.Deleted,
		Owner:            out.Owner,
		Members:          members,
		CleanupComplete:  out.Cleanup.OK(),
	}
}
