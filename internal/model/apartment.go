// Package model defines domain entities for the application.
package model

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

const (
	// ApartmentCodeLength is the length of a generated apartment code.
	ApartmentCodeLength = 6

	// DefaultMaxMembers is the roommate capacity enforced on join.
	DefaultMaxMembers = 12
)

var apartmentCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Apartment is the tenancy entity: a set of members sharing scoped data.
// While an apartment exists its Owner is always one of its Members.
type Apartment struct {
	Code      string    `json:"code"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember reports whether userID is in the member list.
func (a *Apartment) HasMember(userID string) bool {
	return slices.Contains(a.Members, userID)
}

// IsOwner reports whether userID owns the apartment.
func (a *Apartment) IsOwner(userID string) bool {
	return a.Owner != "" && a.Owner == userID
}

// Clone returns a deep copy so callers can mutate it freely.
func (a *Apartment) Clone() *Apartment {
	if a == nil {
		return nil
	}
	c := *a
	c.Members = slices.Clone(a.Members)
	return &c
}

// NormalizeApartmentCode trims and upper-cases a user supplied code.
func NormalizeApartmentCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidApartmentCode reports whether code has the canonical format.
func IsValidApartmentCode(code string) bool {
	return apartmentCodePattern.MatchString(code)
}

// DedupeMembers drops empty and repeated identifiers, keeping first occurrence order.
func DedupeMembers(members []string) []string {
	out := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
