// Package model defines domain entities for the application.
package model

import "time"

// Profile is a member's apartment-scoped profile.
type Profile struct {
	ApartmentCode string    `json:"apartment_code"`
	UserID        string    `json:"user_id"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Age           string    `json:"age,omitempty"`
	ApartmentNo   string    `json:"apartment_no,omitempty"`
	RoomNumber    string    `json:"room_number,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	PictureKey    string    `json:"picture_key,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProfileUpdate carries the fields a member may change.
// Nil fields keep their stored value.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Age         *string
	ApartmentNo *string
	RoomNumber  *string
	Phone       *string
	Bio         *string
	PictureKey  *string
}

// Apply merges the update into the profile.
func (u ProfileUpdate) Apply(p *Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, u.FirstName)
	set(&p.LastName, u.LastName)
	set(&p.Age, u.Age)
	set(&p.ApartmentNo, u.ApartmentNo)
	set(&p.RoomNumber, u.RoomNumber)
	set(&p.Phone, u.Phone)
	set(&p.Bio, u.Bio)
	set(&p.PictureKey, u.PictureKey)
}
