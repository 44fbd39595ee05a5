// Package model defines domain entities for the application.
package model

import "time"

// CalendarEvent is an entry on an apartment's shared calendar.
type CalendarEvent struct {
	ID            string     `json:"id"`
	ApartmentCode string     `json:"apartment_code"`
	Title         string     `json:"title"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	Location      string     `json:"location,omitempty"`
	Details       string     `json:"details,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}
