// Package model defines domain entities for the application.
package model

import "time"

// Notification types.
const (
	NotificationTypeTask     = "task"
	NotificationTypeEvent    = "event"
	NotificationTypeChat     = "chat"
	NotificationTypeRoommate = "roommate"
)

// Notification is an entry in a member's per-apartment notification queue.
type Notification struct {
	ID            string    `json:"id"`
	ApartmentCode string    `json:"apartment_code"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Link          string    `json:"link,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}
