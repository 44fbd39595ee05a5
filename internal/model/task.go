// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// AssigneeEveryone assigns a task to every member of the apartment.
const AssigneeEveryone = "Everyone"

// Standard rooms offered for chores. Any other non-empty name is a custom room.
const (
	RoomKitchen    = "Kitchen"
	RoomLivingRoom = "Living Room"
	RoomBathroom   = "Bathroom"
	RoomOther      = "Other"
)

// StandardRooms lists the built-in rooms in display order.
var StandardRooms = []string{RoomKitchen, RoomLivingRoom, RoomBathroom, RoomOther}

// Task is a chore assigned within an apartment. Completing a task deletes it.
type Task struct {
	ID            string    `json:"id"`
	ApartmentCode string    `json:"apartment_code"`
	Title         string    `json:"title"`
	Room          string    `json:"room"`
	DueAt         time.Time `json:"due_at"`
	Assignee      string    `json:"assignee"`
	CreatedBy     string    `json:"created_by"`
	ImageKey      string    `json:"image_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsForEveryone reports whether the task targets all members.
func (t *Task) IsForEveryone() bool {
	return t.Assignee == AssigneeEveryone
}

// IsStandardRoom reports whether room is one of the built-in rooms.
func IsStandardRoom(room string) bool {
	return slices.Contains(StandardRooms, room)
}
