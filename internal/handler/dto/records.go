package dto

import (
	"time"

	"github.com/sinkapp/sink/internal/model"
	"github.com/sinkapp/sink/internal/storage"
)

// CreateEventRequest represents the request body for a calendar event.
type CreateEventRequest struct {
	Title    string     `json:"title"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Location string     `json:"location,omitempty"`
	Details  string     `json:"details,omitempty"`
}

// PostMessageRequest represents the request body for a chat message.
type PostMessageRequest struct {
	Text           string `json:"text,omitempty"`
	AttachmentKey  string `json:"attachment_key,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// CreateTaskRequest represents the request body for a chore.
type CreateTaskRequest struct {
	Title    string    `json:"title"`
	Room     string    `json:"room"`
	DueAt    time.Time `json:"due_at"`
	Assignee string    `json:"assignee"`
	ImageKey string    `json:"image_key,omitempty"`
}

// ProfileRequest represents a partial profile update. Omitted fields are kept.
type ProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Age         *string `json:"age,omitempty"`
	ApartmentNo *string `json:"apartment_no,omitempty"`
	RoomNumber  *string `json:"room_number,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PictureKey  *string `json:"picture_key,omitempty"`
}

// ToUpdate converts the request to a model.ProfileUpdate.
func (r *ProfileRequest) ToUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Age:         r.Age,
		ApartmentNo: r.ApartmentNo,
		RoomNumber:  r.RoomNumber,
		Phone:       r.Phone,
		Bio:         r.Bio,
		PictureKey:  r.PictureKey,
	}
}

// ProfilesResponse maps each member to their profile.
type ProfilesResponse struct {
	Data map[string]*model.Profile `json:"data"`
}

// MarkReadResponse reports how many notifications changed.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// UploadRequest asks for a presigned attachment upload.
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UploadResponse carries a presigned upload.
type UploadResponse struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DownloadResponse carries a presigned download URL.
type DownloadResponse struct {
	URL string `json:"url"`
}

// ToUploadResponse converts a presigned upload.
func ToUploadResponse(u *storage.Upload) *UploadResponse {
	return &UploadResponse{
		Key:         u.Key,
		URL:         u.URL,
		Method:      u.Method,
		ContentType: u.ContentType,
		ExpiresAt:   u.ExpiresAt,
	}
}
