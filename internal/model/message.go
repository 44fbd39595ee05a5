// Package model defines domain entities for the application.
package model

import "time"

// ChatMessage is a message in an apartment's group chat.
type ChatMessage struct {
	ID             string    `json:"id"`
	ApartmentCode  string    `json:"apartment_code"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text,omitempty"`
	AttachmentKey  string    `json:"attachment_key,omitempty"`
	AttachmentType string    `json:"attachment_type,omitempty"`
	AttachmentName string    `json:"attachment_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasAttachment reports whether the message carries a file.
func (m *ChatMessage) HasAttachment() bool {
	return m.AttachmentKey != ""
}
