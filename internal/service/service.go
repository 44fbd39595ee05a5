// Package service provides the apartment features built on top of the
// membership core: calendar, chat, chores, notifications, profiles,
// attachments and accounts.
package service

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/sinkapp/sink/internal/storage"
)

// Service errors.
var (
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title is too long")
	ErrStartsInPast        = errors.New("event cannot start in the past")
	ErrEndsBeforeStart     = errors.New("event cannot end before it starts")
	ErrEventNotFound       = errors.New("event not found")
	ErrMessageEmpty        = errors.New("message needs text or an attachment")
	ErrMessageTooLong      = errors.New("message is too long")
	ErrRoomRequired        = errors.New("room is required")
	ErrDueRequired         = errors.New("due time is required")
	ErrInvalidAssignee     = errors.New("assignee is not a member of this apartment")
	ErrTaskNotFound        = errors.New("task not found")
	ErrFieldTooLong        = errors.New("profile field is too long")
	ErrForeignAttachment   = errors.New("attachment does not belong to this apartment")
	ErrAttachmentsDisabled = errors.New("attachments are not configured")
)

const (
	maxTitleLength   = 200
	maxMessageLength = 2000
	maxDetailsLength = 2000
	maxFieldLength   = 100
	maxBioLength     = 500

	// DefaultMessageLimit is the chat page size when none is given.
	DefaultMessageLimit = 50
	// MaxMessageLimit caps a single chat page.
	MaxMessageLimit = 200
)

func generateULID() string {
	return ulid.Make().String()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

// checkAttachmentKey accepts an empty key or one stored under the apartment.
func checkAttachmentKey(key, code string) error {
	if key == "" {
		return nil
	}
	if !storage.KeyBelongsTo(key, code) {
		return ErrForeignAttachment
	}
	return nil
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
