package membership

import (
	"errors"

	"github.com/sinkapp/sink/internal/directory"
)

// Manager errors. Directory errors (not found, full, permission denied)
// are returned unchanged in kind.
var (
	ErrAlreadyInApartment   = errors.New("user already belongs to an apartment")
	ErrUnableToAllocateCode = errors.New("unable to allocate apartment code")
	ErrCascadeCleanupFailed = errors.New("cascade cleanup failed")
)

// User-facing messages for membership errors.
const (
	MessageNotFound         = "Apartment code not found."
	MessageFull             = "Apartment is full."
	MessagePermissionDenied = "Only the apartment owner can delete this apartment."
	MessageAlreadyMember    = "You already belong to an apartment."
	MessageAllocation       = "Could not allocate an apartment code. Please try again."
	MessageInvalidInput     = "Please enter a valid apartment code."
	MessageFallback         = "Something went wrong. Please try again."
)

// Message returns short user-facing text for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, directory.ErrNotFound):
		return MessageNotFound
	case errors.Is(err, directory.ErrFull):
		return MessageFull
	case errors.Is(err, directory.ErrPermissionDenied):
		return MessagePermissionDenied
	case errors.Is(err, ErrAlreadyInApartment):
		return MessageAlreadyMember
	case errors.Is(err, ErrUnableToAllocateCode):
		return MessageAllocation
	case errors.Is(err, directory.ErrInvalidInput):
		return MessageInvalidInput
	default:
		return MessageFallback
	}
}
