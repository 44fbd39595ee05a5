// Package directory maps apartment codes to their membership and ownership.
// It is the authoritative record of who belongs where; every mutation runs
// as a single store transaction.
package directory

import (
	"context"
	"errors"

	"github.com/sinkapp/sink/internal/model"
)

// Errors returned by the directory and its store implementations.
var (
	ErrNotFound         = errors.New("apartment not found")
	ErrAlreadyExists    = errors.New("apartment code already exists")
	ErrFull             = errors.New("apartment is full")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
)

// MutateFunc computes the next state of an apartment from its locked current
// state. current is nil when no record exists. Returning nil deletes the
// record (or leaves it absent); returning current unchanged writes nothing.
// A non-nil error aborts the transaction.
type MutateFunc func(current *model.Apartment) (*model.Apartment, error)

// Store is the transactional persistence contract for apartment records.
type Store interface {
	// GetApartment returns the apartment for code or ErrNotFound.
	GetApartment(ctx context.Context, code string) (*model.Apartment, error)

	// ListApartmentsForUser returns every apartment that lists userID as a
	// member, oldest first.
	ListApartmentsForUser(ctx context.Context, userID string) ([]*model.Apartment, error)

	// MutateApartment applies fn atomically and returns the stored state
	// afterwards, nil when the record does not exist. Inserting a code that
	// already exists fails with ErrAlreadyExists.
	MutateApartment(ctx context.Context, code string, fn MutateFunc) (*model.Apartment, error)
}

// MembershipCache caches the user to apartment code mapping.
// Entries are hints; the directory re-verifies them against the store.
type MembershipCache interface {
	GetMembership(ctx context.Context, userID string) (code string, found bool, err error)
	SetMembership(ctx context.Context, userID, code string) error
	InvalidateMembership(ctx context.Context, userIDs ...string) error
}
