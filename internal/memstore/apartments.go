package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/model"
)

// ApartmentStore implements directory.Store.
// A single mutex linearizes every mutation, like a row lock would.
type ApartmentStore struct {
	mu     sync.Mutex
	byCode map[string]model.Apartment
}

var _ directory.Store = (*ApartmentStore)(nil)

// GetApartment returns a copy of the apartment for code.
func (s *ApartmentStore) GetApartment(ctx context.Context, code string) (*model.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.byCode[code]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return apt.Clone(), nil
}

// ListApartmentsForUser returns copies of the apartments listing userID, oldest first.
func (s *ApartmentStore) ListApartmentsForUser(ctx context.Context, userID string) ([]*model.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Apartment
	for _, apt := range s.byCode {
		if apt.HasMember(userID) {
			out = append(out, apt.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MutateApartment applies fn while holding the store lock.
func (s *ApartmentStore) MutateApartment(ctx context.Context, code string, fn directory.MutateFunc) (*model.Apartment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current *model.Apartment
	if apt, ok := s.byCode[code]; ok {
		current = apt.Clone()
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	switch {
	case next == nil:
		delete(s.byCode, code)
		return nil, nil
	case next == current:
		return current.Clone(), nil
	}

	if next.Code != code {
		return nil, directory.ErrInvalidInput
	}
	s.byCode[code] = *next.Clone()
	return next.Clone(), nil
}

// Exists reports whether an apartment record exists for code.
func (s *ApartmentStore) Exists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byCode[code]
	return ok, nil
}
