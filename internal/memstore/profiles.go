package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// ProfileStore holds one profile per member per apartment.
type ProfileStore struct {
	mu     sync.RWMutex
	byCode map[string]map[string]model.Profile
}

// GetProfile returns userID's profile in the apartment.
func (s *ProfileStore) GetProfile(ctx context.Context, code, userID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byCode[code][userID]
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	return &p, nil
}

// SaveProfile inserts or replaces a profile.
func (s *ProfileStore) SaveProfile(ctx context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(*p)
	return nil
}

// EnsureProfile creates an empty profile unless one exists.
func (s *ProfileStore) EnsureProfile(ctx context.Context, code, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[code][userID]; ok {
		return nil
	}
	s.put(model.Profile{ApartmentCode: code, UserID: userID, UpdatedAt: time.Now().UTC()})
	return nil
}

// ListProfiles returns every profile in the apartment ordered by user.
func (s *ProfileStore) ListProfiles(ctx context.Context, code string) ([]*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Profile, 0, len(s.byCode[code]))
	for _, p := range s.byCode[code] {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// DeleteProfile removes userID's profile. Missing profiles are not an error.
func (s *ProfileStore) DeleteProfile(ctx context.Context, code, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byCode[code], userID)
	return nil
}

// RemoveMember drops the departing member's profile.
func (s *ProfileStore) RemoveMember(ctx context.Context, code, userID string) error {
	return s.DeleteProfile(ctx, code, userID)
}

// Name identifies the store in cleanup reports.
func (s *ProfileStore) Name() string { return "profiles" }

// PurgeApartment deletes every profile of the apartment.
func (s *ProfileStore) PurgeApartment(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byCode, code)
	return nil
}

// ListApartmentCodes returns the codes that have at least one profile.
func (s *ProfileStore) ListApartmentCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.byCode))
	for code, byUser := range s.byCode {
		if len(byUser) > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// MigrateUser moves oldID's profiles to newID. A profile already stored
// under newID is kept and the old one dropped.
func (s *ProfileStore) MigrateUser(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, byUser := range s.byCode {
		old, ok := byUser[oldID]
		if !ok {
			continue
		}
		delete(byUser, oldID)
		if _, exists := byUser[newID]; exists {
			continue
		}
		old.UserID = newID
		byUser[newID] = old
	}
	return nil
}

func (s *ProfileStore) put(p model.Profile) {
	byUser, ok := s.byCode[p.ApartmentCode]
	if !ok {
		byUser = make(map[string]model.Profile)
		s.byCode[p.ApartmentCode] = byUser
	}
	byUser[p.UserID] = p
}
