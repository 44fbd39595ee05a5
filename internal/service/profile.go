package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// ProfileStore persists per-apartment member profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, code, userID string) (*model.Profile, error)
	SaveProfile(ctx context.Context, p *model.Profile) error
	ListProfiles(ctx context.Context, code string) ([]*model.Profile, error)
}

// ProfileService manages member profiles.
type ProfileService struct {
	store ProfileStore
	now   func() time.Time
}

// NewProfileService creates a ProfileService.
func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store, now: nowUTC}
}

// Get returns userID's profile. A member without one gets an empty profile.
func (s *ProfileService) Get(ctx context.Context, code, userID string) (*model.Profile, error) {
	p, err := s.store.GetProfile(ctx, code, userID)
	if errors.Is(err, model.ErrRecordNotFound) {
		return &model.Profile{ApartmentCode: code, UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Save merges update into the stored profile.
func (s *ProfileService) Save(ctx context.Context, code, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	if err := validateProfileUpdate(update); err != nil {
		return nil, err
	}
	if update.PictureKey != nil {
		if err := checkAttachmentKey(*update.PictureKey, code); err != nil {
			return nil, err
		}
	}

	p, err := s.Get(ctx, code, userID)
	if err != nil {
		return nil, err
	}
	update.Apply(p)
	p.UpdatedAt = s.now()

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// ListForApartment returns the profiles of the apartment's current members
// keyed by user.
func (s *ProfileService) ListForApartment(ctx context.Context, apt *model.Apartment) (map[string]*model.Profile, error) {
	list, err := s.store.ListProfiles(ctx, apt.Code)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	out := make(map[string]*model.Profile, len(apt.Members))
	for _, p := range list {
		if apt.HasMember(p.UserID) {
			out[p.UserID] = p
		}
	}
	for _, m := range apt.Members {
		if _, ok := out[m]; !ok {
			out[m] = &model.Profile{ApartmentCode: apt.Code, UserID: m}
		}
	}
	return out, nil
}

func validateProfileUpdate(u model.ProfileUpdate) error {
	for _, f := range []*string{u.FirstName, u.LastName, u.Age, u.ApartmentNo, u.RoomNumber, u.Phone} {
		if f != nil && tooLong(*f, maxFieldLength) {
			return ErrFieldTooLong
		}
	}
	if u.Bio != nil && tooLong(*u.Bio, maxBioLength) {
		return ErrFieldTooLong
	}
	return nil
}
