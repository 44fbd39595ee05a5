package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/model"
)

func strPtr(s string) *string { return &s }

func TestProfileSaveMerges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewProfileService(memstore.New().Profiles())
	svc.now = fixedClock

	empty, err := svc.Get(ctx, "AB12CD", "a@x.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if empty.UserID != "a@x.com" || empty.FirstName != "" {
		t.Errorf("missing profile should be empty, got %+v", empty)
	}

	if _, err := svc.Save(ctx, "AB12CD", "a@x.com", model.ProfileUpdate{FirstName: strPtr("Ada"), Phone: strPtr("555")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := svc.Save(ctx, "AB12CD", "a@x.com", model.ProfileUpdate{Bio: strPtr("Night owl")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got.FirstName != "Ada" || got.Phone != "555" || got.Bio != "Night owl" {
		t.Errorf("merged profile = %+v", got)
	}
	if !got.UpdatedAt.Equal(testNow) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}
}

func TestProfileSaveValidation(t *testing.T) {
	t.Parallel()

	svc := NewProfileService(memstore.New().Profiles())

	tests := []struct {
		name    string
		update  model.ProfileUpdate
		wantErr error
	}{
		{"long_bio", model.ProfileUpdate{Bio: strPtr(strings.Repeat("b", maxBioLength+1))}, ErrFieldTooLong},
		{"long_name", model.ProfileUpdate{FirstName: strPtr(strings.Repeat("n", maxFieldLength+1))}, ErrFieldTooLong},
		{"foreign_picture", model.ProfileUpdate{PictureKey: strPtr("apartments/ZZ99ZZ/1-me.png")}, ErrForeignAttachment},
		{"own_picture", model.ProfileUpdate{PictureKey: strPtr("apartments/AB12CD/1-me.png")}, nil},
		{"clear_picture", model.ProfileUpdate{PictureKey: strPtr("")}, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.Save(context.Background(), "AB12CD", "a@x.com", test.update)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestProfileListForApartment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New().Profiles()
	svc := NewProfileService(store)

	if _, err := svc.Save(ctx, "AB12CD", "a@x.com", model.ProfileUpdate{FirstName: strPtr("Ada")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// A stale profile of a former member is not listed.
	if _, err := svc.Save(ctx, "AB12CD", "gone@x.com", model.ProfileUpdate{FirstName: strPtr("Gone")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	apt := &model.Apartment{Code: "AB12CD", Owner: "a@x.com", Members: []string{"a@x.com", "b@x.com"}}
	profiles, err := svc.ListForApartment(ctx, apt)
	if err != nil {
		t.Fatalf("ListForApartment() error = %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("ListForApartment() len = %d, want 2", len(profiles))
	}
	if profiles["a@x.com"].FirstName != "Ada" {
		t.Errorf("a@x.com profile = %+v", profiles["a@x.com"])
	}
	if p := profiles["b@x.com"]; p == nil || p.UserID != "b@x.com" {
		t.Errorf("b@x.com should get an empty profile, got %+v", p)
	}
}
