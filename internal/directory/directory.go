package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/metrics"
	"github.com/sinkapp/sink/internal/model"
)

// JoinResult is returned by Join.
type JoinResult struct {
	Apartment     *model.Apartment
	AlreadyMember bool
}

// LeaveResult is returned by Leave.
type LeaveResult struct {
	Deleted bool
	Members []string
	Owner   string
	// WasMember is false when the user was not in the apartment and nothing changed.
	WasMember bool
}

// Directory is the apartment directory.
type Directory struct {
	store   Store
	cache   MembershipCache
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithCache enables the membership lookup cache.
func WithCache(cache MembershipCache) Option {
	return func(d *Directory) {
		d.cache = cache
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(d *Directory) {
		if recorder != nil {
			d.metrics = recorder
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		d.now = now
	}
}

// New creates a Directory backed by store.
func New(store Store, logger *slog.Logger, opts ...Option) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{
		store:   store,
		logger:  logger.With("component", "directory"),
		metrics: metrics.NewNoop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetByCode returns the apartment for code.
func (d *Directory) GetByCode(ctx context.Context, code string) (*model.Apartment, error) {
	code = model.NormalizeApartmentCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	return d.store.GetApartment(ctx, code)
}

// FindForUser returns the apartment userID belongs to.
// A user is expected to be in at most one apartment; if the store holds more,
// the oldest one is returned.
func (d *Directory) FindForUser(ctx context.Context, userID string) (*model.Apartment, error) {
	userID = identity.Normalize(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}

	if d.cache != nil {
		code, found, err := d.cache.GetMembership(ctx, userID)
		if err != nil {
			d.logger.Warn("membership cache read failed", "error", err)
		}
		if found {
			apt, err := d.store.GetApartment(ctx, code)
			if err == nil && apt.HasMember(userID) {
				d.metrics.IncMembershipCacheHit()
				return apt, nil
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			d.invalidate(ctx, userID)
		}
		d.metrics.IncMembershipCacheMiss()
	}

	apts, err := d.store.ListApartmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(apts) == 0 {
		return nil, ErrNotFound
	}
	if len(apts) > 1 {
		d.logger.Warn("user belongs to multiple apartments",
			"user_id", userID,
			"count", len(apts),
		)
	}

	apt := apts[0]
	if d.cache != nil {
		if err := d.cache.SetMembership(ctx, userID, apt.Code); err != nil {
			d.logger.Warn("membership cache write failed", "error", err)
		}
	}
	return apt, nil
}

// ListForUser returns every apartment userID belongs to, oldest first.
func (d *Directory) ListForUser(ctx context.Context, userID string) ([]*model.Apartment, error) {
	userID = identity.Normalize(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	return d.store.ListApartmentsForUser(ctx, userID)
}

// Create inserts a new apartment owned by owner.
func (d *Directory) Create(ctx context.Context, code, owner string) (*model.Apartment, error) {
	code = model.NormalizeApartmentCode(code)
	owner = identity.Normalize(owner)
	if !model.IsValidApartmentCode(code) {
		return nil, fmt.Errorf("%w: malformed apartment code", ErrInvalidInput)
	}
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}

	now := d.now().UTC()
	apt, err := d.store.MutateApartment(ctx, code, func(current *model.Apartment) (*model.Apartment, error) {
		if current != nil {
			return nil, ErrAlreadyExists
		}
		return &model.Apartment{
			Code:      code,
			Owner:     owner,
			Members:   []string{owner},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	d.invalidate(ctx, owner)
	return apt, nil
}

// Join adds userID to the apartment. Joining as an existing member is a
// no-op. maxMembers <= 0 uses model.DefaultMaxMembers.
func (d *Directory) Join(ctx context.Context, code, userID string, maxMembers int) (*JoinResult, error) {
	code = model.NormalizeApartmentCode(code)
	userID = identity.Normalize(userID)
	if code == "" || userID == "" {
		return nil, fmt.Errorf("%w: code and user are required", ErrInvalidInput)
	}
	if maxMembers <= 0 {
		maxMembers = model.DefaultMaxMembers
	}

	alreadyMember := false
	now := d.now().UTC()
	apt, err := d.store.MutateApartment(ctx, code, func(current *model.Apartment) (*model.Apartment, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		if current.HasMember(userID) {
			alreadyMember = true
			return current, nil
		}
		if len(current.Members) >= maxMembers {
			return nil, ErrFull
		}

		next := current.Clone()
		next.Members = append(next.Members, userID)
		if next.Owner == "" || !next.HasMember(next.Owner) {
			next.Owner = next.Members[0]
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyMember {
		d.invalidate(ctx, userID)
	}
	return &JoinResult{Apartment: apt, AlreadyMember: alreadyMember}, nil
}

// Leave removes userID from the apartment. The record is deleted when the
// last member leaves; otherwise a departing owner hands ownership to the
// first remaining member. Leaving an apartment one is not in changes nothing.
func (d *Directory) Leave(ctx context.Context, code, userID string) (*LeaveResult, error) {
	code = model.NormalizeApartmentCode(code)
	userID = identity.Normalize(userID)
	if code == "" || userID == "" {
		return nil, fmt.Errorf("%w: code and user are required", ErrInvalidInput)
	}

	result := &LeaveResult{}
	now := d.now().UTC()
	apt, err := d.store.MutateApartment(ctx, code, func(current *model.Apartment) (*model.Apartment, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		if !current.HasMember(userID) {
			return current, nil
		}
		result.WasMember = true

		remaining := slices.DeleteFunc(slices.Clone(current.Members), func(m string) bool {
			return m == userID
		})
		if len(remaining) == 0 {
			return nil, nil
		}

		next := current.Clone()
		next.Members = remaining
		if next.Owner == "" || next.Owner == userID || !next.HasMember(next.Owner) {
			next.Owner = remaining[0]
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	if apt == nil {
		result.Deleted = true
	} else {
		result.Members = apt.Members
		result.Owner = apt.Owner
	}

	if result.WasMember {
		d.invalidate(ctx, userID)
	}
	return result, nil
}

// DeleteByOwner deletes the apartment when actorID is its owner.
// It returns the deleted record so callers can clean up after every member.
func (d *Directory) DeleteByOwner(ctx context.Context, code, actorID string) (*model.Apartment, error) {
	code = model.NormalizeApartmentCode(code)
	actorID = identity.Normalize(actorID)
	if code == "" || actorID == "" {
		return nil, fmt.Errorf("%w: code and actor are required", ErrInvalidInput)
	}

	var deleted *model.Apartment
	_, err := d.store.MutateApartment(ctx, code, func(current *model.Apartment) (*model.Apartment, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		if !current.IsOwner(actorID) {
			return nil, ErrPermissionDenied
		}
		deleted = current.Clone()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	d.invalidate(ctx, deleted.Members...)
	return deleted, nil
}

// Name identifies the directory among identity migrators.
func (d *Directory) Name() string {
	return "directory"
}

// MigrateUser replaces oldID with newID in every apartment's members and
// owner, dropping the duplicate when both were present.
func (d *Directory) MigrateUser(ctx context.Context, oldID, newID string) error {
	apts, err := d.store.ListApartmentsForUser(ctx, oldID)
	if err != nil {
		return fmt.Errorf("list apartments for %s: %w", oldID, err)
	}

	now := d.now().UTC()
	for _, apt := range apts {
		_, err := d.store.MutateApartment(ctx, apt.Code, func(current *model.Apartment) (*model.Apartment, error) {
			if current == nil || (!current.HasMember(oldID) && current.Owner != oldID) {
				return current, nil
			}
			next := current.Clone()
			for i, m := range next.Members {
				if m == oldID {
					next.Members[i] = newID
				}
			}
			next.Members = model.DedupeMembers(next.Members)
			if next.Owner == oldID {
				next.Owner = newID
			}
			next.UpdatedAt = now
			return next, nil
		})
		if err != nil {
			return fmt.Errorf("migrate apartment %s: %w", apt.Code, err)
		}
	}

	d.invalidate(ctx, oldID, newID)
	return nil
}

func (d *Directory) invalidate(ctx context.Context, userIDs ...string) {
	if d.cache == nil || len(userIDs) == 0 {
		return
	}
	if err := d.cache.InvalidateMembership(ctx, userIDs...); err != nil {
		d.logger.Warn("membership cache invalidation failed", "error", err)
	}
}
