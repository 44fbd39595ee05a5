// Package membership implements the apartment lifecycle: creating, joining,
// leaving and deleting apartments, and the cascade cleanup of every
// apartment-scoped store that follows.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/metrics"
	"github.com/sinkapp/sink/internal/model"
)

// Directory is the subset of the apartment directory used by the manager.
type Directory interface {
	GetByCode(ctx context.Context, code string) (*model.Apartment, error)
	FindForUser(ctx context.Context, userID string) (*model.Apartment, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Apartment, error)
	Create(ctx context.Context, code, owner string) (*model.Apartment, error)
	Join(ctx context.Context, code, userID string, maxMembers int) (*directory.JoinResult, error)
	Leave(ctx context.Context, code, userID string) (*directory.LeaveResult, error)
	DeleteByOwner(ctx context.Context, code, actorID string) (*model.Apartment, error)
}

// ScopedStore is a collection whose records belong to one apartment.
// PurgeApartment must be idempotent.
type ScopedStore interface {
	Name() string
	PurgeApartment(ctx context.Context, code string) error
}

// MemberRemover is implemented by scoped stores that hold per-member
// records which should go when that member leaves.
type MemberRemover interface {
	RemoveMember(ctx context.Context, code, userID string) error
}

// ProfileStore manages the per-apartment profile of each member.
type ProfileStore interface {
	EnsureProfile(ctx context.Context, code, userID string) error
	DeleteProfile(ctx context.Context, code, userID string) error
}

// PurgeRetrier accepts failed cleanups for asynchronous retry.
type PurgeRetrier interface {
	EnqueuePurge(ctx context.Context, report *CleanupReport) error
}

// Observer is told about membership changes after they commit.
type Observer interface {
	MemberLeft(ctx context.Context, code, userID string)
	ApartmentDeleted(ctx context.Context, code string)
}

// Config holds manager limits.
type Config struct {
	MaxMembers    int
	CodeAttempts  int
	PurgeAttempts int
	PurgeBackoff  time.Duration
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		MaxMembers:    model.DefaultMaxMembers,
		CodeAttempts:  8,
		PurgeAttempts: 3,
		PurgeBackoff:  50 * time.Millisecond,
	}
}

// Manager runs the membership flows.
type Manager struct {
	dir       Directory
	profiles  ProfileStore
	stores    []ScopedStore
	retrier   PurgeRetrier
	observers []Observer
	generate  CodeGenerator
	cfg       Config
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig overrides the default limits. Zero fields keep their default.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.MaxMembers > 0 {
			m.cfg.MaxMembers = cfg.MaxMembers
		}
		if cfg.CodeAttempts > 0 {
			m.cfg.CodeAttempts = cfg.CodeAttempts
		}
		if cfg.PurgeAttempts > 0 {
			m.cfg.PurgeAttempts = cfg.PurgeAttempts
		}
		if cfg.PurgeBackoff > 0 {
			m.cfg.PurgeBackoff = cfg.PurgeBackoff
		}
	}
}

// WithCodeGenerator replaces the random code generator.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(m *Manager) {
		m.generate = gen
	}
}

// WithRetrier sets where failed cleanups are sent.
func WithRetrier(r PurgeRetrier) Option {
	return func(m *Manager) {
		m.retrier = r
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, o)
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(m *Manager) {
		if recorder != nil {
			m.metrics = recorder
		}
	}
}

// NewManager creates a Manager. stores are purged in the given order.
func NewManager(dir Directory, profiles ProfileStore, stores []ScopedStore, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		dir:      dir,
		profiles: profiles,
		stores:   stores,
		generate: RandomCode,
		cfg:      DefaultConfig(),
		logger:   logger.With("component", "membership"),
		metrics:  metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateApartment creates an apartment owned by userID under a fresh code.
func (m *Manager) CreateApartment(ctx context.Context, userID string) (*model.Apartment, error) {
	userID = identity.Normalize(userID)
	if err := m.ensureNotMember(ctx, userID, ""); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= m.cfg.CodeAttempts; attempt++ {
		code, err := m.generate()
		if err != nil {
			return nil, fmt.Errorf("generate apartment code: %w", err)
		}

		apt, err := m.dir.Create(ctx, code, userID)
		if errors.Is(err, directory.ErrAlreadyExists) {
			m.metrics.IncCodeCollision()
			m.logger.Debug("apartment code collision", "code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		// A previous apartment may have left records under this code.
		m.PurgeApartment(ctx, apt.Code, ReasonCodeReused)

		if err := m.profiles.EnsureProfile(ctx, apt.Code, userID); err != nil {
			m.logger.Warn("ensure owner profile failed", "code", apt.Code, "user_id", userID, "error", err)
		}

		m.metrics.IncApartmentCreated()
		m.logger.Info("apartment_created", "code", apt.Code, "owner", userID)
		return apt, nil
	}

	return nil, ErrUnableToAllocateCode
}

// JoinApartment adds userID to the apartment with code.
func (m *Manager) JoinApartment(ctx context.Context, code, userID string) (*directory.JoinResult, error) {
	code = model.NormalizeApartmentCode(code)
	userID = identity.Normalize(userID)
	if err := m.ensureNotMember(ctx, userID, code); err != nil {
		return nil, err
	}

	res, err := m.dir.Join(ctx, code, userID, m.cfg.MaxMembers)
	if err != nil {
		return nil, err
	}
	if res.AlreadyMember {
		return res, nil
	}

	if err := m.profiles.EnsureProfile(ctx, code, userID); err != nil {
		m.logger.Warn("ensure member profile failed", "code", code, "user_id", userID, "error", err)
	}

	m.metrics.IncApartmentJoined()
	m.logger.Info("apartment_joined", "code", code, "user_id", userID, "members", len(res.Apartment.Members))
	return res, nil
}

// LeaveOutcome is returned by LeaveApartment.
type LeaveOutcome struct {
	*directory.LeaveResult
	// Cleanup is the purge report when the apartment was deleted, or the
	// member cleanup report otherwise. It is nil for a no-op leave.
	Cleanup *CleanupReport
}

// LeaveApartment removes userID from the apartment. When the last member
// leaves, every scoped store is purged. Otherwise only the leaver's own
// per-member records are removed.
func (m *Manager) LeaveApartment(ctx context.Context, code, userID string) (*LeaveOutcome, error) {
	code = model.NormalizeApartmentCode(code)
	userID = identity.Normalize(userID)

	res, err := m.dir.Leave(ctx, code, userID)
	if err != nil {
		return nil, err
	}
	out := &LeaveOutcome{LeaveResult: res}
	if !res.WasMember {
		return out, nil
	}
	m.metrics.IncApartmentLeft()

	if res.Deleted {
		out.Cleanup = m.PurgeApartment(ctx, code, ReasonLastMemberLeft)
		m.metrics.IncApartmentDeleted()
		m.logger.Info("apartment_deleted", "code", code, "reason", ReasonLastMemberLeft, "user_id", userID)
		m.notifyDeleted(ctx, code)
		return out, nil
	}

	out.Cleanup = m.removeMember(ctx, code, userID)
	m.logger.Info("apartment_left", "code", code, "user_id", userID, "owner", res.Owner, "members", len(res.Members))
	m.notifyLeft(ctx, code, userID)
	return out, nil
}

// DeleteApartment deletes the apartment if actorID owns it, then purges
// every scoped store. A non-owner gets directory.ErrPermissionDenied and
// nothing is touched.
func (m *Manager) DeleteApartment(ctx context.Context, code, actorID string) (*CleanupReport, error) {
	code = model.NormalizeApartmentCode(code)
	actorID = identity.Normalize(actorID)

	if _, err := m.dir.DeleteByOwner(ctx, code, actorID); err != nil {
		return nil, err
	}

	report := m.PurgeApartment(ctx, code, ReasonApartmentDeleted)
	m.metrics.IncApartmentDeleted()
	m.logger.Info("apartment_deleted", "code", code, "reason", ReasonApartmentDeleted, "user_id", actorID)
	m.notifyDeleted(ctx, code)
	return report, nil
}

// AccountRemoval is returned by DeleteAccount.
type AccountRemoval struct {
	Left     []string
	Deleted  []string
	Failures map[string]error
}

// OK reports whether every step completed.
func (r *AccountRemoval) OK() bool {
	return len(r.Failures) == 0
}

// DeleteAccount removes userID from every apartment it belongs to, along
// with its profile there. Failures are collected and logged; membership
// removals that succeeded are kept.
func (m *Manager) DeleteAccount(ctx context.Context, userID string) (*AccountRemoval, error) {
	userID = identity.Normalize(userID)

	apts, err := m.dir.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	removal := &AccountRemoval{Failures: make(map[string]error)}
	for _, apt := range apts {
		out, err := m.LeaveApartment(ctx, apt.Code, userID)
		if err != nil {
			removal.Failures[apt.Code] = err
			continue
		}
		if out.Deleted {
			removal.Deleted = append(removal.Deleted, apt.Code)
			continue
		}
		removal.Left = append(removal.Left, apt.Code)
		if err := m.profiles.DeleteProfile(ctx, apt.Code, userID); err != nil {
			removal.Failures[apt.Code] = fmt.Errorf("delete profile: %w", err)
		}
	}

	if !removal.OK() {
		m.logger.Error("account_removal_incomplete", "user_id", userID, "failures", len(removal.Failures))
	}
	return removal, nil
}

func (m *Manager) ensureNotMember(ctx context.Context, userID, code string) error {
	current, err := m.dir.FindForUser(ctx, userID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.Code != code {
		return ErrAlreadyInApartment
	}
	return nil
}

func (m *Manager) removeMember(ctx context.Context, code, userID string) *CleanupReport {
	report := &CleanupReport{
		Code:   code,
		Reason: ReasonMemberLeft,
		Failed: make(map[string]error),
	}
	for _, store := range m.stores {
		remover, ok := store.(MemberRemover)
		if !ok {
			continue
		}
		if err := remover.RemoveMember(ctx, code, userID); err != nil {
			report.Failed[store.Name()] = err
			continue
		}
		report.Purged = append(report.Purged, store.Name())
	}
	if !report.OK() {
		m.logger.Warn("member cleanup incomplete", "code", code, "user_id", userID, "stores", report.FailedStores())
	}
	return report
}

func (m *Manager) notifyLeft(ctx context.Context, code, userID string) {
	for _, o := range m.observers {
		o.MemberLeft(ctx, code, userID)
	}
}

func (m *Manager) notifyDeleted(ctx context.Context, code string) {
	for _, o := range m.observers {
		o.ApartmentDeleted(ctx, code)
	}
}
