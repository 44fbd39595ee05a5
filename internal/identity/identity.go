// Package identity canonicalizes user identifiers and rewrites them across
// every store that keys data by user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sinkapp/sink/internal/metrics"
)

// Errors returned by the resolver.
var (
	ErrInvalidMigration = errors.New("invalid identity migration")
	ErrMigrationPartial = errors.New("identity migration partially applied")
)

// Normalize returns the canonical form of a user identifier.
// Identifiers are email addresses compared case-insensitively.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Migrator rewrites references to a user identifier in one store.
// MigrateUser must be idempotent: a second call with the same ids changes nothing.
type Migrator interface {
	Name() string
	MigrateUser(ctx context.Context, oldID, newID string) error
}

// Report describes the outcome of a migration run.
type Report struct {
	OldID    string
	NewID    string
	Migrated []string
	Failed   map[string]error
}

// OK reports whether every store was migrated.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Resolver runs identity migrations across the registered stores.
type Resolver struct {
	migrators []Migrator
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewResolver creates a Resolver. Migrators run in the given order.
func NewResolver(logger *slog.Logger, recorder metrics.Recorder, migrators ...Migrator) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		migrators: migrators,
		logger:    logger.With("component", "identity"),
		metrics:   recorder,
	}
}

// Migrate rewrites every stored reference to oldID so it refers to newID.
// A failing store does not stop the others; the returned error then wraps
// ErrMigrationPartial and the run can be repeated safely.
func (r *Resolver) Migrate(ctx context.Context, oldID, newID string) (*Report, error) {
	oldID = Normalize(oldID)
	newID = Normalize(newID)
	if oldID == "" || newID == "" {
		return nil, fmt.Errorf("%w: identifiers must not be empty", ErrInvalidMigration)
	}
	if oldID == newID {
		return nil, fmt.Errorf("%w: identifiers are equal", ErrInvalidMigration)
	}

	report := &Report{
		OldID:  oldID,
		NewID:  newID,
		Failed: make(map[string]error),
	}

	for _, m := range r.migrators {
		if err := ctx.Err(); err != nil {
			report.Failed[m.Name()] = err
			continue
		}
		if err := m.MigrateUser(ctx, oldID, newID); err != nil {
			report.Failed[m.Name()] = err
			r.logger.Error("identity_migration_store_failed",
				"store", m.Name(),
				"old_id", oldID,
				"new_id", newID,
				"error", err,
			)
			continue
		}
		report.Migrated = append(report.Migrated, m.Name())
	}

	if !report.OK() {
		r.metrics.IncIdentityMigration(metrics.StatusPartial)
		return report, fmt.Errorf("%w: %d of %d stores failed", ErrMigrationPartial, len(report.Failed), len(r.migrators))
	}

	r.metrics.IncIdentityMigration(metrics.StatusSuccess)
	r.logger.Info("identity_migrated",
		"old_id", oldID,
		"new_id", newID,
		"stores", len(report.Migrated),
	)
	return report, nil
}
