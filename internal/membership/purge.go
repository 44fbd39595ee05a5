package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/metrics"
)

// Reasons recorded on cleanup reports.
const (
	ReasonLastMemberLeft   = "last_member_left"
	ReasonApartmentDeleted = "apartment_deleted"
	ReasonCodeReused       = "code_reused"
	ReasonMemberLeft       = "member_left"
	ReasonRetry            = "retry"
	ReasonOrphanSweep      = "orphan_sweep"
)

// CleanupReport describes one cascade cleanup.
type CleanupReport struct {
	Code   string
	Reason string
	Purged []string
	Failed map[string]error
}

// OK reports whether every store completed.
func (r *CleanupReport) OK() bool {
	return r == nil || len(r.Failed) == 0
}

// FailedStores returns the names of stores that did not complete, sorted.
func (r *CleanupReport) FailedStores() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns nil on success, or an error wrapping ErrCascadeCleanupFailed.
func (r *CleanupReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: apartment %s: %s", ErrCascadeCleanupFailed, r.Code, strings.Join(r.FailedStores(), ","))
}

// PurgeApartment deletes every apartment-scoped record for code. Stores that
// still fail after the in-process retries are logged and handed to the
// retrier; the returned report lists them.
func (m *Manager) PurgeApartment(ctx context.Context, code, reason string) *CleanupReport {
	report := m.purge(ctx, code, m.stores, reason)
	if report.OK() {
		return report
	}

	m.logger.Error("cascade_cleanup_failed",
		"code", code,
		"reason", reason,
		"stores", report.FailedStores(),
		"error", report.Err(),
	)

	if m.retrier != nil {
		// Enqueue even when the request context is already cancelled.
		enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := m.retrier.EnqueuePurge(enqueueCtx, report); err != nil {
			m.logger.Error("cascade_cleanup_enqueue_failed", "code", code, "error", err)
		}
	}
	return report
}

// PurgeOrphan purges the named stores (all when names is empty) for a code
// that no longer has an apartment record. It does nothing when the apartment
// exists again, since creating it already cleared stale data. An apartment
// created under the code during the purge may lose records written in that
// window; its member profiles are restored.
func (m *Manager) PurgeOrphan(ctx context.Context, code string, names []string, reason string) (report *CleanupReport, skipped bool, err error) {
	if _, err := m.dir.GetByCode(ctx, code); err == nil {
		return nil, true, nil
	} else if !errors.Is(err, directory.ErrNotFound) {
		return nil, false, fmt.Errorf("check apartment %s: %w", code, err)
	}

	stores := m.stores
	if len(names) > 0 {
		stores = m.storesNamed(names)
	}
	report = m.purge(ctx, code, stores, reason)

	// The code may have been allocated again while the purge ran. Put back
	// the member profiles the new apartment is guaranteed to have.
	if apt, err := m.dir.GetByCode(ctx, code); err == nil {
		m.logger.Warn("orphan purge raced apartment create", "code", code, "reason", reason)
		for _, member := range apt.Members {
			if err := m.profiles.EnsureProfile(ctx, code, member); err != nil {
				m.logger.Warn("restore member profile failed", "code", code, "user_id", member, "error", err)
			}
		}
	}
	return report, false, nil
}

// StoreNames lists the registered scoped stores in purge order.
func (m *Manager) StoreNames() []string {
	names := make([]string, 0, len(m.stores))
	for _, s := range m.stores {
		names = append(names, s.Name())
	}
	return names
}

func (m *Manager) purge(ctx context.Context, code string, stores []ScopedStore, reason string) *CleanupReport {
	start := time.Now()
	report := &CleanupReport{
		Code:   code,
		Reason: reason,
		Failed: make(map[string]error),
	}

	for _, store := range stores {
		if err := m.purgeStore(ctx, store, code); err != nil {
			report.Failed[store.Name()] = err
			continue
		}
		report.Purged = append(report.Purged, store.Name())
	}

	m.metrics.ObserveCascadePurgeDuration(time.Since(start))
	if report.OK() {
		m.metrics.IncCascadePurge(metrics.StatusSuccess)
		m.logger.Debug("cascade_purge_completed", "code", code, "reason", reason, "stores", len(report.Purged))
	} else {
		m.metrics.IncCascadePurge(metrics.StatusFailed)
	}
	return report
}

func (m *Manager) purgeStore(ctx context.Context, store ScopedStore, code string) error {
	var err error
	for attempt := 1; attempt <= m.cfg.PurgeAttempts; attempt++ {
		if err = store.PurgeApartment(ctx, code); err == nil {
			return nil
		}
		m.logger.Warn("scoped store purge failed",
			"store", store.Name(),
			"code", code,
			"attempt", attempt,
			"error", err,
		)
		if attempt == m.cfg.PurgeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.PurgeBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func (m *Manager) storesNamed(names []string) []ScopedStore {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []ScopedStore
	for _, s := range m.stores {
		if _, ok := want[s.Name()]; ok {
			out = append(out, s)
		}
	}
	return out
}
