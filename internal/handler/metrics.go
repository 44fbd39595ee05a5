package handler

import (
	"fmt"
	"net/http"

	"github.com/sinkapp/sink/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "sink_apartments_total{op=\"created\"} %d\n", snap.ApartmentsCreated)
	writeMetric(w, "sink_apartments_total{op=\"joined\"} %d\n", snap.ApartmentsJoined)
	writeMetric(w, "sink_apartments_total{op=\"left\"} %d\n", snap.ApartmentsLeft)
	writeMetric(w, "sink_apartments_total{op=\"deleted\"} %d\n", snap.ApartmentsDeleted)
	writeMetric(w, "sink_apartment_code_collisions_total %d\n", snap.CodeCollisions)

	writeMetric(w, "sink_membership_cache_hits_total %d\n", snap.MembershipCacheHits)
	writeMetric(w, "sink_membership_cache_misses_total %d\n", snap.MembershipCacheMisses)

	writeMetric(w, "sink_cascade_purges_total{status=\"success\"} %d\n", snap.CascadePurges)
	writeMetric(w, "sink_cascade_purges_total{status=\"failed\"} %d\n", snap.CascadePurgesFailed)
	writeMetric(w, "sink_cascade_purge_duration_seconds_count %d\n", snap.CascadePurgeDurationCount)
	writeMetric(w, "sink_cascade_purge_duration_seconds_sum %.6f\n", float64(snap.CascadePurgeDurationTotalNs)/1e9)

	writeMetric(w, "sink_identity_migrations_total{status=\"success\"} %d\n", snap.IdentityMigrations)
	writeMetric(w, "sink_identity_migrations_total{status=\"partial\"} %d\n", snap.IdentityMigrationsPartial)

	writeMetric(w, "sink_purge_jobs_enqueued_total{status=\"success\"} %d\n", snap.PurgeJobsEnqueued)
	writeMetric(w, "sink_purge_jobs_enqueued_total{status=\"dropped\"} %d\n", snap.PurgeJobsDropped)
	writeMetric(w, "sink_purge_jobs_processed_total{status=\"success\"} %d\n", snap.PurgeJobsProcessed)
	writeMetric(w, "sink_purge_jobs_processed_total{status=\"failed\"} %d\n", snap.PurgeJobsFailed)
	writeMetric(w, "sink_purge_jobs_processed_total{status=\"skipped\"} %d\n", snap.PurgeJobsSkipped)
	writeMetric(w, "sink_purge_jobs_processed_total{status=\"dead_lettered\"} %d\n", snap.PurgeJobsDeadLettered)
	writeMetric(w, "sink_purge_queue_depth %d\n", snap.PurgeQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
