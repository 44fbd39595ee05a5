// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Membership lifecycle metrics
	IncApartmentCreated()
	IncApartmentJoined()
	IncApartmentLeft()
	IncApartmentDeleted()
	IncCodeCollision()

	// Membership lookup cache
	IncMembershipCacheHit()
	IncMembershipCacheMiss()

	// Cascade cleanup metrics
	IncCascadePurge(status string) // status: "success" or "failed"
	ObserveCascadePurgeDuration(duration time.Duration)
	IncIdentityMigration(status string) // status: "success" or "partial"

	// Cleanup pipeline metrics
	IncPurgeJobEnqueued(status string)  // status: "success" or "dropped"
	IncPurgeJobProcessed(status string) // status: "success", "failed", "skipped", "dead_lettered"
	SetPurgeQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Status labels shared by recorders.
const (
	StatusSuccess      = "success"
	StatusFailed       = "failed"
	StatusPartial      = "partial"
	StatusSkipped      = "skipped"
	StatusDropped      = "dropped"
	StatusDeadLettered = "dead_lettered"
)
