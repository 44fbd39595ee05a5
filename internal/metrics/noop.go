package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncApartmentCreated is a no-op.
func (n *NoopRecorder) IncApartmentCreated() {}

// IncApartmentJoined is a no-op.
func (n *NoopRecorder) IncApartmentJoined() {}

// IncApartmentLeft is a no-op.
func (n *NoopRecorder) IncApartmentLeft() {}

// IncApartmentDeleted is a no-op.
func (n *NoopRecorder) IncApartmentDeleted() {}

// IncCodeCollision is a no-op.
func (n *NoopRecorder) IncCodeCollision() {}

// IncMembershipCacheHit is a no-op.
func (n *NoopRecorder) IncMembershipCacheHit() {}

// IncMembershipCacheMiss is a no-op.
func (n *NoopRecorder) IncMembershipCacheMiss() {}

// IncCascadePurge is a no-op.
func (n *NoopRecorder) IncCascadePurge(status string) {}

// ObserveCascadePurgeDuration is a no-op.
func (n *NoopRecorder) ObserveCascadePurgeDuration(duration time.Duration) {}

// IncIdentityMigration is a no-op.
func (n *NoopRecorder) IncIdentityMigration(status string) {}

// IncPurgeJobEnqueued is a no-op.
func (n *NoopRecorder) IncPurgeJobEnqueued(status string) {}

// IncPurgeJobProcessed is a no-op.
func (n *NoopRecorder) IncPurgeJobProcessed(status string) {}

// SetPurgeQueueDepth is a no-op.
func (n *NoopRecorder) SetPurgeQueueDepth(depth int64) {}
