package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ApartmentsCreated uint64
	ApartmentsJoined  uint64
	ApartmentsLeft    uint64
	ApartmentsDeleted uint64
	CodeCollisions    uint64

	MembershipCacheHits   uint64
	MembershipCacheMisses uint64

	CascadePurges               uint64
	CascadePurgesFailed         uint64
	CascadePurgeDurationCount   uint64
	CascadePurgeDurationTotalNs int64
	IdentityMigrations          uint64
	IdentityMigrationsPartial   uint64

	PurgeJobsEnqueued     uint64
	PurgeJobsDropped      uint64
	PurgeJobsProcessed    uint64
	PurgeJobsFailed       uint64
	PurgeJobsSkipped      uint64
	PurgeJobsDeadLettered uint64
	PurgeQueueDepth       int64
}

// InMemoryRecorder stores metrics in memory for tests and the /metrics endpoint.
type InMemoryRecorder struct {
	apartmentsCreated uint64
	apartmentsJoined  uint64
	apartmentsLeft    uint64
	apartmentsDeleted uint64
	codeCollisions    uint64

	membershipCacheHits   uint64
	membershipCacheMisses uint64

	cascadePurges               uint64
	cascadePurgesFailed         uint64
	cascadePurgeDurationCount   uint64
	cascadePurgeDurationTotalNs int64
	identityMigrations          uint64
	identityMigrationsPartial   uint64

	purgeJobsEnqueued     uint64
	purgeJobsDropped      uint64
	purgeJobsProcessed    uint64
	purgeJobsFailed       uint64
	purgeJobsSkipped      uint64
	purgeJobsDeadLettered uint64
	purgeQueueDepth       int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ApartmentsCreated:           atomic.LoadUint64(&m.apartmentsCreated),
		ApartmentsJoined:            atomic.LoadUint64(&m.apartmentsJoined),
		ApartmentsLeft:              atomic.LoadUint64(&m.apartmentsLeft),
		ApartmentsDeleted:           atomic.LoadUint64(&m.apartmentsDeleted),
		CodeCollisions:              atomic.LoadUint64(&m.codeCollisions),
		MembershipCacheHits:         atomic.LoadUint64(&m.membershipCacheHits),
		MembershipCacheMisses:       atomic.LoadUint64(&m.membershipCacheMisses),
		CascadePurges:               atomic.LoadUint64(&m.cascadePurges),
		CascadePurgesFailed:         atomic.LoadUint64(&m.cascadePurgesFailed),
		CascadePurgeDurationCount:   atomic.LoadUint64(&m.cascadePurgeDurationCount),
		CascadePurgeDurationTotalNs: atomic.LoadInt64(&m.cascadePurgeDurationTotalNs),
		IdentityMigrations:          atomic.LoadUint64(&m.identityMigrations),
		IdentityMigrationsPartial:   atomic.LoadUint64(&m.identityMigrationsPartial),
		PurgeJobsEnqueued:           atomic.LoadUint64(&m.purgeJobsEnqueued),
		PurgeJobsDropped:            atomic.LoadUint64(&m.purgeJobsDropped),
		PurgeJobsProcessed:          atomic.LoadUint64(&m.purgeJobsProcessed),
		PurgeJobsFailed:             atomic.LoadUint64(&m.purgeJobsFailed),
		PurgeJobsSkipped:            atomic.LoadUint64(&m.purgeJobsSkipped),
		PurgeJobsDeadLettered:       atomic.LoadUint64(&m.purgeJobsDeadLettered),
		PurgeQueueDepth:             atomic.LoadInt64(&m.purgeQueueDepth),
	}
}

// IncApartmentCreated increments the apartment created counter.
func (m *InMemoryRecorder) IncApartmentCreated() {
	atomic.AddUint64(&m.apartmentsCreated, 1)
}

// IncApartmentJoined increments the apartment joined counter.
func (m *InMemoryRecorder) IncApartmentJoined() {
	atomic.AddUint64(&m.apartmentsJoined, 1)
}

// IncApartmentLeft increments the apartment left counter.
func (m *InMemoryRecorder) IncApartmentLeft() {
	atomic.AddUint64(&m.apartmentsLeft, 1)
}

// IncApartmentDeleted increments the apartment deleted counter.
func (m *InMemoryRecorder) IncApartmentDeleted() {
	atomic.AddUint64(&m.apartmentsDeleted, 1)
}

// IncCodeCollision increments the code collision counter.
func (m *InMemoryRecorder) IncCodeCollision() {
	atomic.AddUint64(&m.codeCollisions, 1)
}

// IncMembershipCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncMembershipCacheHit() {
	atomic.AddUint64(&m.membershipCacheHits, 1)
}

// IncMembershipCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncMembershipCacheMiss() {
	atomic.AddUint64(&m.membershipCacheMisses, 1)
}

// IncCascadePurge counts a cascade purge by outcome.
func (m *InMemoryRecorder) IncCascadePurge(status string) {
	if status == StatusFailed {
		atomic.AddUint64(&m.cascadePurgesFailed, 1)
		return
	}
	atomic.AddUint64(&m.cascadePurges, 1)
}

// ObserveCascadePurgeDuration records cascade purge duration.
func (m *InMemoryRecorder) ObserveCascadePurgeDuration(duration time.Duration) {
	atomic.AddUint64(&m.cascadePurgeDurationCount, 1)
	atomic.AddInt64(&m.cascadePurgeDurationTotalNs, duration.Nanoseconds())
}

// IncIdentityMigration counts identity migrations by outcome.
func (m *InMemoryRecorder) IncIdentityMigration(status string) {
	if status == StatusPartial {
		atomic.AddUint64(&m.identityMigrationsPartial, 1)
		return
	}
	atomic.AddUint64(&m.identityMigrations, 1)
}

// IncPurgeJobEnqueued counts purge jobs handed to the retry stream.
func (m *InMemoryRecorder) IncPurgeJobEnqueued(status string) {
	if status == StatusDropped {
		atomic.AddUint64(&m.purgeJobsDropped, 1)
		return
	}
	atomic.AddUint64(&m.purgeJobsEnqueued, 1)
}

// IncPurgeJobProcessed counts purge jobs handled by the worker.
func (m *InMemoryRecorder) IncPurgeJobProcessed(status string) {
	switch status {
	case StatusFailed:
		atomic.AddUint64(&m.purgeJobsFailed, 1)
	case StatusSkipped:
		atomic.AddUint64(&m.purgeJobsSkipped, 1)
	case StatusDeadLettered:
		atomic.AddUint64(&m.purgeJobsDeadLettered, 1)
	default:
		atomic.AddUint64(&m.purgeJobsProcessed, 1)
	}
}

// SetPurgeQueueDepth stores the latest pending count of the retry stream.
func (m *InMemoryRecorder) SetPurgeQueueDepth(depth int64) {
	atomic.StoreInt64(&m.purgeQueueDepth, depth)
}
