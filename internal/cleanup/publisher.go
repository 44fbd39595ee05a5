package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/metrics"
)

const (
	// StreamKey is the Redis stream for pending purge jobs.
	StreamKey = "stream:cascade_purge"

	// DeadLetterStreamKey holds jobs that exhausted their retries or could not be parsed.
	DeadLetterStreamKey = "stream:cascade_purge:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000
)

// Publisher enqueues purge jobs to the Redis stream.
// It implements membership.PurgeRetrier.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

var _ membership.PurgeRetrier = (*Publisher)(nil)

// NewPublisher creates a new purge job publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "cleanup.publisher"),
		metrics: recorder,
	}
}

// Publish adds a job to the stream.
func (p *Publisher) Publish(ctx context.Context, job PurgeJob) (string, error) {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: job.values(),
	}).Result()
	if err != nil {
		p.metrics.IncPurgeJobEnqueued(metrics.StatusDropped)
		return "", fmt.Errorf("xadd: %w", err)
	}

	p.metrics.IncPurgeJobEnqueued(metrics.StatusSuccess)
	return id, nil
}

// EnqueuePurge schedules a retry for the stores that failed in report.
func (p *Publisher) EnqueuePurge(ctx context.Context, report *membership.CleanupReport) error {
	if report.OK() {
		return nil
	}

	id, err := p.Publish(ctx, PurgeJob{
		Code:    report.Code,
		Stores:  report.FailedStores(),
		Attempt: 0,
		Reason:  report.Reason,
	})
	if err != nil {
		return err
	}

	p.logger.Info("purge retry enqueued",
		"code", report.Code,
		"stores", report.FailedStores(),
		"stream_id", id,
	)
	return nil
}
