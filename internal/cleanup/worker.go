package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "cleanup_workers"

	// DefaultBatchSize is the max jobs read at once.
	DefaultBatchSize = 50

	// DefaultBlockTimeout is how long to block waiting for jobs.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxRetries is how many times a job is re-enqueued before dead-lettering.
	DefaultMaxRetries = 5

	// DefaultClaimInterval is how often to scan pending jobs.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming a pending job.
	DefaultClaimIdle = time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second
)

// Purger re-runs purges for apartments that no longer exist.
type Purger interface {
	PurgeOrphan(ctx context.Context, code string, stores []string, reason string) (*membership.CleanupReport, bool, error)
}

// NewConsumerID creates a unique consumer name for the Redis consumer group.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "cleanup"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), strings.ToLower(ulid.Make().String()))
}

// Worker consumes purge jobs from the Redis stream.
type Worker struct {
	redis           *redis.Client
	publisher       *Publisher
	purger          Purger
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxRetries      int
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a new cleanup worker.
func NewWorker(client *redis.Client, publisher *Publisher, purger Purger, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		publisher:       publisher,
		purger:          purger,
		logger:          logger.With("component", "cleanup.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxRetries:      DefaultMaxRetries,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
	}
}

// SetMaxRetries overrides how many re-enqueues a job gets.
func (w *Worker) SetMaxRetries(n int) {
	if n > 0 {
		w.maxRetries = n
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("cleanup worker started")

	backoff := time.Duration(0)
	for !w.isDraining() {
		if backoff > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
		if ctx.Err() != nil {
			break
		}

		err := w.processOnce(ctx)
		switch {
		case err == nil:
			backoff = 0
		case errors.Is(err, context.Canceled):
		default:
			backoff = nextBackoff(backoff)
			w.logger.Error("process error", "error", err, "retry_in", backoff)
		}
	}

	w.logger.Info("cleanup worker stopped")
	return nil
}

func (w *Worker) isDraining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draining
}

// nextBackoff doubles the pause after a failed read, from 500ms up to 10s.
func nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 500 * time.Millisecond
	}
	return min(2*prev, 10*time.Second)
}

// Shutdown stops the worker after the job in flight.
// It implements server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("cleanup worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("cleanup worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("cleanup worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

// processOnce handles one batch of reclaimed or new jobs.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	claimed, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending jobs", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		if err := w.handle(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// Left pending; XAUTOCLAIM picks it up again later.
			w.logger.Error("purge job not processed", "message_id", msg.ID, "error", err)
		}
	}
	return nil
}

// handle processes one job and acknowledges it unless it must stay pending.
func (w *Worker) handle(ctx context.Context, msg redis.XMessage) error {
	job, err := parseJob(msg.Values)
	if err != nil {
		w.deadLetter(ctx, msg.ID, msg.Values, "invalid_job", err.Error())
		return w.ack(ctx, msg.ID)
	}

	report, skipped, err := w.purger.PurgeOrphan(ctx, job.Code, job.Stores, membership.ReasonRetry)
	if err != nil {
		return err
	}

	switch {
	case skipped:
		w.logger.Info("purge job skipped, apartment exists", "code", job.Code)
		w.metrics.IncPurgeJobProcessed(metrics.StatusSkipped)

	case report.OK():
		w.logger.Info("purge job completed",
			"code", job.Code,
			"stores", report.Purged,
			"attempt", job.Attempt,
		)
		w.metrics.IncPurgeJobProcessed(metrics.StatusSuccess)

	case job.Attempt+1 >= w.maxRetries:
		w.deadLetter(ctx, msg.ID, msg.Values, "max_retries", report.Err().Error())

	default:
		next := job
		next.Stores = report.FailedStores()
		next.Attempt = job.Attempt + 1
		next.EnqueuedAt = time.Time{}
		if _, err := w.publisher.Publish(ctx, next); err != nil {
			return fmt.Errorf("re-enqueue purge job: %w", err)
		}
		w.logger.Warn("purge job failed, re-enqueued",
			"code", job.Code,
			"stores", next.Stores,
			"attempt", next.Attempt,
		)
		w.metrics.IncPurgeJobProcessed(metrics.StatusFailed)
	}

	return w.ack(ctx, msg.ID)
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && err != redis.Nil {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetPurgeQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return streams[0].Messages, nil
}

// deadLetter copies a job to the dead-letter stream with the failure reason.
func (w *Worker) deadLetter(ctx context.Context, id string, values map[string]interface{}, reason, detail string) {
	w.logger.Error("dead-lettering purge job",
		"message_id", id,
		"code", values["code"],
		"reason", reason,
		"detail", detail,
	)

	fields := map[string]interface{}{
		"original_id":      id,
		"reason":           reason,
		"detail":           detail,
		"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range values {
		fields[k] = v
	}

	if err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: fields,
	}).Err(); err != nil {
		w.logger.Error("failed to write to dead-letter queue", "message_id", id, "error", err)
	}

	w.metrics.IncPurgeJobProcessed(metrics.StatusDeadLettered)
}

func (w *Worker) ack(ctx context.Context, ids ...string) error {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
