package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sinkapp/sink/internal/membership"
)

// DefaultSweepTimeout bounds a single sweep run.
const DefaultSweepTimeout = 10 * time.Minute

// CodeLister reports which apartment codes a store holds records for.
type CodeLister interface {
	Name() string
	ListApartmentCodes(ctx context.Context) ([]string, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned int
	Skipped int
	Purged  []string
	Failed  map[string]error
}

// Sweeper periodically purges scoped data whose apartment no longer exists.
type Sweeper struct {
	purger  Purger
	listers []CodeLister
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a Sweeper over the given stores.
func NewSweeper(purger Purger, listers []CodeLister, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		purger:  purger,
		listers: listers,
		logger:  logger.With("component", "cleanup.sweeper"),
		timeout: DefaultSweepTimeout,
	}
}

// Start runs sweeps on schedule, a robfig/cron expression such as "@every 1h".
// An empty schedule disables the sweeper.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		s.logger.Info("orphan sweeper disabled")
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("schedule orphan sweep %q: %w", schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.logger.Info("orphan sweeper scheduled", "schedule", schedule)
	return nil
}

// Shutdown stops scheduling and waits for a running sweep.
// It implements server.ShutdownFunc.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error("orphan sweep failed", "error", err)
		return
	}
	s.logger.Info("orphan sweep completed",
		"scanned", result.Scanned,
		"skipped", result.Skipped,
		"purged", len(result.Purged),
		"failed", len(result.Failed),
	)
}

// SweepOnce purges every orphaned code found in the stores.
func (s *Sweeper) SweepOnce(ctx context.Context) (*SweepResult, error) {
	seen := make(map[string]struct{})
	for _, l := range s.listers {
		codes, err := l.ListApartmentCodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list codes in %s: %w", l.Name(), err)
		}
		for _, code := range codes {
			seen[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	result := &SweepResult{Scanned: len(codes), Failed: make(map[string]error)}
	for _, code := range codes {
		report, skipped, err := s.purger.PurgeOrphan(ctx, code, nil, membership.ReasonOrphanSweep)
		switch {
		case err != nil:
			result.Failed[code] = err
		case skipped:
			result.Skipped++
		case !report.OK():
			result.Failed[code] = report.Err()
		default:
			result.Purged = append(result.Purged, code)
		}
	}
	return result, nil
}
