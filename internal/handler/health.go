package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	healthOK            = "ok"
	healthUnhealthy     = "unhealthy"
	healthNotConfigured = "not configured"
)

// HealthChecker is a dependency that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheck names one dependency probed by /readyz.
// A nil Checker is reported as "not configured" and does not fail readiness,
// which is how the in-memory backend runs without Postgres or Redis.
type HealthCheck struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler probing checks in parallel.
func NewHealthHandler(logger *slog.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		logger:  logger.With("component", "health"),
	}
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports that the process is serving.
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: healthOK})
}

// Readyz pings every configured dependency and answers 503 if any fails.
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := h.probe(ctx)

	resp := HealthResponse{Status: healthOK, Checks: results}
	status := http.StatusOK
	for name, result := range results {
		if result == healthOK || result == healthNotConfigured {
			continue
		}
		h.logger.Warn("readiness_check_failed", "dependency", name, "result", result)
		resp.Status = healthUnhealthy
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *HealthHandler) probe(ctx context.Context) map[string]string {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(h.checks))
	)
	for _, c := range h.checks {
		if c.Checker == nil {
			results[c.Name] = healthNotConfigured
			continue
		}
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			result := healthOK
			if err := c.Checker.Ping(ctx); err != nil {
				result = "error: " + err.Error()
			}
			mu.Lock()
			results[c.Name] = result
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}
