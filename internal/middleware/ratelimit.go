package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sinkapp/sink/internal/cache"
)

// RateLimiter checks token buckets.
type RateLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
	CheckSignInRateLimit(ctx context.Context, ip string) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
// A nil Limiter disables limiting.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Enabled bool
	RPS     int // Requests per second per IP
	Burst   int
}

func (c RateLimitConfig) active() bool {
	return c.Enabled && c.Limiter != nil
}

// RateLimitIP returns middleware that rate limits requests per client IP.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, "ip", cfg.Burst, func(ctx context.Context, ip string) (*cache.RateLimitResult, error) {
		return cfg.Limiter.CheckIPRateLimit(ctx, ip, cfg.RPS, cfg.Burst)
	})
}

// RateLimitSignIn returns middleware that limits credential attempts per
// client IP. Applied to sign-in and sign-up.
func RateLimitSignIn(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, "signin", cache.SignInBurst, func(ctx context.Context, ip string) (*cache.RateLimitResult, error) {
		return cfg.Limiter.CheckSignInRateLimit(ctx, ip)
	})
}

func rateLimit(cfg RateLimitConfig, kind string, limit int, check func(ctx context.Context, ip string) (*cache.RateLimitResult, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.active() {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			result, err := check(r.Context(), ip)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("type", kind),
				)
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, limit, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", kind),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", int(retryAfter.Seconds())))
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers for proxied requests.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
