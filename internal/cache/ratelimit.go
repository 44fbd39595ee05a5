package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SignInRatePerMinute and SignInBurst bound credential attempts per client.
	SignInRatePerMinute = 5
	SignInBurst         = 5
)

// bucket describes one token bucket family.
type bucket struct {
	prefix string
	rate   float64 // tokens per second
	burst  int
}

// ttl keeps an idle bucket just long enough to refill completely.
func (b bucket) ttl() time.Duration {
	full := time.Duration(float64(b.burst) / b.rate * float64(time.Second))
	return full + time.Second
}

var signInBucket = bucket{prefix: "ratelimit:signin:", rate: SignInRatePerMinute / 60.0, burst: SignInBurst}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and takes one token atomically. Times are in
// milliseconds; it returns {allowed, retry_after_ms, remaining, full_in_ms}.
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed = 0
local retry = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	retry = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)

return {allowed, retry, math.floor(tokens), math.ceil((burst - tokens) / rate)}
`)

// CheckIPRateLimit takes a token from the per-IP request bucket.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	b := bucket{prefix: "ratelimit:ip:", rate: float64(ratePerSecond), burst: burst}
	return c.take(ctx, b, ip)
}

// CheckSignInRateLimit takes a token from the per-IP credential bucket.
func (c *Cache) CheckSignInRateLimit(ctx context.Context, ip string) (*RateLimitResult, error) {
	return c.take(ctx, signInBucket, ip)
}

func (c *Cache) take(ctx context.Context, b bucket, ip string) (*RateLimitResult, error) {
	if b.rate <= 0 || b.burst <= 0 {
		return nil, fmt.Errorf("rate limit %s: invalid bucket rate=%v burst=%d", b.prefix, b.rate, b.burst)
	}

	now := time.Now()
	res, err := tokenBucketScript.Run(ctx, c.client,
		[]string{b.prefix + hashIP(ip)},
		b.rate, b.burst, now.UnixMilli(), b.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", b.prefix, err)
	}
	return parseBucketResult(now, res), nil
}

func parseBucketResult(now time.Time, res []int64) *RateLimitResult {
	retry := time.Duration(res[1]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
		RetryAfter: time.Duration(math.Ceil(retry.Seconds())) * time.Second,
	}
}

// hashIP keys buckets without storing raw client addresses.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
