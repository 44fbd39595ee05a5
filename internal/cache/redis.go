// Package cache provides Redis access for sessions, membership lookups and
// rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client shared by the session store, the membership
// cache, the rate limiter, the chat fan-out and the purge queue.
type Cache struct {
	client *redis.Client
}

// Option tunes the Redis connection pool.
type Option func(*redis.Options)

// WithPoolSize caps open connections. Chat fan-out holds one per subscribed
// apartment, so the default leaves room above the request load.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

// WithClientName labels connections in CLIENT LIST.
func WithClientName(name string) Option {
	return func(o *redis.Options) { o.ClientName = name }
}

func parseOptions(redisURL string, opts ...Option) (*redis.Options, error) {
	o, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	o.PoolSize = 32
	o.MinIdleConns = 2
	o.PoolTimeout = 4 * time.Second
	o.ConnMaxIdleTime = 5 * time.Minute
	o.ClientName = "sink"
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	o, err := parseOptions(redisURL, opts...)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping reports Redis reachability for /readyz.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client to the stream worker and chat pub/sub.
func (c *Cache) Client() *redis.Client {
	return c.client
}
