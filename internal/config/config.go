// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/sinkapp/sink/internal/storage"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Storage. The memory driver keeps everything in process and needs
	// neither Postgres nor Redis.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Apartments
	MaxRoommates           int `env:"MAX_ROOMMATES" envDefault:"12"`
	CodeAllocationAttempts int `env:"CODE_ALLOCATION_ATTEMPTS" envDefault:"8"`

	// Sessions
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// Rate limiting (requires Redis)
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Cleanup. Failed purges are retried by the worker through a Redis
	// stream; the sweeper removes data left behind by any apartment that
	// no longer exists.
	PurgeWorkerEnabled  bool   `env:"PURGE_WORKER_ENABLED" envDefault:"true"`
	PurgeMaxRetries     int    `env:"PURGE_MAX_RETRIES" envDefault:"5"`
	OrphanSweepSchedule string `env:"ORPHAN_SWEEP_SCHEDULE" envDefault:"@every 1h"`

	// Attachments. Empty bucket disables uploads.
	S3Bucket          string        `env:"S3_BUCKET"`
	S3Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string        `env:"S3_ENDPOINT"`
	S3AccessKeyID     string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY"`
	S3PresignTTL      time.Duration `env:"S3_PRESIGN_TTL" envDefault:"15m"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesMemoryStore reports whether state is kept in process.
func (c *Config) UsesMemoryStore() bool {
	return c.StoreDriver == StoreDriverMemory
}

// AttachmentsEnabled reports whether an S3 bucket is configured.
func (c *Config) AttachmentsEnabled() bool {
	return c.S3Bucket != ""
}

// S3 returns the attachment storage configuration.
func (c *Config) S3() storage.Config {
	return storage.Config{
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		Endpoint:        c.S3Endpoint,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
		PresignTTL:      c.S3PresignTTL,
	}
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks rules that span several variables.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}

	if c.MaxRoommates < 1 {
		errs = append(errs, errors.New("MAX_ROOMMATES must be at least 1"))
	}
	if c.CodeAllocationAttempts < 1 {
		errs = append(errs, errors.New("CODE_ALLOCATION_ATTEMPTS must be at least 1"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.RateLimitEnabled && (c.RateLimitRPS < 1 || c.RateLimitBurst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.PurgeMaxRetries < 1 {
		errs = append(errs, errors.New("PURGE_MAX_RETRIES must be at least 1"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
