package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sinkapp/sink/internal/model"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "session:user:"
)

// cachedSession is the JSON stored under a session key.
type cachedSession struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   int64  `json:"expires_at"`
}

// SaveSession stores a session until it expires and indexes it under its user.
func (c *Cache) SaveSession(ctx context.Context, s *model.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(cachedSession{
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		CreatedAt:   s.CreatedAt.Unix(),
		ExpiresAt:   s.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	userKey := userSessionKeyPrefix + s.UserID
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.TokenHash, data, ttl)
	pipe.SAdd(ctx, userKey, s.TokenHash)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession returns the session stored under tokenHash or model.ErrRecordNotFound.
func (c *Cache) GetSession(ctx context.Context, tokenHash string) (*model.Session, error) {
	data, err := c.client.Get(ctx, sessionKeyPrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var cached cachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted entry, treat as signed out.
		return nil, model.ErrRecordNotFound
	}

	return &model.Session{
		TokenHash:   tokenHash,
		UserID:      cached.UserID,
		DisplayName: cached.DisplayName,
		CreatedAt:   time.Unix(cached.CreatedAt, 0).UTC(),
		ExpiresAt:   time.Unix(cached.ExpiresAt, 0).UTC(),
	}, nil
}

// DeleteSession removes one session.
func (c *Cache) DeleteSession(ctx context.Context, tokenHash string) error {
	s, err := c.GetSession(ctx, tokenHash)
	if errors.Is(err, model.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+tokenHash)
	pipe.SRem(ctx, userSessionKeyPrefix+s.UserID, tokenHash)
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteUserSessions removes every session of userID.
func (c *Cache) DeleteUserSessions(ctx context.Context, userID string) error {
	userKey := userSessionKeyPrefix + userID
	hashes, err := c.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionKeyPrefix+h)
	}
	keys = append(keys, userKey)
	return c.client.Del(ctx, keys...).Err()
}
