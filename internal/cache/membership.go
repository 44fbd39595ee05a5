package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sinkapp/sink/internal/directory"
)

const (
	membershipKeyPrefix = "member:"

	// MembershipTTL bounds how long a lookup hint lives.
	MembershipTTL = 10 * time.Minute
)

var _ directory.MembershipCache = (*Cache)(nil)

// GetMembership returns the cached apartment code for userID.
func (c *Cache) GetMembership(ctx context.Context, userID string) (string, bool, error) {
	code, err := c.client.Get(ctx, membershipKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

// SetMembership caches the apartment code for userID.
func (c *Cache) SetMembership(ctx context.Context, userID, code string) error {
	return c.client.Set(ctx, membershipKey(userID), code, MembershipTTL).Err()
}

// InvalidateMembership drops cached lookups for the given users.
func (c *Cache) InvalidateMembership(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, u := range userIDs {
		keys[i] = membershipKey(u)
	}
	return c.client.Del(ctx, keys...).Err()
}

func membershipKey(userID string) string {
	return membershipKeyPrefix + userID
}
