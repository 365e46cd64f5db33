package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NameCache caches resolved uploader display names in Redis for a short
// TTL. It is purely an accelerator for the read-time identity join: cache
// misses and Redis failures both fall through to the repository lookup, and
// staleness within the TTL is acceptable.
type NameCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewNameCache creates a NameCache. A nil client yields a no-op cache.
func NewNameCache(client *redis.Client, ttl time.Duration) *NameCache {
	return &NameCache{client: client, ttl: ttl}
}

func nameKey(userID int64) string {
	return fmt.Sprintf("uploader:name:%d", userID)
}

// Get returns the cached display name for the user, or "" on a miss.
func (c *NameCache) Get(ctx context.Context, userID int64) string {
	if c == nil || c.client == nil {
		return ""
	}

	val, err := c.client.Get(ctx, nameKey(userID)).Result()
	if err != nil {
		return "" // redis.Nil and transport errors both degrade to a miss
	}
	return val
}

// Set stores the display name for the user. Failures are ignored; the
// cache never gates a listing.
func (c *NameCache) Set(ctx context.Context, userID int64, name string) {
	if c == nil || c.client == nil || name == "" {
		return
	}

	c.client.Set(ctx, nameKey(userID), name, c.ttl)
}
