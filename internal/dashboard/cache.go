package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey  = "dashboard:version"
	cacheSnapshotKey = "dashboard:snapshot"
)

// Cache wraps Redis based caching of metric snapshots with versioning
// controls. A nil client degrades to a pass-through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// GetSnapshot loads the cached metric snapshot for the current version.
func (c *Cache) GetSnapshot(ctx context.Context) (map[string]MetricValue, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.snapshotKey(ctx)
	if err != nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var values map[string]MetricValue
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, false
	}
	return values, true
}

// SetSnapshot stores the metric snapshot under the current version.
func (c *Cache) SetSnapshot(ctx context.Context, values map[string]MetricValue) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.snapshotKey(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates all cached snapshots by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) snapshotKey(ctx context.Context) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", cacheSnapshotKey, ver), nil
}
