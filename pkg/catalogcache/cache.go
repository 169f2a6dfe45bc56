/**
 * @description
 * Read-through cache for catalog reads backed by Redis. Entries are namespaced by a
 * generation counter; Invalidate bumps the counter so every cached listing and
 * service becomes unreachable at once and ages out through its TTL.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 */
package catalogcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON-encoded catalog reads in Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache rooted at prefix. A non-positive ttl defaults to five minutes.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "ineza:catalog"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: trimmedPrefix, ttl: ttl}
}

// Connect parses redisURL, pings the server and returns a cache using it
// together with a function closing the client.
func Connect(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisCache, func(), error) {
	options, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, nil, fmt.Errorf("redis url parse failed: %w", err)
	}
	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisCache(client, prefix, ttl), func() { _ = client.Close() }, nil
}

func (c *RedisCache) versionKey() string {
	return c.prefix + ":version"
}

func (c *RedisCache) entryKey(version int64, key string) string {
	return fmt.Sprintf("%s:v%d:%s", c.prefix, version, key)
}

func (c *RedisCache) currentVersion(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// Get decodes the cached value for key into dest. On a miss it returns the
// generation observed before the lookup; a fill for that miss must be written
// with Set under the same generation.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, int64, error) {
	version, err := c.currentVersion(ctx)
	if err != nil {
		return false, 0, err
	}
	raw, err := c.client.Get(ctx, c.entryKey(version, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, version, nil
	}
	if err != nil {
		return false, version, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, version, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, version, nil
}

// Set stores value under key in the given generation. A generation that has
// since been invalidated is never read again.
func (c *RedisCache) Set(ctx context.Context, generation int64, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.entryKey(generation, key), raw, c.ttl).Err()
}

// Invalidate starts a new generation, orphaning every cached entry.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.versionKey()).Err()
}

// Noop is used when Redis is not configured. Every read is a miss.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dest interface{}) (bool, int64, error) {
	return false, 0, nil
}

func (Noop) Set(ctx context.Context, generation int64, key string, value interface{}) error {
	return nil
}

func (Noop) Invalidate(ctx context.Context) error { return nil }
