package catalogcache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisCache_NormalizesPrefixAndTTL(t *testing.T) {
	cache := NewRedisCache(nil, " ineza:catalog: ", 0)
	assert.Equal(t, "ineza:catalog", cache.prefix)
	assert.Equal(t, 5*time.Minute, cache.ttl)
	assert.Equal(t, "ineza:catalog:version", cache.versionKey())
	assert.Equal(t, "ineza:catalog:v3:services:all:public", cache.entryKey(3, "services:all:public"))

	defaulted := NewRedisCache(nil, "", time.Minute)
	assert.Equal(t, "ineza:catalog", defaulted.prefix)
	assert.Equal(t, time.Minute, defaulted.ttl)
}

func TestRedisCache_UnreachableServerReturnsErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisCache(client, "test", time.Minute)
	ctx := context.Background()

	var dest map[string]string
	hit, _, err := cache.Get(ctx, "key", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, cache.Set(ctx, 0, "key", map[string]string{"a": "b"}))
	assert.Error(t, cache.Invalidate(ctx))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var dest []string
	hit, _, err := Noop{}.Get(ctx, "services", &dest)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, Noop{}.Set(ctx, 0, "services", []string{"a"}))
	assert.NoError(t, Noop{}.Invalidate(ctx))
}

func TestConnect_Errors(t *testing.T) {
	_, _, err := Connect(context.Background(), "http://not-redis", "test", time.Minute)
	assert.Error(t, err)

	_, _, err = Connect(context.Background(), "redis://127.0.0.1:1/0?dial_timeout=100ms&max_retries=-1", "test", time.Minute)
	assert.Error(t, err)
}
