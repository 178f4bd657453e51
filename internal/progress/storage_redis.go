package progress

import (
	"context"

	"github.com/p-n-ai/filge/internal/platform/cache"
)

// RedisStorage keeps device data in Redis/Dragonfly. Keys are stored as
// plain strings without expiry.
type RedisStorage struct {
	cache *cache.Cache
}

// NewRedisStorage wraps an open cache connection. prefix is prepended to
// every key.
func NewRedisStorage(c *cache.Cache, prefix string) *RedisStorage {
	return &RedisStorage{cache: c.WithPrefix(prefix)}
}

func (s *RedisStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	return s.cache.Get(ctx, key)
}

func (s *RedisStorage) SetItem(ctx context.Context, key, value string) error {
	return s.cache.Set(ctx, key, value)
}

func (s *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	return s.cache.Del(ctx, key)
}

// HealthCheck pings the cache.
func (s *RedisStorage) HealthCheck(ctx context.Context) error {
	return s.cache.HealthCheck(ctx)
}
