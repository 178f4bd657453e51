// Package cache opens the Dragonfly/Redis connection used as a progress
// storage backend and reads and writes string values under a key prefix.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

// Cache wraps a Redis/Dragonfly client. Every key passed to Get, Set and
// Del is namespaced with the cache's prefix.
type Cache struct {
	Client *redis.Client
	prefix string
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the cache and verifies it answers a ping.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	slog.Info("cache connected", "addr", opts.Addr, "db", opts.DB)
	return &Cache{Client: client}, nil
}

// WithPrefix returns a view of c whose keys are additionally prefixed with
// prefix. The view shares c's connection.
func (c *Cache) WithPrefix(prefix string) *Cache {
	return &Cache{Client: c.Client, prefix: c.prefix + prefix}
}

// Key returns the stored name of key.
func (c *Cache) Key(key string) string {
	return c.prefix + key
}

// Get reads key. A missing key is reported as ok=false with no error.
func (c *Cache) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	v, err := c.Client.Get(ctx, c.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key without expiry.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.Client.Set(ctx, c.Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Del removes key. Removing a missing key is not an error.
func (c *Cache) Del(ctx context.Context, key string) error {
	if err := c.Client.Del(ctx, c.Key(key)).Err(); err != nil {
		return fmt.Errorf("cache del %s: %w", key, err)
	}
	return nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
