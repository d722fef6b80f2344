// Package cache provides a Redis cache access layer for repository
// entities.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// Config carries the Redis connection settings, read from the
// environment.
type Config struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

// Cache owns the Redis client shared by entity stores.
type Cache struct {
	client *redis.Client
}

// New creates a Cache from a Redis URL.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewFromEnv creates a Cache from the REDIS_URL environment variable.
func NewFromEnv(ctx context.Context) (*Cache, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read cache environment: %w", err)
	}
	return New(ctx, cfg.URL)
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer the entity Store.
func (c *Cache) Client() *redis.Client {
	return c.client
}
