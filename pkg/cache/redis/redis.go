// Package redis is a distributed cache backend on go-redis.
//
// Expiry is delegated to Redis key TTLs, so Sweep has nothing to remove.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"llm-dev-ops/connector-hub/pkg/cache"
)

// DefaultPrefix namespaces keys written by the backend.
const DefaultPrefix = "connector-hub:cache:"

// Config configures the Redis backend.
type Config struct {
	// Addr is the host:port of the Redis server
	Addr string

	// Password is the AUTH password, if any
	Password string

	// DB selects the logical database
	DB int

	// Prefix namespaces cache keys. Default: DefaultPrefix
	Prefix string
}

// Backend stores entries as string keys with a companion hit counter.
type Backend struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &Backend{client: client, prefix: cfg.Prefix}, nil
}

// Name returns "redis".
func (b *Backend) Name() string { return "redis" }

func (b *Backend) key(fp string) string     { return b.prefix + fp }
func (b *Backend) hitsKey(fp string) string { return b.prefix + fp + ":hits" }

// Get loads the entry for fp and increments its hit counter.
func (b *Backend) Get(ctx context.Context, fp string) (*cache.Entry, error) {
	payload, err := b.client.Get(ctx, b.key(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e, err := cache.Unmarshal(payload)
	if err != nil {
		return nil, err
	}

	hits, err := b.client.Incr(ctx, b.hitsKey(fp)).Result()
	if err != nil {
		return nil, err
	}
	if ttl := time.Until(e.ExpiresAt()); ttl > 0 {
		b.client.Expire(ctx, b.hitsKey(fp), ttl)
	}
	e.Hits = hits
	return e, nil
}

// Set replaces the entry and resets its hit counter atomically.
func (b *Backend) Set(ctx context.Context, fp string, e *cache.Entry, ttl time.Duration) error {
	payload, err := cache.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key(fp), payload, ttl)
		pipe.Del(ctx, b.hitsKey(fp))
		return nil
	})
	return err
}

// Invalidate deletes the entry and its counter.
func (b *Backend) Invalidate(ctx context.Context, fp string) error {
	return b.client.Del(ctx, b.key(fp), b.hitsKey(fp)).Err()
}

// Sweep is a no-op: Redis expires keys itself.
func (b *Backend) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Close closes the client.
func (b *Backend) Close() error {
	return b.client.Close()
}
