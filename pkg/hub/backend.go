package hub

import (
	"context"
	"fmt"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/cache/bbolt"
	"llm-dev-ops/connector-hub/pkg/cache/memory"
	"llm-dev-ops/connector-hub/pkg/cache/redis"
	"llm-dev-ops/connector-hub/pkg/cache/sqlite"
	"llm-dev-ops/connector-hub/pkg/config"
)

// openBackend opens the cache backend named by cfg.Backend.
func openBackend(ctx context.Context, cfg config.CacheConfig) (cache.Backend, error) {
	switch cfg.Backend {
	case "", config.CacheBackendMemory:
		return memory.New(cfg.MaxEntries), nil

	case config.CacheBackendSQLite:
		path := cfg.Path
		if path == "" {
			path = config.DefaultCacheSQLitePath
		}
		return sqlite.New(path)

	case config.CacheBackendBBolt:
		path := cfg.Path
		if path == "" {
			path = config.DefaultCacheBBoltPath
		}
		return bbolt.New(path)

	case config.CacheBackendRedis:
		return redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
