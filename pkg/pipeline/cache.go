package pipeline

import (
	"context"
	"log/slog"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
)

// Cache serves calls from store and guarantees at most one concurrent
// upstream call per fingerprint. A backend failure is logged and the call
// proceeds without the cache; it never changes the call's outcome.
func Cache(store *cache.Store, mux *stream.Multiplexer, logger *slog.Logger, collector *metrics.Collector) Middleware {
	backend := store.Backend().Name()
	logger = logger.With("component", "cache")

	return func(next Handler) Handler {
		return func(ctx context.Context, c *Context) error {
			policy := c.Request.CachePolicy
			if policy.Mode == providers.CacheBypass || c.Fingerprint == "" {
				return next(ctx, c)
			}

			ttl := policy.TTL
			if ttl <= 0 {
				ttl = store.DefaultTTL()
			}
			refresh := policy.Mode == providers.CacheRefresh

			lookup := func() (*cache.Entry, bool) {
				if refresh {
					return nil, true
				}
				e, err := store.Get(ctx, c.Fingerprint)
				if err != nil {
					if collector != nil {
						collector.RecordCacheError(backend, "get")
					}
					return nil, false
				}
				return e, true
			}

			e, ok := lookup()
			if !ok {
				logger.WarnContext(ctx, "cache unavailable, calling provider directly")
				return next(ctx, c)
			}
			if usable(c, e) {
				if collector != nil {
					collector.RecordCacheHit(backend)
				}
				return serve(ctx, c, mux, e)
			}

			lease, shared, err := store.Group().Acquire(ctx, c.Fingerprint)
			if err != nil {
				return err
			}
			if usable(c, shared) {
				c.Set(MetaShared, true)
				if collector != nil {
					collector.RecordCacheHit(backend)
				}
				return serve(ctx, c, mux, shared)
			}

			// A leader may have published between the lookup and Acquire.
			if e, ok := lookup(); ok && usable(c, e) {
				lease.Publish(e)
				if collector != nil {
					collector.RecordCacheHit(backend)
				}
				return serve(ctx, c, mux, e)
			}

			if collector != nil {
				collector.RecordCacheMiss(backend)
			}

			c.Record = c.Streaming()
			if err := next(ctx, c); err != nil {
				lease.Fail()
				return err
			}

			if c.Stream != nil {
				fp := c.Fingerprint
				wctx := context.WithoutCancel(ctx)
				c.Stream.OnRelease(func(o stream.Outcome) {
					if !o.Cacheable() {
						lease.Fail()
						return
					}
					entry := cache.NewStreamEntry(fp, o.Chunks, ttl)
					if err := store.Set(wctx, fp, entry, ttl); err != nil && collector != nil {
						collector.RecordCacheError(backend, "set")
					}
					lease.Publish(entry)
				})
				return nil
			}

			if c.Response == nil {
				lease.Fail()
				return nil
			}
			// Set fills in entry fields, so it runs before waiters see it.
			entry := cache.NewResponseEntry(c.Fingerprint, c.Response, ttl)
			if err := store.Set(ctx, c.Fingerprint, entry, ttl); err != nil && collector != nil {
				collector.RecordCacheError(backend, "set")
			}
			lease.Publish(entry)
			return nil
		}
	}
}

// usable reports whether e can answer the call. Streaming calls replay
// stream entries; other calls use response entries.
func usable(c *Context, e *cache.Entry) bool {
	if e == nil {
		return false
	}
	if c.Streaming() {
		return e.Kind == cache.KindStream
	}
	return e.Kind == cache.KindResponse
}

func serve(ctx context.Context, c *Context, mux *stream.Multiplexer, e *cache.Entry) error {
	c.Set(MetaCacheHit, true)
	if c.Streaming() {
		c.Stream = mux.Replay(ctx, e.Chunks, stream.Options{Provider: c.ProviderName()})
		return nil
	}
	c.Response = e.Response.Clone()
	return nil
}
