// Package memory is an in-process cache backend on a bounded LRU.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"llm-dev-ops/connector-hub/pkg/cache"
)

// DefaultMaxEntries bounds the LRU when no size is configured.
const DefaultMaxEntries = 10000

type record struct {
	entry *cache.Entry
	hits  atomic.Int64
}

// Backend keeps entries in an LRU. Each entry carries its own TTL; the LRU
// evicts the least recently used entry once MaxEntries is reached.
type Backend struct {
	lru *expirable.LRU[string, *record]
}

// New creates a backend holding at most maxEntries entries.
func New(maxEntries int) *Backend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Backend{lru: expirable.NewLRU[string, *record](maxEntries, nil, 0)}
}

// Name returns "memory".
func (b *Backend) Name() string { return "memory" }

// Get returns a deep copy of the entry with its hit count.
func (b *Backend) Get(ctx context.Context, fp string) (*cache.Entry, error) {
	rec, ok := b.lru.Get(fp)
	if !ok {
		return nil, nil
	}
	if rec.entry.Expired(time.Now()) {
		b.lru.Remove(fp)
		return nil, nil
	}

	e := rec.entry.Clone()
	e.Hits = rec.hits.Add(1)
	return e, nil
}

// Set replaces the entry for fp.
func (b *Backend) Set(ctx context.Context, fp string, e *cache.Entry, ttl time.Duration) error {
	stored := e.Clone()
	stored.TTL = ttl
	b.lru.Add(fp, &record{entry: stored})
	return nil
}

// Invalidate removes fp.
func (b *Backend) Invalidate(ctx context.Context, fp string) error {
	b.lru.Remove(fp)
	return nil
}

// Sweep removes expired entries.
func (b *Backend) Sweep(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0
	for _, fp := range b.lru.Keys() {
		rec, ok := b.lru.Peek(fp)
		if ok && rec.entry.Expired(now) {
			b.lru.Remove(fp)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (b *Backend) Len() int {
	return b.lru.Len()
}

// Close drops all entries.
func (b *Backend) Close() error {
	b.lru.Purge()
	return nil
}
