package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// DefaultTTL is used when neither the store nor the request sets one.
const DefaultTTL = 5 * time.Minute

// Backend is the storage contract every cache implementation satisfies.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Get returns the entry for fp, or nil and no error when absent or expired.
	Get(ctx context.Context, fp string) (*Entry, error)

	// Set stores e under fp, replacing any existing entry.
	Set(ctx context.Context, fp string, e *Entry, ttl time.Duration) error

	// Invalidate removes the entry for fp. Removing an absent entry is not an error.
	Invalidate(ctx context.Context, fp string) error

	// Sweep removes expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Sets     int64   `json:"sets"`
	Errors   int64   `json:"errors"`
	HitRatio float64 `json:"hit_ratio"`
}

// Store wraps a Backend with accounting, TTL defaults and stampede
// protection.
type Store struct {
	backend    Backend
	defaultTTL time.Duration
	group      *Group
	logger     *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errors atomic.Int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaultTTL sets the TTL used when a write does not specify one.
func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithLogger sets the logger used for backend failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store over backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:    backend,
		defaultTTL: DefaultTTL,
		group:      NewGroup(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "cache", "backend", backend.Name())
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Group returns the per-fingerprint flight group.
func (s *Store) Group() *Group {
	return s.group
}

// DefaultTTL returns the TTL applied to writes without an explicit one.
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get looks up fp. A miss returns nil and no error. Backend failures are
// returned as *providers.CacheError and counted as misses.
func (s *Store) Get(ctx context.Context, fp string) (*Entry, error) {
	e, err := s.backend.Get(ctx, fp)
	if err != nil {
		s.misses.Add(1)
		return nil, s.fail(ctx, "get", fp, err)
	}
	if e == nil || e.Expired(time.Now()) {
		s.misses.Add(1)
		return nil, nil
	}
	s.hits.Add(1)
	return e, nil
}

// Set writes e with ttl, or the default TTL when ttl is not positive.
func (s *Store) Set(ctx context.Context, fp string, e *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	e.Fingerprint = fp
	e.TTL = ttl
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := e.Validate(); err != nil {
		return s.fail(ctx, "set", fp, err)
	}
	if err := s.backend.Set(ctx, fp, e, ttl); err != nil {
		return s.fail(ctx, "set", fp, err)
	}
	s.sets.Add(1)
	return nil
}

// Invalidate removes the entry for fp.
func (s *Store) Invalidate(ctx context.Context, fp string) error {
	if err := s.backend.Invalidate(ctx, fp); err != nil {
		return s.fail(ctx, "invalidate", fp, err)
	}
	return nil
}

// Sweep removes expired entries.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	n, err := s.backend.Sweep(ctx)
	if err != nil {
		return n, s.fail(ctx, "sweep", "", err)
	}
	if n > 0 {
		s.logger.Debug("swept expired cache entries", "removed", n)
	}
	return n, nil
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	st := Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Sets:   s.sets.Load(),
		Errors: s.errors.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total)
	}
	return st
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) fail(ctx context.Context, op, fp string, err error) error {
	s.errors.Add(1)
	var cerr *providers.CacheError
	if !errors.As(err, &cerr) {
		cerr = &providers.CacheError{Op: op, Backend: s.backend.Name(), Cause: err}
	}
	s.logger.WarnContext(ctx, "cache backend failure", "op", op, "fingerprint", fp, "error", err)
	return cerr
}
