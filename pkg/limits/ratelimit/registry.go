package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"llm-dev-ops/connector-hub/pkg/providers"
)

const (
	// DefaultMaxCallers bounds how many caller limiters are tracked at once.
	DefaultMaxCallers = 10000

	// DefaultIdleTTL is how long an unused caller limiter is kept. It
	// exceeds the longest window, so a limiter dropped for idleness would
	// have refilled completely anyway.
	DefaultIdleTTL = 2 * time.Hour
)

// AnonymousCaller is the key used when a request names no caller.
const AnonymousCaller = "anonymous"

// MetadataCaller is the request metadata key holding the caller id.
const MetadataCaller = "caller"

// CallerKey returns the rate limit key for req: Metadata["caller"], then
// User, then AnonymousCaller.
func CallerKey(req *providers.CompletionRequest) string {
	if req == nil {
		return AnonymousCaller
	}
	if c := req.Metadata[MetadataCaller]; c != "" {
		return c
	}
	if req.User != "" {
		return req.User
	}
	return AnonymousCaller
}

// Registry hands out one Limiter per caller, created on first use from the
// caller's override or the default quota. Limiters unused for the idle TTL
// are dropped, and the least recently used one is dropped when the caller
// limit is reached.
type Registry struct {
	defaults  Config
	overrides map[string]Config
	maxWait   time.Duration
	now       func() time.Time

	maxCallers int
	idleTTL    time.Duration

	mu       sync.Mutex
	limiters *expirable.LRU[string, *Limiter]
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCallerLimit bounds the tracked callers and how long an idle caller's
// limiter is kept. Non-positive values keep the defaults.
func WithCallerLimit(maxCallers int, idleTTL time.Duration) RegistryOption {
	return func(r *Registry) {
		if maxCallers > 0 {
			r.maxCallers = maxCallers
		}
		if idleTTL > 0 {
			r.idleTTL = idleTTL
		}
	}
}

// NewRegistry creates a registry. overrides maps caller keys to quotas that
// replace defaults for that caller.
func NewRegistry(defaults Config, overrides map[string]Config, maxWait time.Duration, opts ...RegistryOption) *Registry {
	o := make(map[string]Config, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	r := &Registry{
		defaults:   defaults,
		overrides:  o,
		maxWait:    maxWait,
		now:        time.Now,
		maxCallers: DefaultMaxCallers,
		idleTTL:    DefaultIdleTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.limiters = expirable.NewLRU[string, *Limiter](r.maxCallers, nil, r.idleTTL)
	return r
}

// MaxWait returns how long Acquire waits for quota.
func (r *Registry) MaxWait() time.Duration {
	return r.maxWait
}

// Limiter returns the limiter for caller, creating it if needed. Each call
// restarts the caller's idle TTL.
func (r *Registry) Limiter(caller string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters.Get(caller)
	if !ok {
		cfg, found := r.overrides[caller]
		if !found {
			cfg = r.defaults
		}
		l = newLimiter(caller, cfg, r.now)
	}
	r.limiters.Add(caller, l)
	return l
}

// Len returns the number of tracked callers.
func (r *Registry) Len() int {
	return r.limiters.Len()
}

// Acquire admits one request for caller, waiting up to the registry's
// max wait.
func (r *Registry) Acquire(ctx context.Context, caller string) (func(), error) {
	return r.Limiter(caller).Acquire(ctx, r.maxWait)
}

// Record charges token usage to caller.
func (r *Registry) Record(caller string, tokens int64) {
	r.Limiter(caller).RecordTokens(tokens)
}

// Usage returns the usage of every tracked caller, sorted by caller.
func (r *Registry) Usage() []Usage {
	limiters := r.limiters.Values()

	out := make([]Usage, 0, len(limiters))
	for _, l := range limiters {
		out = append(out, l.Usage())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Caller < out[j].Caller })
	return out
}
