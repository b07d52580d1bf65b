package hub

import (
	"strings"
	"time"

	"llm-dev-ops/connector-hub/pkg/health"
	"llm-dev-ops/connector-hub/pkg/limits/ratelimit"
	"llm-dev-ops/connector-hub/pkg/resilience"
	"llm-dev-ops/connector-hub/pkg/router"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
)

// ProviderSnapshot is the merged view of one provider.
type ProviderSnapshot struct {
	Attempts  uint64                    `json:"attempts"`
	Failures  uint64                    `json:"failures"`
	ErrorRate float64                   `json:"error_rate"`
	Latency   metrics.LatencyHistogram  `json:"latency"`
	Circuits  []resilience.CircuitState `json:"circuits"`
	Health    *health.ProviderHealth    `json:"health,omitempty"`
}

// CacheSnapshot summarizes cache effectiveness.
type CacheSnapshot struct {
	Enabled   bool      `json:"enabled"`
	Backend   string    `json:"backend,omitempty"`
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`
	HitRatio  float64   `json:"hit_ratio"`
	Sets      int64     `json:"sets"`
	Errors    int64     `json:"errors"`
	NextSweep time.Time `json:"next_sweep,omitempty"`
}

// Snapshot is a point-in-time view of a hub.
type Snapshot struct {
	Providers  map[string]ProviderSnapshot `json:"providers"`
	Cache      CacheSnapshot               `json:"cache"`
	Routing    router.Stats                `json:"routing"`
	RateLimits []ratelimit.Usage           `json:"rate_limits"`
	TakenAt    time.Time                   `json:"taken_at"`
}

// Snapshot merges the metrics counters with breaker, health and limiter
// state. Every registered provider appears, even before its first call.
func (h *Hub) Snapshot() (Snapshot, error) {
	stats, err := h.collector.ProviderStats()
	if err != nil {
		return Snapshot{}, err
	}
	cacheStats, err := h.collector.CacheStats()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Providers:  make(map[string]ProviderSnapshot),
		Routing:    h.router.Stats(),
		RateLimits: h.limits.Usage(),
		TakenAt:    time.Now(),
	}

	for _, name := range h.providers.Names() {
		snap.Providers[name] = ProviderSnapshot{}
	}
	for name, s := range stats {
		ps := snap.Providers[name]
		ps.Attempts = s.Attempts
		ps.Failures = s.Failures
		ps.ErrorRate = s.ErrorRate
		ps.Latency = s.Latency
		snap.Providers[name] = ps
	}
	for _, c := range h.controller.States() {
		name, _, _ := strings.Cut(c.Key, "/")
		ps := snap.Providers[name]
		ps.Circuits = append(ps.Circuits, c)
		snap.Providers[name] = ps
	}
	for name, ph := range h.monitor.Snapshot() {
		ps := snap.Providers[name]
		ps.Health = &ph
		snap.Providers[name] = ps
	}

	snap.Cache = CacheSnapshot{
		Enabled:  h.store != nil,
		Hits:     cacheStats.Hits,
		Misses:   cacheStats.Misses,
		HitRatio: cacheStats.HitRatio,
	}
	if h.store != nil {
		st := h.store.Stats()
		snap.Cache.Backend = h.store.Backend().Name()
		snap.Cache.Sets = st.Sets
		snap.Cache.Errors = st.Errors
		snap.Cache.NextSweep = h.sweeper.NextRun()
	}

	return snap, nil
}
