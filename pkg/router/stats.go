package router

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time view of routing counters.
type Stats struct {
	TotalRequests       int64            `json:"total_requests"`
	RequestsPerProvider map[string]int64 `json:"requests_per_provider"`
	ResolvedByModel     int64            `json:"resolved_by_model"`
	DefaultProviderUsed int64            `json:"default_provider_used"`
	UnknownModels       int64            `json:"unknown_models"`
	ValidationErrors    int64            `json:"validation_errors"`
	CacheHits           int64            `json:"cache_hits"`
	Errors              int64            `json:"errors"`
	LastResetTime       time.Time        `json:"last_reset_time"`
}

// atomicStats implements lock-free routing counters.
type atomicStats struct {
	totalRequests atomic.Int64

	// requestsPerProvider maps provider name to *atomic.Int64
	requestsPerProvider sync.Map

	resolvedByModel     atomic.Int64
	defaultProviderUsed atomic.Int64
	unknownModels       atomic.Int64
	validationErrors    atomic.Int64
	cacheHits           atomic.Int64
	errors              atomic.Int64

	mu            sync.RWMutex
	lastResetTime time.Time
}

func newAtomicStats() *atomicStats {
	return &atomicStats{lastResetTime: time.Now()}
}

func (s *atomicStats) incrementProvider(name string) {
	val, _ := s.requestsPerProvider.LoadOrStore(name, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// snapshot returns a copy of the counters that is safe to read without locks.
func (s *atomicStats) snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perProvider := make(map[string]int64)
	s.requestsPerProvider.Range(func(key, value any) bool {
		perProvider[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return Stats{
		TotalRequests:       s.totalRequests.Load(),
		RequestsPerProvider: perProvider,
		ResolvedByModel:     s.resolvedByModel.Load(),
		DefaultProviderUsed: s.defaultProviderUsed.Load(),
		UnknownModels:       s.unknownModels.Load(),
		ValidationErrors:    s.validationErrors.Load(),
		CacheHits:           s.cacheHits.Load(),
		Errors:              s.errors.Load(),
		LastResetTime:       s.lastResetTime,
	}
}

func (s *atomicStats) reset() {
	s.totalRequests.Store(0)
	s.resolvedByModel.Store(0)
	s.defaultProviderUsed.Store(0)
	s.unknownModels.Store(0)
	s.validationErrors.Store(0)
	s.cacheHits.Store(0)
	s.errors.Store(0)

	s.requestsPerProvider.Range(func(key, value any) bool {
		s.requestsPerProvider.Delete(key)
		return true
	})

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}
