package metrics

import (
	"fmt"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Request statuses used as the status label.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusCacheHit    = "cache_hit"
	StatusRateLimited = "rate_limited"
	StatusCircuitOpen = "circuit_open"
)

// Collector owns every Prometheus metric of one hub. Metrics are registered
// on the collector's own registry, so several hubs can run in one process.
//
// Recording is always on: the pull-based snapshot reads the same series.
// MetricsConfig.Enabled only decides whether the /metrics endpoint is served.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics   *RequestMetrics
	providerMetrics  *ProviderMetrics
	cacheMetrics     *CacheMetrics
	rateLimitMetrics *RateLimitMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector with the specified configuration and
// Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Namespace: "connector_hub"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := *cfg
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if len(c.RequestDurationBuckets) == 0 {
		c.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	return &Collector{
		config:             &c,
		registry:           registry,
		requestMetrics:     NewRequestMetrics(&c, registry),
		providerMetrics:    NewProviderMetrics(&c, registry),
		cacheMetrics:       NewCacheMetrics(&c, registry),
		rateLimitMetrics:   NewRateLimitMetrics(&c, registry),
		cardinalityLimiter: NewCardinalityLimiter(10000), // Max 10K unique label sets
	}
}

// model returns model, or "other" once the label budget is spent.
func (c *Collector) model(kind, provider, model string) string {
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("%s:%s:%s", kind, provider, model)) {
		return "other"
	}
	return model
}

// RecordRequest records a finished call as seen by the caller.
//
// Parameters:
//   - provider, model: routing target
//   - status: one of the Status* constants
//   - duration: total time including retries and backoff
//   - attempts: upstream attempts made (0 for cache hits and rejections)
func (c *Collector) RecordRequest(provider, model, status string, duration time.Duration, attempts int) {
	c.requestMetrics.RecordRequest(provider, c.model("request", provider, model), status, duration, attempts)
}

// RecordTokens records prompt and completion token usage.
func (c *Collector) RecordTokens(provider, model string, promptTokens, completionTokens int) {
	c.requestMetrics.RecordTokens(provider, c.model("request", provider, model), promptTokens, completionTokens)
}

// RecordStream records how a stream ended and how many chunks it produced.
func (c *Collector) RecordStream(provider, outcome string, chunks int) {
	c.requestMetrics.RecordStream(provider, outcome, chunks)
}

// RecordAttempt records one upstream attempt. errorKind is empty on success.
func (c *Collector) RecordAttempt(provider, model string, latency time.Duration, errorKind string) {
	c.providerMetrics.RecordAttempt(provider, c.model("provider", provider, model), latency, errorKind)
}

// UpdateProviderHealth updates the health status of a provider.
//
// The health metric is a gauge where 1=healthy, 0=unhealthy.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool, latency time.Duration) {
	c.providerMetrics.UpdateHealth(provider, healthy, latency)
}

// UpdateCircuitState records the breaker state for a provider/model key.
func (c *Collector) UpdateCircuitState(key string, state int) {
	c.providerMetrics.UpdateCircuitState(key, state)
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(backend string) {
	c.cacheMetrics.RecordHit(backend)
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(backend string) {
	c.cacheMetrics.RecordMiss(backend)
}

// RecordCacheError records a backend failure for op.
func (c *Collector) RecordCacheError(backend, op string) {
	c.cacheMetrics.RecordError(backend, op)
}

// RecordCacheSweep records entries removed by an expiry sweep.
func (c *Collector) RecordCacheSweep(backend string, removed int) {
	c.cacheMetrics.RecordEvictions(backend, removed)
}

// RecordRateLimited records a rejected request.
func (c *Collector) RecordRateLimited(reason string) {
	c.rateLimitMetrics.RecordRejection(reason)
}

// RecordRateLimitWait records time spent waiting for quota.
func (c *Collector) RecordRateLimitWait(wait time.Duration) {
	c.rateLimitMetrics.RecordWait(wait)
}

// Enabled reports whether the metrics endpoint should be served.
func (c *Collector) Enabled() bool {
	return c.config.IsEnabled()
}

// Path returns the configured metrics endpoint path.
func (c *Collector) Path() string {
	if c.config.Path == "" {
		return config.DefaultMetricsPath
	}
	return c.config.Path
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
