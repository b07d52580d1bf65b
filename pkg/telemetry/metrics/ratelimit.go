package metrics

import (
	"time"

	"llm-dev-ops/connector-hub/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RateLimitMetrics tracks local quota enforcement. Caller ids are not used
// as labels.
//
// Metrics:
//   - <ns>_ratelimit_rejections_total: Rejections by exhausted limit
//   - <ns>_ratelimit_wait_seconds: Time spent waiting for quota
type RateLimitMetrics struct {
	rejections *prometheus.CounterVec
	wait       prometheus.Histogram
}

// NewRateLimitMetrics creates and registers rate limit metrics with the provided registry.
func NewRateLimitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RateLimitMetrics {
	rm := &RateLimitMetrics{
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_rejections_total",
				Help:      "Total number of requests rejected by local quotas",
			},
			[]string{"reason"},
		),

		wait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_wait_seconds",
				Help:      "Time spent waiting for quota in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
		),
	}

	registry.MustRegister(rm.rejections, rm.wait)

	return rm
}

// RecordRejection records a rejected request.
func (rm *RateLimitMetrics) RecordRejection(reason string) {
	rm.rejections.WithLabelValues(reason).Inc()
}

// RecordWait records time spent waiting for quota.
func (rm *RateLimitMetrics) RecordWait(wait time.Duration) {
	rm.wait.Observe(wait.Seconds())
}
