package metrics

import (
	"time"

	"llm-dev-ops/connector-hub/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks upstream attempts, probes and breakers.
//
// Metrics:
//   - <ns>_provider_attempts_total: Attempts by provider and outcome
//   - <ns>_provider_latency_seconds: Per-attempt latency
//   - <ns>_provider_errors_total: Failed attempts by error kind
//   - <ns>_provider_health: Last probe result (1=healthy, 0=unhealthy)
//   - <ns>_provider_probe_latency_seconds: Last probe latency
//   - <ns>_circuit_state: Breaker state (0=closed, 1=open, 2=half-open)
type ProviderMetrics struct {
	attempts     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	errors       *prometheus.CounterVec
	health       *prometheus.GaugeVec
	probeLatency *prometheus.GaugeVec
	circuitState *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_attempts_total",
				Help:      "Total number of upstream attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Upstream attempt latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "model"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of failed upstream attempts by error kind",
			},
			[]string{"provider", "type"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),

		probeLatency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_probe_latency_seconds",
				Help:      "Latency of the last health probe in seconds",
			},
			[]string{"provider"},
		),

		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"key"},
		),
	}

	registry.MustRegister(
		pm.attempts,
		pm.latency,
		pm.errors,
		pm.health,
		pm.probeLatency,
		pm.circuitState,
	)

	return pm
}

// RecordAttempt records one upstream attempt.
func (pm *ProviderMetrics) RecordAttempt(provider, model string, latency time.Duration, errorKind string) {
	outcome := "success"
	if errorKind != "" {
		outcome = "failure"
		pm.errors.WithLabelValues(provider, errorKind).Inc()
	}
	pm.attempts.WithLabelValues(provider, outcome).Inc()
	pm.latency.WithLabelValues(provider, model).Observe(latency.Seconds())
}

// UpdateHealth records the last probe result.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool, latency time.Duration) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
	pm.probeLatency.WithLabelValues(provider).Set(latency.Seconds())
}

// UpdateCircuitState records the breaker state for key.
func (pm *ProviderMetrics) UpdateCircuitState(key string, state int) {
	pm.circuitState.WithLabelValues(key).Set(float64(state))
}
