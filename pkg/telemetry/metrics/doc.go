// Package metrics provides the Prometheus metrics of a connector hub.
//
// # Overview
//
// A Collector registers request, provider, cache and rate limit metrics on
// its own *prometheus.Registry. Two hubs in one process never share series.
//
// # Metrics
//
// Request metrics:
//   - connector_hub_requests_total{provider, model, status}
//   - connector_hub_request_duration_seconds{provider, model}
//   - connector_hub_request_attempts{provider}
//   - connector_hub_request_tokens_total{provider, model, type}
//   - connector_hub_streams_total{provider, outcome}
//   - connector_hub_stream_chunks_total{provider}
//
// Provider metrics:
//   - connector_hub_provider_attempts_total{provider, outcome}
//   - connector_hub_provider_latency_seconds{provider, model}
//   - connector_hub_provider_errors_total{provider, type}
//   - connector_hub_provider_health{provider}
//   - connector_hub_provider_probe_latency_seconds{provider}
//   - connector_hub_circuit_state{key}
//
// Cache metrics:
//   - connector_hub_cache_hits_total{backend}
//   - connector_hub_cache_misses_total{backend}
//   - connector_hub_cache_errors_total{backend, op}
//   - connector_hub_cache_evictions_total{backend}
//
// Rate limit metrics:
//   - connector_hub_ratelimit_rejections_total{reason}
//   - connector_hub_ratelimit_wait_seconds
//
// # Snapshot
//
// ProviderStats and CacheStats read the same series back through
// Registry().Gather(), so the pull-based hub snapshot and a Prometheus
// scrape always agree.
//
// # Cardinality
//
// Model labels are limited to 10,000 distinct label sets. Beyond that new
// models are reported as "other".
package metrics
