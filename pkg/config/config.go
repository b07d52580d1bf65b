package config

import (
	"sort"
	"time"
)

// Config is the root configuration for a connector hub. Each hub is built
// from its own *Config; there is no process-wide instance.
type Config struct {
	// Providers configures the provider adapters. Keys are provider ids
	// (e.g., "openai", "anthropic").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Routing controls request validation and provider resolution.
	Routing RoutingConfig `yaml:"routing"`

	// Pipeline selects which built-in interceptors run.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Cache configures the response cache and its backend.
	Cache CacheConfig `yaml:"cache"`

	// Resilience configures circuit breakers and retries.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Stream configures the stream multiplexer.
	Stream StreamConfig `yaml:"stream"`

	// RateLimits configures per-caller quotas.
	RateLimits RateLimitsConfig `yaml:"rate_limits"`

	// Health configures out-of-band provider probes.
	Health HealthConfig `yaml:"health"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server configures the observability listener used by `serve`.
	Server ServerConfig `yaml:"server"`

	// Bench configures the benchmark runner.
	Bench BenchConfig `yaml:"bench"`

	// Secrets configures resolution of ${secret:name} references in
	// provider credentials.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ProviderNames returns the configured provider ids in sorted order, which
// is also the order adapters are registered in.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderConfig contains configuration for a single provider adapter.
type ProviderConfig struct {
	// Type selects the adapter: "openai", "anthropic", "generic" or "mock".
	// Inferred from the provider id when empty.
	Type string `yaml:"type"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the default credential. Falls back to <PROVIDER>_API_KEY.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single attempt against this provider.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Models lists the served models. Empty uses the adapter defaults.
	Models []string `yaml:"models"`

	// DefaultMaxTokens is filled into requests that omit max_tokens.
	DefaultMaxTokens int `yaml:"default_max_tokens"`

	// MaxIdleConns bounds the adapter's idle connection pool.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers"`
}

// Validation modes for RoutingConfig.ValidationMode.
const (
	ValidationStrict   = "strict"
	ValidationLenient  = "lenient"
	ValidationDisabled = "disabled"
)

// RoutingConfig controls request validation and provider selection.
type RoutingConfig struct {
	// ValidationMode is "strict", "lenient" or "disabled".
	// Default: "strict"
	ValidationMode string `yaml:"validation_mode"`

	// DefaultProvider serves requests whose provider cannot be resolved
	// from the model.
	DefaultProvider string `yaml:"default_provider"`
}

// Built-in pipeline stage names in canonical order.
const (
	StageLogging    = "logging"
	StageRateLimit  = "ratelimit"
	StageCache      = "cache"
	StageResilience = "resilience"
	StageMetrics    = "metrics"
)

// CanonicalStages is the fixed order of the built-in interceptors.
var CanonicalStages = []string{StageLogging, StageRateLimit, StageCache, StageResilience, StageMetrics}

// PipelineConfig selects the interceptors. Stages may be omitted but never
// reordered.
type PipelineConfig struct {
	// Stages lists the enabled stages.
	// Default: all of CanonicalStages
	Stages []string `yaml:"stages"`
}

// Enabled reports whether stage is listed.
func (p PipelineConfig) Enabled(stage string) bool {
	for _, s := range p.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
	CacheBackendBBolt  = "bbolt"
	CacheBackendRedis  = "redis"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Enabled turns the cache interceptor's backend on. When false the cache
	// stage is skipped even if listed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend is "memory", "sqlite", "bbolt" or "redis".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// DefaultTTL applies to entries written without a per-request TTL.
	// Default: 5m
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// MaxEntries bounds the memory backend.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`

	// Path is the database file for the sqlite and bbolt backends.
	Path string `yaml:"path"`

	// RedisAddr is the redis server address (host:port).
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates to redis.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the redis database.
	RedisDB int `yaml:"redis_db"`

	// SweepSchedule is a cron expression for removing expired entries.
	// Default: "@every 1m"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// IsEnabled reports whether caching is on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ResilienceConfig configures circuit breakers and the retry loop.
type ResilienceConfig struct {
	// FailureThreshold is the number of consecutive failures that opens a
	// circuit. Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// FailureWindow bounds how far apart counted failures may be.
	// Default: 1m
	FailureWindow time.Duration `yaml:"failure_window"`

	// Cooldown is how long a circuit stays open. Default: 30s
	Cooldown time.Duration `yaml:"cooldown"`

	// MaxAttempts includes the first attempt. Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the first backoff delay. Default: 200ms
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps a single backoff delay. Default: 5s
	MaxDelay time.Duration `yaml:"max_delay"`

	// Jitter is the fraction of each delay added at random, 0 to 1.
	// Default: 0.2
	Jitter *float64 `yaml:"jitter"`

	// LatencyBudget bounds a call's total time across attempts.
	// Default: 30s
	LatencyBudget time.Duration `yaml:"latency_budget"`
}

// StreamConfig configures the stream multiplexer.
type StreamConfig struct {
	// BufferDepth is the number of chunks buffered between producer and
	// consumer. Default: 64
	BufferDepth int `yaml:"buffer_depth"`
}

// Quota is a per-caller rate limit. Zero disables a dimension.
type Quota struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour"`
	TokensPerMinute   int `yaml:"tokens_per_minute"`
	TokensPerHour     int `yaml:"tokens_per_hour"`
	MaxConcurrent     int `yaml:"max_concurrent"`
}

// RateLimitsConfig configures per-caller quotas.
type RateLimitsConfig struct {
	// Default applies to callers without an entry in Callers.
	Default Quota `yaml:"default"`

	// Callers overrides the default quota per caller key.
	Callers map[string]Quota `yaml:"callers"`

	// MaxWait is how long a request may wait for quota before it is
	// rejected. Zero rejects immediately.
	MaxWait time.Duration `yaml:"max_wait"`

	// MaxCallers bounds how many callers are tracked; the least recently
	// seen is dropped beyond it.
	// Default: 10000
	MaxCallers int `yaml:"max_callers"`

	// IdleTTL drops a caller's limiter after this long without requests.
	// Default: 2h
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// HealthConfig configures out-of-band provider probes.
type HealthConfig struct {
	// Enabled starts the monitor with the hub.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Interval between probe rounds. Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single probe. Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// Concurrency bounds parallel probes. Default: 4
	Concurrency int `yaml:"concurrency"`
}

// IsEnabled reports whether probing is on.
func (h HealthConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables redaction of API keys and bearer tokens in logs.
	// Default: true
	RedactPII *bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path of the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "connector_hub"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for latencies (seconds).
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// IsEnabled reports whether metrics are collected.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects the span exporter. Only "otlp" is supported.
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint (e.g., "localhost:4317").
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "connector-hub"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter settings.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the observability listener.
type ServerConfig struct {
	// ListenAddress serves /metrics, /snapshot and /healthz.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BenchConfig configures the benchmark runner.
type BenchConfig struct {
	// Iterations per target. Default: 1000
	Iterations int `yaml:"iterations"`

	// Warmup iterations discarded before measuring. Default: 100
	Warmup int `yaml:"warmup"`

	// OutputDir receives raw results and the summary.
	// Default: "bench-results"
	OutputDir string `yaml:"output_dir"`
}

// SecretsConfig configures where ${secret:name} references are looked up.
// Sources are tried in order: the directory, then the environment.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name, with hyphens
	// replaced by underscores.
	// Default: "CONNECTOR_HUB_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret, named after the secret. Files must be
	// mode 0600 or 0400. Empty disables the file source.
	Dir string `yaml:"dir"`

	// CacheTTL bounds how long a resolved value is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}
