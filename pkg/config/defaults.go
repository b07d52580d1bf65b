package config

import "time"

// Default values for configuration fields.
const (
	// Provider defaults
	DefaultProviderTimeout      = 60 * time.Second
	DefaultProviderMaxIdleConns = 100

	// Routing defaults
	DefaultValidationMode = ValidationStrict

	// Cache defaults
	DefaultCacheBackend       = CacheBackendMemory
	DefaultCacheTTL           = 5 * time.Minute
	DefaultCacheMaxEntries    = 10000
	DefaultCacheSQLitePath    = "data/cache.db"
	DefaultCacheBBoltPath     = "data/cache.bolt"
	DefaultCacheSweepSchedule = "@every 1m"

	// Resilience defaults
	DefaultFailureThreshold = 5
	DefaultFailureWindow    = time.Minute
	DefaultCooldown         = 30 * time.Second
	DefaultMaxAttempts      = 3
	DefaultBaseDelay        = 200 * time.Millisecond
	DefaultMaxDelay         = 5 * time.Second
	DefaultJitter           = 0.2
	DefaultLatencyBudget    = 30 * time.Second

	// Stream defaults
	DefaultStreamBufferDepth = 64

	// Health defaults
	DefaultHealthInterval    = 30 * time.Second
	DefaultHealthTimeout     = 5 * time.Second
	DefaultHealthConcurrency = 4

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "connector_hub"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingExporter    = "otlp"
	DefaultTracingServiceName = "connector-hub"
	DefaultTracingOTLPTimeout = 10 * time.Second

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultShutdownTimeout = 10 * time.Second

	// Bench defaults
	DefaultBenchIterations = 1000
	DefaultBenchWarmup     = 100
	DefaultBenchOutputDir  = "bench-results"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "CONNECTOR_HUB_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute
)

// DefaultRequestDurationBuckets are the latency histogram buckets in seconds.
var DefaultRequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Provider defaults
	for name, p := range cfg.Providers {
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
		}
		if p.MaxIdleConns == 0 {
			p.MaxIdleConns = DefaultProviderMaxIdleConns
		}
		cfg.Providers[name] = p
	}

	// Routing defaults
	if cfg.Routing.ValidationMode == "" {
		cfg.Routing.ValidationMode = DefaultValidationMode
	}

	// Pipeline defaults
	if len(cfg.Pipeline.Stages) == 0 {
		cfg.Pipeline.Stages = append([]string(nil), CanonicalStages...)
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.Path == "" {
		switch cfg.Cache.Backend {
		case CacheBackendSQLite:
			cfg.Cache.Path = DefaultCacheSQLitePath
		case CacheBackendBBolt:
			cfg.Cache.Path = DefaultCacheBBoltPath
		}
	}
	if cfg.Cache.SweepSchedule == "" {
		cfg.Cache.SweepSchedule = DefaultCacheSweepSchedule
	}

	// Resilience defaults
	r := &cfg.Resilience
	if r.FailureThreshold == 0 {
		r.FailureThreshold = DefaultFailureThreshold
	}
	if r.FailureWindow == 0 {
		r.FailureWindow = DefaultFailureWindow
	}
	if r.Cooldown == 0 {
		r.Cooldown = DefaultCooldown
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = DefaultBaseDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = DefaultMaxDelay
	}
	if r.Jitter == nil {
		j := DefaultJitter
		r.Jitter = &j
	}
	if r.LatencyBudget == 0 {
		r.LatencyBudget = DefaultLatencyBudget
	}

	// Stream defaults
	if cfg.Stream.BufferDepth == 0 {
		cfg.Stream.BufferDepth = DefaultStreamBufferDepth
	}

	// Health defaults
	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = DefaultHealthInterval
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = DefaultHealthTimeout
	}
	if cfg.Health.Concurrency == 0 {
		cfg.Health.Concurrency = DefaultHealthConcurrency
	}

	// Telemetry defaults
	applyTelemetryDefaults(&cfg.Telemetry)

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Bench defaults
	if cfg.Bench.Iterations == 0 {
		cfg.Bench.Iterations = DefaultBenchIterations
	}
	if cfg.Bench.Warmup == 0 {
		cfg.Bench.Warmup = DefaultBenchWarmup
	}
	if cfg.Bench.OutputDir == "" {
		cfg.Bench.OutputDir = DefaultBenchOutputDir
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Logging.RedactPII == nil {
		on := true
		t.Logging.RedactPII = &on
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 && t.Tracing.Sampler == DefaultTracingSampler {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Exporter == "" {
		t.Tracing.Exporter = DefaultTracingExporter
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}
