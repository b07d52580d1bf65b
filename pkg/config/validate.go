package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "cache.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing, cfg.Providers)...)
	errs = append(errs, validatePipeline(&cfg.Pipeline)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateResilience(&cfg.Resilience)...)
	errs = append(errs, validateRateLimits(&cfg.RateLimits)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Stream.BufferDepth < 1 {
		errs = append(errs, FieldError{
			Field:   "stream.buffer_depth",
			Message: "buffer depth must be at least 1",
		})
	}
	if cfg.Bench.Iterations < 1 {
		errs = append(errs, FieldError{Field: "bench.iterations", Message: "iterations must be at least 1"})
	}
	if cfg.Secrets.CacheTTL < 0 {
		errs = append(errs, FieldError{Field: "secrets.cache_ttl", Message: "cache TTL must be non-negative"})
	}
	if cfg.Bench.Warmup < 0 {
		errs = append(errs, FieldError{Field: "bench.warmup", Message: "warmup must be non-negative"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

var validProviderTypes = map[string]bool{"": true, "openai": true, "anthropic": true, "generic": true, "mock": true}

// validateProviders validates provider configurations.
func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for name, p := range providers {
		prefix := fmt.Sprintf("providers.%s", name)

		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{Field: "providers", Message: "provider id must not be empty"})
		}

		if !validProviderTypes[p.Type] {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid provider type %q: must be 'openai', 'anthropic', 'generic' or 'mock'", p.Type),
			})
		}

		if p.BaseURL != "" {
			u, err := url.Parse(p.BaseURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("invalid URL %q: must be an absolute http(s) URL", p.BaseURL),
				})
			}
		} else if p.Type == "generic" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required for generic providers",
			})
		}

		if p.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be non-negative"})
		}
		if p.DefaultMaxTokens < 0 {
			errs = append(errs, FieldError{Field: prefix + ".default_max_tokens", Message: "default max tokens must be non-negative"})
		}
		for i, m := range p.Models {
			if strings.TrimSpace(m) == "" {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.models[%d]", prefix, i),
					Message: "model id must not be empty",
				})
			}
		}
	}

	return errs
}

func validateRouting(cfg *RoutingConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	switch cfg.ValidationMode {
	case ValidationStrict, ValidationLenient, ValidationDisabled:
	default:
		errs = append(errs, FieldError{
			Field:   "routing.validation_mode",
			Message: fmt.Sprintf("invalid validation mode %q: must be 'strict', 'lenient' or 'disabled'", cfg.ValidationMode),
		})
	}

	if cfg.DefaultProvider != "" {
		if _, ok := providers[cfg.DefaultProvider]; !ok {
			errs = append(errs, FieldError{
				Field:   "routing.default_provider",
				Message: fmt.Sprintf("unknown provider %q", cfg.DefaultProvider),
			})
		}
	}

	return errs
}

// validatePipeline accepts any subset of the canonical stages in canonical
// order.
func validatePipeline(cfg *PipelineConfig) []FieldError {
	var errs []FieldError

	position := make(map[string]int, len(CanonicalStages))
	for i, s := range CanonicalStages {
		position[s] = i
	}

	last := -1
	seen := make(map[string]bool)
	for i, s := range cfg.Stages {
		field := fmt.Sprintf("pipeline.stages[%d]", i)
		pos, ok := position[s]
		switch {
		case !ok:
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("unknown stage %q: must be one of %s", s, strings.Join(CanonicalStages, ", ")),
			})
		case seen[s]:
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("duplicate stage %q", s)})
		case pos < last:
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("stage %q is out of order: stages run as %s", s, strings.Join(CanonicalStages, " -> ")),
			})
		default:
			last = pos
		}
		seen[s] = true
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case CacheBackendMemory:
		if cfg.MaxEntries < 1 {
			errs = append(errs, FieldError{Field: "cache.max_entries", Message: "max entries must be at least 1"})
		}
	case CacheBackendSQLite, CacheBackendBBolt:
		if cfg.Path == "" {
			errs = append(errs, FieldError{
				Field:   "cache.path",
				Message: fmt.Sprintf("path is required for the %s backend", cfg.Backend),
			})
		}
	case CacheBackendRedis:
		if cfg.RedisAddr == "" {
			errs = append(errs, FieldError{Field: "cache.redis_addr", Message: "redis address is required for the redis backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid cache backend %q: must be 'memory', 'sqlite', 'bbolt' or 'redis'", cfg.Backend),
		})
	}

	if cfg.DefaultTTL < 0 {
		errs = append(errs, FieldError{Field: "cache.default_ttl", Message: "default TTL must be non-negative"})
	}

	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "cache.sweep_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.SweepSchedule, err),
		})
	}

	return errs
}

func validateResilience(cfg *ResilienceConfig) []FieldError {
	var errs []FieldError

	if cfg.FailureThreshold < 1 {
		errs = append(errs, FieldError{Field: "resilience.failure_threshold", Message: "failure threshold must be at least 1"})
	}
	if cfg.FailureWindow <= 0 {
		errs = append(errs, FieldError{Field: "resilience.failure_window", Message: "failure window must be positive"})
	}
	if cfg.Cooldown <= 0 {
		errs = append(errs, FieldError{Field: "resilience.cooldown", Message: "cooldown must be positive"})
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{Field: "resilience.max_attempts", Message: "max attempts must be at least 1"})
	}
	if cfg.BaseDelay < 0 {
		errs = append(errs, FieldError{Field: "resilience.base_delay", Message: "base delay must be non-negative"})
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		errs = append(errs, FieldError{Field: "resilience.max_delay", Message: "max delay must not be less than base delay"})
	}
	if cfg.Jitter != nil && (*cfg.Jitter < 0 || *cfg.Jitter > 1) {
		errs = append(errs, FieldError{Field: "resilience.jitter", Message: "jitter must be between 0.0 and 1.0"})
	}
	if cfg.LatencyBudget <= 0 {
		errs = append(errs, FieldError{Field: "resilience.latency_budget", Message: "latency budget must be positive"})
	}

	return errs
}

func validateQuota(prefix string, q Quota) []FieldError {
	var errs []FieldError
	fields := []struct {
		name  string
		value int
	}{
		{"requests_per_second", q.RequestsPerSecond},
		{"requests_per_minute", q.RequestsPerMinute},
		{"requests_per_hour", q.RequestsPerHour},
		{"tokens_per_minute", q.TokensPerMinute},
		{"tokens_per_hour", q.TokensPerHour},
		{"max_concurrent", q.MaxConcurrent},
	}
	for _, f := range fields {
		if f.value < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + "." + f.name,
				Message: "limit must be non-negative",
			})
		}
	}
	return errs
}

func validateRateLimits(cfg *RateLimitsConfig) []FieldError {
	errs := validateQuota("rate_limits.default", cfg.Default)
	for caller, q := range cfg.Callers {
		errs = append(errs, validateQuota("rate_limits.callers."+caller, q)...)
	}
	if cfg.MaxWait < 0 {
		errs = append(errs, FieldError{Field: "rate_limits.max_wait", Message: "max wait must be non-negative"})
	}
	if cfg.MaxCallers < 0 {
		errs = append(errs, FieldError{Field: "rate_limits.max_callers", Message: "max callers must be non-negative"})
	}
	if cfg.IdleTTL < 0 {
		errs = append(errs, FieldError{Field: "rate_limits.idle_ttl", Message: "idle TTL must be non-negative"})
	}
	return errs
}

func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError
	if cfg.Interval <= 0 {
		errs = append(errs, FieldError{Field: "health.interval", Message: "interval must be positive"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "health.timeout", Message: "timeout must be positive"})
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{Field: "health.concurrency", Message: "concurrency must be at least 1"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Exporter != "otlp" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("unsupported exporter %q: only 'otlp' is available", cfg.Tracing.Exporter),
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never' or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
