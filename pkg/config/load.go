package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SecretRefPrefix marks a ${...} reference as a secret to resolve later
// rather than an environment variable.
const SecretRefPrefix = "secret:"

func expandEnv(name string) string {
	if strings.HasPrefix(name, SecretRefPrefix) {
		return "${" + name + "}"
	}
	return os.Getenv(name)
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONNECTOR_HUB_"

// Default returns a configuration with every default applied and no
// providers.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Parse decodes YAML, expanding ${VAR} references from the environment,
// then applies defaults and validates. ${secret:name} references are left
// in place for the secrets resolver.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.Expand(string(data), expandEnv)), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CONNECTOR_HUB_SECTION_FIELD (e.g., CONNECTOR_HUB_CACHE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies CONNECTOR_HUB_* and <PROVIDER>_API_KEY
// overrides to cfg. It does not validate.
func ApplyEnvOverrides(cfg *Config) {
	applyEnvOverrides(cfg)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst **bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = &b
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Routing overrides
	envString("ROUTING_VALIDATION_MODE", &cfg.Routing.ValidationMode)
	envString("ROUTING_DEFAULT_PROVIDER", &cfg.Routing.DefaultProvider)

	// Pipeline overrides
	if val := os.Getenv(EnvPrefix + "PIPELINE_STAGES"); val != "" {
		var stages []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				stages = append(stages, s)
			}
		}
		cfg.Pipeline.Stages = stages
	}

	// Cache overrides
	envBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	envString("CACHE_BACKEND", &cfg.Cache.Backend)
	envDuration("CACHE_DEFAULT_TTL", &cfg.Cache.DefaultTTL)
	envInt("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	envString("CACHE_PATH", &cfg.Cache.Path)
	envString("CACHE_REDIS_ADDR", &cfg.Cache.RedisAddr)
	envString("CACHE_REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	envString("CACHE_SWEEP_SCHEDULE", &cfg.Cache.SweepSchedule)

	// Resilience overrides
	envInt("RESILIENCE_FAILURE_THRESHOLD", &cfg.Resilience.FailureThreshold)
	envDuration("RESILIENCE_COOLDOWN", &cfg.Resilience.Cooldown)
	envInt("RESILIENCE_MAX_ATTEMPTS", &cfg.Resilience.MaxAttempts)
	envDuration("RESILIENCE_BASE_DELAY", &cfg.Resilience.BaseDelay)
	envDuration("RESILIENCE_MAX_DELAY", &cfg.Resilience.MaxDelay)
	envDuration("RESILIENCE_LATENCY_BUDGET", &cfg.Resilience.LatencyBudget)

	// Stream overrides
	envInt("STREAM_BUFFER_DEPTH", &cfg.Stream.BufferDepth)

	// Rate limit overrides
	envDuration("RATE_LIMITS_MAX_WAIT", &cfg.RateLimits.MaxWait)

	// Health overrides
	envBool("HEALTH_ENABLED", &cfg.Health.Enabled)
	envDuration("HEALTH_INTERVAL", &cfg.Health.Interval)
	envDuration("HEALTH_TIMEOUT", &cfg.Health.Timeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)

	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}
}

// applyProviderEnvOverrides applies environment variable overrides for a
// configured provider. Fields use CONNECTOR_HUB_PROVIDERS_<NAME>_<FIELD>;
// a missing api_key also falls back to <NAME>_API_KEY.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	provider := cfg.Providers[providerName]
	upper := strings.ToUpper(strings.ReplaceAll(providerName, "-", "_"))
	prefix := EnvPrefix + "PROVIDERS_" + upper + "_"

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		provider.APIKey = val
	} else if provider.APIKey == "" {
		provider.APIKey = os.Getenv(upper + "_API_KEY")
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			provider.Timeout = d
		}
	}

	cfg.Providers[providerName] = provider
}
