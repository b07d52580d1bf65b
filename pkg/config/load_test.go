package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connector-hub.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
providers:
  openai:
    api_key: "sk-file"
    models: [gpt-4]
  local:
    type: generic
    base_url: "http://localhost:11434/v1"

routing:
  validation_mode: lenient
  default_provider: local

cache:
  backend: sqlite
  path: /tmp/cache.db
  default_ttl: 10m

rate_limits:
  default:
    requests_per_minute: 60
  callers:
    vip:
      requests_per_minute: 600
  max_wait: 250ms
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Providers["openai"].APIKey != "sk-file" {
		t.Errorf("openai api key = %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.Providers["local"].Timeout != DefaultProviderTimeout {
		t.Errorf("local timeout = %v, want default", cfg.Providers["local"].Timeout)
	}
	if cfg.Routing.ValidationMode != ValidationLenient || cfg.Routing.DefaultProvider != "local" {
		t.Errorf("routing = %+v", cfg.Routing)
	}
	if cfg.Cache.Backend != CacheBackendSQLite || cfg.Cache.DefaultTTL != 10*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.RateLimits.Callers["vip"].RequestsPerMinute != 600 || cfg.RateLimits.MaxWait != 250*time.Millisecond {
		t.Errorf("rate limits = %+v", cfg.RateLimits)
	}
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_HUB_KEY", "sk-expanded")
	path := writeConfig(t, `
providers:
  openai:
    api_key: "${TEST_HUB_KEY}"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got := cfg.Providers["openai"].APIKey; got != "sk-expanded" {
		t.Errorf("api key = %q, want sk-expanded", got)
	}
}

func TestLoadConfig_PreservesSecretReferences(t *testing.T) {
	t.Setenv("TEST_HUB_ORG", "acme")
	path := writeConfig(t, `
providers:
  openai:
    api_key: "${secret:openai-key}"
    headers:
      OpenAI-Organization: "${TEST_HUB_ORG}"
secrets:
  dir: /run/secrets
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	p := cfg.Providers["openai"]
	if p.APIKey != "${secret:openai-key}" {
		t.Errorf("api key = %q, want secret reference kept", p.APIKey)
	}
	if got := p.Headers["OpenAI-Organization"]; got != "acme" {
		t.Errorf("org header = %q, want acme", got)
	}
	if cfg.Secrets.Dir != "/run/secrets" || cfg.Secrets.EnvPrefix != DefaultSecretsEnvPrefix {
		t.Errorf("secrets = %+v", cfg.Secrets)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "providers: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
cache:
  backend: floppy
resilience:
  jitter: 2
`)

	_, err := LoadConfig(path)
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError in error chain, got %T: %v", err, err)
	}
	if len(validationErr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %v", validationErr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
providers:
  openai:
    api_key: "file-key"
  my-local:
    type: generic
    base_url: "http://localhost:8000"
telemetry:
  logging:
    level: info
`)

	t.Setenv("CONNECTOR_HUB_PROVIDERS_OPENAI_API_KEY", "env-key-override")
	t.Setenv("MY_LOCAL_API_KEY", "local-key")
	t.Setenv("CONNECTOR_HUB_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("CONNECTOR_HUB_CACHE_DEFAULT_TTL", "90s")
	t.Setenv("CONNECTOR_HUB_STREAM_BUFFER_DEPTH", "8")
	t.Setenv("CONNECTOR_HUB_HEALTH_ENABLED", "false")
	t.Setenv("CONNECTOR_HUB_PIPELINE_STAGES", "logging, metrics")
	t.Setenv("CONNECTOR_HUB_RESILIENCE_MAX_ATTEMPTS", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if got := cfg.Providers["openai"].APIKey; got != "env-key-override" {
		t.Errorf("openai api key = %q", got)
	}
	if got := cfg.Providers["my-local"].APIKey; got != "local-key" {
		t.Errorf("my-local api key = %q, want the <PROVIDER>_API_KEY fallback", got)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Cache.DefaultTTL != 90*time.Second {
		t.Errorf("cache ttl = %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Stream.BufferDepth != 8 {
		t.Errorf("buffer depth = %d", cfg.Stream.BufferDepth)
	}
	if cfg.Health.IsEnabled() {
		t.Error("expected health disabled by env")
	}
	if strings.Join(cfg.Pipeline.Stages, ",") != "logging,metrics" {
		t.Errorf("stages = %v", cfg.Pipeline.Stages)
	}
	if cfg.Resilience.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("invalid env value should be ignored, max attempts = %d", cfg.Resilience.MaxAttempts)
	}
}

func TestLoadConfigWithEnvOverrides_RevalidatesOverrides(t *testing.T) {
	path := writeConfig(t, "{}")
	t.Setenv("CONNECTOR_HUB_ROUTING_VALIDATION_MODE", "paranoid")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error after override")
	}
}
