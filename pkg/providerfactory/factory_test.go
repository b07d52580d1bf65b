package providerfactory

import (
	"errors"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   providers.ProviderConfig
		wantType string
	}{
		{
			name:     "openai",
			config:   providers.ProviderConfig{Name: "openai", Type: "openai", APIKey: "test-key", Timeout: 30 * time.Second},
			wantType: "openai",
		},
		{
			name:     "anthropic",
			config:   providers.ProviderConfig{Name: "anthropic", Type: "anthropic", APIKey: "test-key"},
			wantType: "anthropic",
		},
		{
			name:     "generic",
			config:   providers.ProviderConfig{Name: "ollama", Type: "generic", BaseURL: "http://localhost:11434/v1"},
			wantType: "generic",
		},
		{
			name:     "mock",
			config:   providers.ProviderConfig{Name: "mock", Type: "mock"},
			wantType: "mock",
		},
		{
			name:     "inferred anthropic",
			config:   providers.ProviderConfig{Name: "anthropic", APIKey: "test-key"},
			wantType: "anthropic",
		},
		{
			name:     "inferred generic",
			config:   providers.ProviderConfig{Name: "vllm", BaseURL: "http://localhost:8000/v1"},
			wantType: "generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if err != nil {
				t.Fatalf("NewProvider() failed: %v", err)
			}
			defer provider.Close()

			if provider.GetName() != tt.config.Name {
				t.Errorf("expected provider name %s, got %s", tt.config.Name, provider.GetName())
			}
			if provider.GetType() != tt.wantType {
				t.Errorf("expected provider type %s, got %s", tt.wantType, provider.GetType())
			}
		})
	}
}

func TestNewProvider_UnsupportedType(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "x", Type: "cohere"})

	var configErr *providers.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if configErr.Field != "type" {
		t.Errorf("expected error for field 'type', got %q", configErr.Field)
	}
}

func TestInferProviderType(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"openai", "openai"},
		{"anthropic", "anthropic"},
		{"mock", "mock"},
		{"ollama", "generic"},
		{"lmstudio", "generic"},
		{"unknown-provider", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := inferProviderType(tt.name)
			if result != tt.expected {
				t.Errorf("inferProviderType(%q) = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}
