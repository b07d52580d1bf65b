package generic

import (
	"context"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/providers/openai"
)

// Provider is a generic OpenAI-compatible provider adapter.
// It supports any provider that implements the OpenAI API format,
// such as Ollama, LM Studio, vLLM, FastChat, etc.
//
// This adapter reuses the OpenAI request/response format but allows
// for custom base URLs and optional API keys.
type Provider struct {
	*openai.Provider
	configured []string
}

// NewProvider creates a new generic OpenAI-compatible provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "generic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "base URL is required for generic provider",
		}
	}

	config.Type = "generic"
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}

	openaiProvider, err := openai.NewProvider(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Provider:   openaiProvider,
		configured: append([]string(nil), config.Models...),
	}, nil
}

// ListModels returns the configured models, or asks the server when none are configured.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	if len(p.configured) > 0 {
		return append([]string(nil), p.configured...), nil
	}
	return p.FetchModels(ctx)
}

// GetType returns "generic" as the provider type.
func (p *Provider) GetType() string {
	return "generic"
}
