package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"llm-dev-ops/connector-hub/pkg/providers"
)

const (
	// DefaultAnthropicVersion is the API version to use
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultBaseURL is the Anthropic API endpoint
	DefaultBaseURL = "https://api.anthropic.com"
)

// DefaultModels are served when the configuration lists none.
var DefaultModels = []string{
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

// Provider is the Anthropic provider adapter.
// It implements the providers.Provider interface for Anthropic's Messages API.
type Provider struct {
	*providers.HTTPProvider
	models []string
}

// NewProvider creates a new Anthropic provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}
	if config.Type == "" {
		config.Type = "anthropic"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(strings.TrimSuffix(config.BaseURL, "/"), "/v1")

	models := config.Models
	if len(models) == 0 {
		models = DefaultModels
	}

	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		models:       append([]string(nil), models...),
	}, nil
}

func (p *Provider) headers(req *providers.CompletionRequest) map[string]string {
	return map[string]string{
		"x-api-key":         p.APIKey(req),
		"anthropic-version": DefaultAnthropicVersion,
		"Content-Type":      "application/json",
	}
}

func (p *Provider) messagesURL() string {
	return fmt.Sprintf("%s/v1/messages", p.GetConfig().BaseURL)
}

// Complete sends a completion request to Anthropic.
func (p *Provider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	anthropicReq, err := transformRequest(req)
	if err != nil {
		return nil, err
	}
	anthropicReq.Stream = false

	ctx, cancel := p.AttemptContext(ctx, req)
	defer cancel()

	var anthropicResp AnthropicResponse
	raw, err := p.DoJSONRequest(ctx, http.MethodPost, p.messagesURL(), anthropicReq, &anthropicResp, p.headers(req))
	if err != nil {
		return nil, err
	}

	resp, err := transformResponse(&anthropicResp, raw)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Message: err.Error(), Cause: err}
	}
	resp.Provider = p.GetName()
	return resp, nil
}

// StreamComplete opens a streaming messages request.
func (p *Provider) StreamComplete(ctx context.Context, req *providers.CompletionRequest) (providers.StreamReader, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	anthropicReq, err := transformRequest(req)
	if err != nil {
		return nil, err
	}
	anthropicReq.Stream = true

	payload, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := p.headers(req)
	headers["Accept"] = "text/event-stream"

	resp, err := p.DoRequest(ctx, http.MethodPost, p.messagesURL(), payload, headers)
	if err != nil {
		return nil, err
	}

	return newStreamReader(p.GetName(), resp.Body), nil
}

// ListModels returns the configured models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	return append([]string(nil), p.models...), nil
}

// HealthCheck sends a one-token message to the cheapest configured model.
func (p *Provider) HealthCheck(ctx context.Context) providers.HealthStatus {
	model := p.models[len(p.models)-1]
	return p.Probe(ctx, func(ctx context.Context) error {
		_, err := p.Complete(ctx, &providers.CompletionRequest{
			Model:     model,
			Messages:  []providers.Message{{Role: providers.RoleUser, Content: "ping"}},
			MaxTokens: 1,
		})
		return err
	})
}

// validateRequest validates the completion request.
func validateRequest(req *providers.CompletionRequest) error {
	if req == nil {
		return providers.NewValidationError("request", "request cannot be nil")
	}
	if req.Model == "" {
		return providers.NewValidationError("model", "model is required")
	}
	if len(req.Messages) == 0 {
		return providers.NewValidationError("messages", "at least one message is required")
	}
	return nil
}
