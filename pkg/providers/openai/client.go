package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModels are served when the configuration lists none.
var DefaultModels = []string{"gpt-4", "gpt-4-turbo", "gpt-3.5-turbo"}

// Provider implements providers.Provider for OpenAI's chat completions API.
type Provider struct {
	*providers.HTTPProvider
	models []string
}

// NewProvider creates an OpenAI adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Type == "" {
		config.Type = "openai"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

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
	h := map[string]string{"Content-Type": "application/json"}
	if key := p.APIKey(req); key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}

func (p *Provider) url(path string) string {
	return p.GetConfig().BaseURL + path
}

// Complete sends a chat completion request.
func (p *Provider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := p.AttemptContext(ctx, req)
	defer cancel()

	body := transformRequest(req)
	body.Stream = false
	body.StreamOptions = nil

	var resp OpenAIResponse
	raw, err := p.DoJSONRequest(ctx, http.MethodPost, p.url("/chat/completions"), body, &resp, p.headers(req))
	if err != nil {
		return nil, err
	}

	result, err := transformResponse(&resp, raw)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Message: err.Error(), Cause: err}
	}
	result.Provider = p.GetName()
	return result, nil
}

// StreamComplete opens a chat completion stream.
// The returned reader owns the response body until closed.
func (p *Provider) StreamComplete(ctx context.Context, req *providers.CompletionRequest) (providers.StreamReader, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	body := transformRequest(req)
	body.Stream = true

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := p.headers(req)
	headers["Accept"] = "text/event-stream"

	resp, err := p.DoRequest(ctx, http.MethodPost, p.url("/chat/completions"), payload, headers)
	if err != nil {
		return nil, err
	}

	return newStreamReader(p.GetName(), resp.Body), nil
}

// ListModels returns the configured models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	return append([]string(nil), p.models...), nil
}

// FetchModels queries GET /models on the upstream.
func (p *Provider) FetchModels(ctx context.Context) ([]string, error) {
	var list OpenAIModelList
	if _, err := p.DoJSONRequest(ctx, http.MethodGet, p.url("/models"), nil, &list, p.headers(nil)); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// HealthCheck probes GET /models.
func (p *Provider) HealthCheck(ctx context.Context) providers.HealthStatus {
	return p.Probe(ctx, func(ctx context.Context) error {
		_, err := p.FetchModels(ctx)
		return err
	})
}

// validateRequest checks the fields OpenAI requires.
func validateRequest(req *providers.CompletionRequest) error {
	if req == nil {
		return providers.NewValidationError("request", "must not be nil")
	}
	if req.Model == "" {
		return providers.NewValidationError("model", "is required")
	}
	if len(req.Messages) == 0 {
		return providers.NewValidationError("messages", "at least one message is required")
	}
	return nil
}
