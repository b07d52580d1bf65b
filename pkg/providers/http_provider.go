package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"
)

// Transport defaults for HTTP adapters.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultMaxIdleConns    = 100
	DefaultIdleConnTimeout = 90 * time.Second
	maxErrorBody           = 4096
)

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, timeout handling and status classification.
// It never retries: every failure is returned as a classified error.
//
// Concrete provider implementations (OpenAI, Anthropic, etc.) embed this
// struct and implement the remaining Provider methods.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	logger *slog.Logger
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = DefaultMaxIdleConns
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConns,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	// No client-level timeout: it would also bound stream bodies.
	// Attempts are bounded through their context instead.
	return &HTTPProvider{
		config: config,
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("provider", config.Name),
	}
}

// SetLogger replaces the provider's logger.
func (p *HTTPProvider) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l.With("provider", p.config.Name)
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the provider's type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// DefaultMaxTokens returns the configured MaxTokens default.
func (p *HTTPProvider) DefaultMaxTokens() int {
	return p.config.DefaultMaxTokens
}

// APIKey returns the credential to use for req.
func (p *HTTPProvider) APIKey(req *CompletionRequest) string {
	if req != nil && req.APIKey != "" {
		return req.APIKey
	}
	return p.config.APIKey
}

// AttemptContext bounds ctx by the request timeout or the provider default,
// unless ctx already carries a deadline.
func (p *HTTPProvider) AttemptContext(ctx context.Context, req *CompletionRequest) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	timeout := p.config.Timeout
	if req != nil && req.Timeout > 0 {
		timeout = req.Timeout
	}
	return context.WithTimeout(ctx, timeout)
}

// DoRequest performs a single HTTP request and classifies any failure.
// On success the caller owns resp.Body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range p.config.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.Inject(ctx, req.Header)

	p.logger.Debug("sending request to provider", "method", method, "url", url)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.classifyTransportError(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	return nil, p.StatusError(resp.StatusCode, resp.Header.Get("Retry-After"), errorBody)
}

// StatusError builds a classified ProviderError for a non-2xx response.
func (p *HTTPProvider) StatusError(status int, retryAfter string, body []byte) error {
	perr := &ProviderError{
		Provider:   p.config.Name,
		StatusCode: status,
		Message:    string(body),
		Retryable:  ClassifyStatus(status),
	}
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		perr.RetryAfter = parseRetryAfter(retryAfter)
	}
	if perr.Message == "" {
		perr.Message = http.StatusText(status)
	}
	p.logger.Debug("provider returned error status", "status", status, "retryable", perr.Retryable)
	return perr
}

func (p *HTTPProvider) classifyTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		timeout := p.config.Timeout
		if dl, ok := ctx.Deadline(); ok {
			timeout = time.Until(dl)
			if timeout < 0 {
				timeout = 0
			}
		}
		return &TimeoutError{Provider: p.config.Name, Timeout: timeout}
	default:
		return &ProviderError{
			Provider:  p.config.Name,
			Message:   "transport failure",
			Retryable: true,
			Cause:     err,
		}
	}
}

// DoJSONRequest performs a JSON request and decodes the response into respBody.
// It returns the raw response bytes for diagnostics.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) ([]byte, error) {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.classifyTransportError(ctx, err)
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			raw := string(responseBytes)
			if len(raw) > maxErrorBody {
				raw = raw[:maxErrorBody]
			}
			return nil, &ParseError{
				Provider:    p.config.Name,
				Message:     "failed to unmarshal response",
				RawResponse: raw,
				Cause:       err,
			}
		}
	}

	return responseBytes, nil
}

// Probe times fn and converts its result into a HealthStatus.
func (p *HTTPProvider) Probe(ctx context.Context, fn func(ctx context.Context) error) HealthStatus {
	start := time.Now()
	err := fn(ctx)
	status := HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		Err:       err,
		CheckedAt: time.Now(),
	}
	return status
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	p.logger.Debug("provider closed")
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}
