package providers

import "context"

// Provider is the adapter contract every LLM backend implements.
// Each adapter translates the canonical request into its native wire format
// and translates native responses back into CompletionResponse or StreamChunk.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return immediately when
// the context is cancelled.
//
// Errors must be classified: a *ProviderError carries Retryable, decided from
// the provider's status code. Adapters never retry on their own.
//
// Example usage:
//
//	resp, err := provider.Complete(ctx, &CompletionRequest{
//	    Model: "gpt-4",
//	    Messages: []Message{
//	        {Role: "user", Content: "Hello!"},
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Content)
type Provider interface {
	// Complete sends a completion request and returns the normalized response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// StreamComplete opens a streaming completion. The returned reader yields
	// chunks in provider emission order until io.EOF.
	//
	// Cancelling ctx aborts the underlying transport. The caller must Close
	// the reader exactly once to release it.
	StreamComplete(ctx context.Context, req *CompletionRequest) (StreamReader, error)

	// ListModels returns the model identifiers served by this provider, in order.
	ListModels(ctx context.Context) ([]string, error)

	// HealthCheck probes the provider and reports reachability and latency.
	HealthCheck(ctx context.Context) HealthStatus

	// GetName returns the provider's configured name (e.g., "openai", "anthropic").
	GetName() string

	// GetType returns the provider's type (e.g., "openai", "anthropic", "generic").
	GetType() string

	// Close closes the provider and releases any resources (HTTP connections, etc.).
	// After calling Close, the provider should not be used.
	Close() error
}

// StreamReader is a pull-based view over a provider's native stream.
// It abstracts the underlying SSE or streaming protocol used by the provider.
type StreamReader interface {
	// Read reads the next chunk from the stream.
	// Returns the chunk and nil on success.
	// Returns nil and io.EOF when the stream ends normally.
	// Returns nil and an error if an error occurs.
	Read(ctx context.Context) (*StreamChunk, error)

	// Close closes the stream and releases resources.
	Close() error
}

// ModelDefaulter is implemented by providers that fill in request defaults.
type ModelDefaulter interface {
	// DefaultMaxTokens is the MaxTokens value used when a request omits it.
	DefaultMaxTokens() int
}
