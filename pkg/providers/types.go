package providers

import (
	"encoding/json"
	"time"
)

// Message represents a single message in a conversation.
// It is provider-agnostic and will be transformed to provider-specific formats.
type Message struct {
	// Role identifies the message sender (system, user, assistant, tool)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`

	// Name is an optional name for the message sender
	Name string `json:"name,omitempty"`

	// ToolCalls contains function/tool calls made by the assistant (for assistant role)
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is used when role is "tool" to reference which tool call this responds to
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall represents a function/tool call request from the model.
type ToolCall struct {
	// Index orders partial tool call deltas within a stream
	Index int `json:"index,omitempty"`

	// ID is a unique identifier for this tool call
	ID string `json:"id,omitempty"`

	// Type is the type of tool call (currently always "function")
	Type string `json:"type,omitempty"`

	// Function contains the function name and arguments
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a specific function invocation.
type FunctionCall struct {
	// Name is the function name to call
	Name string `json:"name,omitempty"`

	// Arguments is a JSON string containing the function arguments.
	// In stream chunks this holds only the fragment emitted by that chunk.
	Arguments string `json:"arguments"`
}

// Tool represents a tool/function definition that the model can call.
type Tool struct {
	// Type is the type of tool (currently always "function")
	Type string `json:"type"`

	// Function contains the function definition
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a callable function.
type FunctionDefinition struct {
	// Name is the function name
	Name string `json:"name"`

	// Description explains what the function does
	Description string `json:"description,omitempty"`

	// Parameters is a JSON Schema object describing the function parameters
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// CacheMode selects how a request interacts with the response cache.
type CacheMode string

const (
	// CacheDefault reads from and writes to the cache.
	CacheDefault CacheMode = ""

	// CacheBypass neither reads nor writes the cache.
	CacheBypass CacheMode = "bypass"

	// CacheRefresh skips the read and replaces any existing entry.
	CacheRefresh CacheMode = "refresh"
)

// CachePolicy controls caching for a single request.
type CachePolicy struct {
	// Mode is the cache interaction mode
	Mode CacheMode `json:"mode,omitempty"`

	// TTL overrides the configured default TTL when positive
	TTL time.Duration `json:"ttl,omitempty"`
}

// CompletionRequest represents a provider-agnostic completion request.
//
// Fields tagged json:"-" are volatile or opaque. They never reach a provider
// wire format and are excluded from the request fingerprint.
type CompletionRequest struct {
	// Provider is the id of the registered adapter to route to.
	// Empty means resolve from Model.
	Provider string `json:"provider"`

	// Model is the model identifier (e.g., "gpt-4", "claude-3-opus-20240229")
	Model string `json:"model"`

	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens limits the completion length
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP is nucleus sampling probability mass (0.0 to 1.0)
	TopP float64 `json:"top_p,omitempty"`

	// Stop sequences end generation when encountered
	Stop []string `json:"stop,omitempty"`

	// Tools available for the model to call
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice controls tool selection ("auto", "none", or a specific tool)
	ToolChoice interface{} `json:"tool_choice,omitempty"`

	// User is an end-user identifier forwarded to the provider
	User string `json:"user,omitempty"`

	// Stream selects a chunked response
	Stream bool `json:"stream"`

	// Timeout bounds a single upstream attempt. Zero uses the provider default.
	Timeout time.Duration `json:"-"`

	// CachePolicy controls cache reads and writes for this request
	CachePolicy CachePolicy `json:"-"`

	// APIKey overrides the configured provider credential for this call
	APIKey string `json:"-"`

	// RequestID correlates logs, spans and metrics for this call
	RequestID string `json:"-"`

	// Metadata carries caller context (caller id, trace ids, timestamps)
	Metadata map[string]string `json:"-"`
}

// Clone returns a deep copy of the request so normalization never mutates
// the caller's value.
func (r *CompletionRequest) Clone() *CompletionRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.Messages != nil {
		c.Messages = make([]Message, len(r.Messages))
		for i, m := range r.Messages {
			c.Messages[i] = m
			if m.ToolCalls != nil {
				c.Messages[i].ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
			}
		}
	}
	if r.Stop != nil {
		c.Stop = append([]string(nil), r.Stop...)
	}
	if r.Tools != nil {
		c.Tools = append([]Tool(nil), r.Tools...)
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// CompletionResponse represents a provider-agnostic completion response.
type CompletionResponse struct {
	// ID is the provider's response identifier
	ID string `json:"id"`

	// Model is the model that produced the response
	Model string `json:"model"`

	// Provider is the adapter id that served the response
	Provider string `json:"provider"`

	// Content is the generated text
	Content string `json:"content"`

	// Role is the role of the generated message (always "assistant")
	Role string `json:"role"`

	// FinishReason explains why generation stopped
	FinishReason string `json:"finish_reason"`

	// ToolCalls requested by the model
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage reports token consumption
	Usage TokenUsage `json:"usage"`

	// Created is when the provider produced the response
	Created time.Time `json:"created"`

	// Raw is the provider-native payload, kept for diagnostics
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Clone returns a deep copy of the response.
func (r *CompletionResponse) Clone() *CompletionResponse {
	if r == nil {
		return nil
	}
	c := *r
	if r.ToolCalls != nil {
		c.ToolCalls = append([]ToolCall(nil), r.ToolCalls...)
	}
	if r.Raw != nil {
		c.Raw = append(json.RawMessage(nil), r.Raw...)
	}
	return &c
}

// StreamChunk is one incremental piece of a streaming response.
type StreamChunk struct {
	// ID is the provider's response identifier
	ID string `json:"id,omitempty"`

	// Model is the model producing the stream
	Model string `json:"model,omitempty"`

	// Role is set on the first chunk of a message
	Role string `json:"role,omitempty"`

	// Delta is the incremental content
	Delta string `json:"delta,omitempty"`

	// ToolCalls carries partial tool call deltas
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// FinishReason is set on the final chunk
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is reported by some providers on the final chunk
	Usage *TokenUsage `json:"usage,omitempty"`

	// Err is set on a terminal chunk with FinishReason "error"
	Err error `json:"-"`
}

// Clone returns a deep copy of the chunk.
func (c *StreamChunk) Clone() *StreamChunk {
	if c == nil {
		return nil
	}
	out := *c
	if c.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), c.ToolCalls...)
	}
	if c.Usage != nil {
		u := *c.Usage
		out.Usage = &u
	}
	return &out
}

// HealthStatus is the result of a single adapter health probe.
type HealthStatus struct {
	// Healthy reports whether the probe succeeded
	Healthy bool `json:"healthy"`

	// Latency is the probe round-trip time
	Latency time.Duration `json:"latency_ms"`

	// Err is the probe failure, if any
	Err error `json:"-"`

	// CheckedAt is when the probe completed
	CheckedAt time.Time `json:"checked_at"`
}

// MarshalJSON reports latency in milliseconds.
func (h HealthStatus) MarshalJSON() ([]byte, error) {
	out := struct {
		Healthy   bool      `json:"healthy"`
		LatencyMs int64     `json:"latency_ms"`
		Error     string    `json:"error,omitempty"`
		CheckedAt time.Time `json:"checked_at"`
	}{
		Healthy:   h.Healthy,
		LatencyMs: h.Latency.Milliseconds(),
		CheckedAt: h.CheckedAt,
	}
	if h.Err != nil {
		out.Error = h.Err.Error()
	}
	return json.Marshal(out)
}

// ProviderConfig configures a single provider adapter.
type ProviderConfig struct {
	// Name is the adapter id used for routing
	Name string

	// Type is the adapter implementation (openai, anthropic, generic)
	Type string

	// BaseURL is the API endpoint
	BaseURL string

	// APIKey is the default credential
	APIKey string

	// Timeout is the default per-attempt timeout
	Timeout time.Duration

	// Models lists the models this provider serves. Empty uses the adapter defaults.
	Models []string

	// DefaultMaxTokens is filled into requests that omit MaxTokens
	DefaultMaxTokens int

	// MaxIdleConns bounds the idle connection pool
	MaxIdleConns int

	// Headers are extra HTTP headers sent with every request
	Headers map[string]string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Normalized finish reasons.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
	FinishReasonError         = "error"
)

// ToolTypeFunction is the only supported tool type.
const ToolTypeFunction = "function"

// ValidRole reports whether role is one of the canonical message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}
