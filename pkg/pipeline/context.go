package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
)

// Metadata keys written by the built-in stages.
const (
	MetaCacheHit = "cache_hit"
	MetaShared   = "cache_shared"
	MetaCaller   = "caller"
)

// Context is the per-call record threaded through the pipeline. Request and
// Provider are fixed at entry; Response or Stream is set by the terminal
// handler or by a stage that short-circuits.
type Context struct {
	// Request is the normalized request. Stages must not mutate it.
	Request *providers.CompletionRequest

	// Fingerprint is the cache and lock key of Request
	Fingerprint string

	// Provider is the adapter selected by the router
	Provider providers.Provider

	// Response is the result of a non-streaming call
	Response *providers.CompletionResponse

	// Stream is the result of a streaming call
	Stream *stream.Stream

	// Record asks the terminal handler to keep produced chunks for the
	// stream's release outcome.
	Record bool

	start    time.Time
	attempts atomic.Int32

	mu   sync.Mutex
	meta map[string]any
}

// NewContext creates a context for one call.
func NewContext(req *providers.CompletionRequest, fingerprint string, provider providers.Provider) *Context {
	return &Context{
		Request:     req,
		Fingerprint: fingerprint,
		Provider:    provider,
		start:       time.Now(),
		meta:        make(map[string]any),
	}
}

// Streaming reports whether the request asked for a stream.
func (c *Context) Streaming() bool {
	return c.Request != nil && c.Request.Stream
}

// ProviderName returns the selected provider id.
func (c *Context) ProviderName() string {
	return c.Request.Provider
}

// Model returns the requested model.
func (c *Context) Model() string {
	return c.Request.Model
}

// Start returns when the call entered the pipeline.
func (c *Context) Start() time.Time {
	return c.start
}

// Elapsed returns the time since the call entered the pipeline.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Attempts returns how many upstream attempts were started.
func (c *Context) Attempts() int {
	return int(c.attempts.Load())
}

// BeginAttempt records the start of attempt n and clears any result left
// by a previous attempt.
func (c *Context) BeginAttempt(n int) {
	c.attempts.Store(int32(n))
	c.Response = nil
	c.Stream = nil
}

// Set stores a metadata value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta[key] = value
}

// Get returns a metadata value.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.meta[key]
	return v, ok
}

// Bool returns a boolean metadata value, false when absent.
func (c *Context) Bool(key string) bool {
	v, _ := c.Get(key)
	b, _ := v.(bool)
	return b
}

// Metadata returns a copy of the metadata bag.
func (c *Context) Metadata() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.meta))
	for k, v := range c.meta {
		out[k] = v
	}
	return out
}

// CacheHit reports whether the result was served from the cache, either
// from a stored entry or from a concurrent identical call.
func (c *Context) CacheHit() bool {
	return c.Bool(MetaCacheHit)
}
