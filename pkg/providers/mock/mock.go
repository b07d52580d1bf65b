// Package mock provides a scriptable in-process provider adapter.
//
// It is used by tests, benchmarks and offline configurations (type "mock").
// Every call is counted so callers can assert how often the upstream was hit.
package mock

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// DefaultModels are served when none are configured.
var DefaultModels = []string{"mock-small", "mock-large"}

// Result is one scripted Complete outcome.
type Result struct {
	Response *providers.CompletionResponse
	Err      error
}

// Provider is a scriptable providers.Provider.
type Provider struct {
	name   string
	models []string

	mu           sync.Mutex
	results      []Result
	completeFn   func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error)
	openErrs     []error
	chunks       []*providers.StreamChunk
	chunkDelay   time.Duration
	streamErr    error
	streamErrAt  int
	latency      time.Duration
	healthFn     func(ctx context.Context) error
	closed       bool
	streamGate   chan struct{}
	defaultReply string

	completeCalls atomic.Int64
	streamCalls   atomic.Int64
	produced      atomic.Int64
	releases      atomic.Int64
	aborts        atomic.Int64
	healthCalls   atomic.Int64
}

// Option configures a mock Provider.
type Option func(*Provider)

// WithModels sets the served models.
func WithModels(models ...string) Option {
	return func(p *Provider) { p.models = models }
}

// WithReply sets the content of the default response.
func WithReply(content string) Option {
	return func(p *Provider) { p.defaultReply = content }
}

// WithResults queues Complete outcomes. The last one repeats.
func WithResults(results ...Result) Option {
	return func(p *Provider) { p.results = results }
}

// WithCompleteFunc replaces Complete's behaviour entirely.
func WithCompleteFunc(fn func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error)) Option {
	return func(p *Provider) { p.completeFn = fn }
}

// WithLatency delays every Complete and StreamComplete call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithStream scripts the chunks emitted by StreamComplete.
func WithStream(delay time.Duration, deltas ...string) Option {
	return func(p *Provider) {
		p.chunkDelay = delay
		p.chunks = TextChunks(deltas...)
	}
}

// WithStreamChunks scripts raw chunks emitted by StreamComplete.
func WithStreamChunks(delay time.Duration, chunks ...*providers.StreamChunk) Option {
	return func(p *Provider) {
		p.chunkDelay = delay
		p.chunks = chunks
	}
}

// WithStreamError fails the stream with err after n chunks.
func WithStreamError(n int, err error) Option {
	return func(p *Provider) {
		p.streamErrAt = n
		p.streamErr = err
	}
}

// WithStreamOpenErrors makes the first StreamComplete calls fail before any chunk.
func WithStreamOpenErrors(errs ...error) Option {
	return func(p *Provider) { p.openErrs = errs }
}

// WithStreamGate blocks each Read until a value is received from gate.
func WithStreamGate(gate chan struct{}) Option {
	return func(p *Provider) { p.streamGate = gate }
}

// WithHealth sets the health probe outcome.
func WithHealth(fn func(ctx context.Context) error) Option {
	return func(p *Provider) { p.healthFn = fn }
}

// New creates a mock provider named name.
func New(name string, opts ...Option) *Provider {
	p := &Provider{
		name:         name,
		models:       DefaultModels,
		defaultReply: "mock response",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewProvider builds a mock from provider configuration.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	opts := []Option{}
	if len(config.Models) > 0 {
		opts = append(opts, WithModels(config.Models...))
	}
	return New(config.Name, opts...), nil
}

// TextChunks builds a chunk sequence whose last chunk finishes with "stop".
func TextChunks(deltas ...string) []*providers.StreamChunk {
	chunks := make([]*providers.StreamChunk, len(deltas))
	for i, d := range deltas {
		chunks[i] = &providers.StreamChunk{ID: "mock-stream", Delta: d}
		if i == 0 {
			chunks[i].Role = providers.RoleAssistant
		}
	}
	if len(chunks) > 0 {
		chunks[len(chunks)-1].FinishReason = providers.FinishReasonStop
	}
	return chunks
}

func (p *Provider) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete returns the next scripted result.
func (p *Provider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	p.completeCalls.Add(1)
	if err := p.wait(ctx, p.latency); err != nil {
		return nil, timeoutOr(p.name, err)
	}

	p.mu.Lock()
	fn := p.completeFn
	var next *Result
	if len(p.results) > 0 {
		r := p.results[0]
		if len(p.results) > 1 {
			p.results = p.results[1:]
		}
		next = &r
	}
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if next != nil {
		if next.Err != nil {
			return nil, next.Err
		}
		if next.Response != nil {
			resp := *next.Response
			return &resp, nil
		}
	}

	return &providers.CompletionResponse{
		ID:           fmt.Sprintf("mock-%d", p.completeCalls.Load()),
		Model:        req.Model,
		Provider:     p.name,
		Role:         providers.RoleAssistant,
		Content:      p.defaultReply,
		FinishReason: providers.FinishReasonStop,
		Usage:        providers.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		Created:      time.Now(),
	}, nil
}

// StreamComplete opens a scripted stream.
func (p *Provider) StreamComplete(ctx context.Context, req *providers.CompletionRequest) (providers.StreamReader, error) {
	p.streamCalls.Add(1)
	if err := p.wait(ctx, p.latency); err != nil {
		return nil, timeoutOr(p.name, err)
	}

	p.mu.Lock()
	if len(p.openErrs) > 0 {
		err := p.openErrs[0]
		p.openErrs = p.openErrs[1:]
		p.mu.Unlock()
		return nil, err
	}
	chunks := p.chunks
	if chunks == nil {
		chunks = TextChunks(strings.Fields(p.defaultReply)...)
	}
	p.mu.Unlock()

	return &reader{p: p, ctx: ctx, chunks: chunks, model: req.Model}, nil
}

// ListModels returns the configured models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	return append([]string(nil), p.models...), nil
}

// HealthCheck runs the scripted probe.
func (p *Provider) HealthCheck(ctx context.Context) providers.HealthStatus {
	p.healthCalls.Add(1)
	start := time.Now()
	var err error
	if p.healthFn != nil {
		err = p.healthFn(ctx)
	}
	return providers.HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		Err:       err,
		CheckedAt: time.Now(),
	}
}

// GetName returns the provider name.
func (p *Provider) GetName() string { return p.name }

// GetType returns "mock".
func (p *Provider) GetType() string { return "mock" }

// Close marks the provider closed.
func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// CompleteCalls counts Complete invocations.
func (p *Provider) CompleteCalls() int64 { return p.completeCalls.Load() }

// StreamCalls counts StreamComplete invocations.
func (p *Provider) StreamCalls() int64 { return p.streamCalls.Load() }

// Produced counts chunks handed to stream consumers.
func (p *Provider) Produced() int64 { return p.produced.Load() }

// Releases counts stream Close calls.
func (p *Provider) Releases() int64 { return p.releases.Load() }

// Aborts counts stream reads that observed cancellation.
func (p *Provider) Aborts() int64 { return p.aborts.Load() }

// HealthCalls counts health probes.
func (p *Provider) HealthCalls() int64 { return p.healthCalls.Load() }

type reader struct {
	p      *Provider
	ctx    context.Context
	chunks []*providers.StreamChunk
	model  string
	pos    int
}

// Read returns the next scripted chunk. The transport context passed to
// StreamComplete and the read context both abort it.
func (r *reader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if r.p.streamErr != nil && r.pos == r.p.streamErrAt {
		return nil, r.p.streamErr
	}
	if r.pos >= len(r.chunks) {
		return nil, io.EOF
	}

	if r.p.streamGate != nil {
		select {
		case <-r.p.streamGate:
		case <-ctx.Done():
			r.p.aborts.Add(1)
			return nil, ctx.Err()
		case <-r.ctx.Done():
			r.p.aborts.Add(1)
			return nil, r.ctx.Err()
		}
	}

	if r.p.chunkDelay > 0 {
		t := time.NewTimer(r.p.chunkDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			r.p.aborts.Add(1)
			return nil, ctx.Err()
		case <-r.ctx.Done():
			r.p.aborts.Add(1)
			return nil, r.ctx.Err()
		}
	}
	if err := r.ctx.Err(); err != nil {
		r.p.aborts.Add(1)
		return nil, err
	}

	c := *r.chunks[r.pos]
	if c.Model == "" {
		c.Model = r.model
	}
	r.pos++
	r.p.produced.Add(1)
	return &c, nil
}

// Close is the release hook.
func (r *reader) Close() error {
	r.p.releases.Add(1)
	return nil
}

func timeoutOr(name string, err error) error {
	if err == context.DeadlineExceeded {
		return &providers.TimeoutError{Provider: name}
	}
	return err
}
