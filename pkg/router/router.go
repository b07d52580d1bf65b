package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/limits/ratelimit"
	"llm-dev-ops/connector-hub/pkg/pipeline"
	"llm-dev-ops/connector-hub/pkg/providerfactory"
	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"

	"github.com/google/uuid"
)

// Result is the outcome of Submit. Exactly one of Response or Stream is set.
type Result struct {
	// Response is set for non-streaming requests
	Response *providers.CompletionResponse

	// Stream is set for streaming requests. The caller must drain or Close it.
	Stream *stream.Stream

	// RequestID is the id assigned to the call
	RequestID string

	// Provider is the adapter that served the call
	Provider string

	// Fingerprint is the digest of the normalized request
	Fingerprint string

	// CacheHit reports whether the result came from the cache
	CacheHit bool

	// Attempts counts upstream attempts (0 on a cache hit)
	Attempts int

	// Duration is the time spent in Submit
	Duration time.Duration
}

// Router validates and normalizes requests, selects the adapter and runs
// the pipeline. It never retries or caches by itself.
type Router struct {
	registry  *providerfactory.Registry
	pipeline  *pipeline.Pipeline
	cfg       config.RoutingConfig
	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
	newID     func() string
	stats     *atomicStats
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCollector records request-level metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Router) { r.collector = c }
}

// WithTracer sets the tracer for the request span.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Router) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithIDGenerator replaces the request id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Router) { r.newID = fn }
}

// New creates a router over registry and p.
func New(registry *providerfactory.Registry, p *pipeline.Pipeline, cfg config.RoutingConfig, opts ...Option) *Router {
	if cfg.ValidationMode == "" {
		cfg.ValidationMode = config.DefaultValidationMode
	}
	r := &Router{
		registry: registry,
		pipeline: p,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   tracing.Noop(),
		newID:    uuid.NewString,
		stats:    newAtomicStats(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	return r
}

// Prepare validates req and returns its normalized copy with the selected
// adapter. req itself is never modified.
func (r *Router) Prepare(req *providers.CompletionRequest) (*providers.CompletionRequest, providers.Provider, error) {
	if req == nil {
		return nil, nil, &providers.ValidationError{Message: "request is nil"}
	}

	norm := req.Clone()
	if norm.Provider == "" {
		if err := r.resolveProvider(norm); err != nil {
			return nil, nil, err
		}
	}

	adapter, err := r.registry.Get(norm.Provider)
	if err != nil {
		return nil, nil, &providers.ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider %q", norm.Provider),
		}
	}

	normalize(norm, adapter)
	if err := validate(norm, r.cfg.ValidationMode); err != nil {
		return nil, nil, err
	}

	if r.cfg.ValidationMode != config.ValidationDisabled {
		if has, known := r.registry.HasModel(norm.Provider, norm.Model); known && !has {
			r.stats.unknownModels.Add(1)
			if r.cfg.ValidationMode == config.ValidationStrict {
				return nil, nil, &providers.ValidationError{
					Field:   "model",
					Message: fmt.Sprintf("model %q is not served by provider %q", norm.Model, norm.Provider),
				}
			}
			r.logger.Warn("model not in provider model list", "provider", norm.Provider, "model", norm.Model)
		}
	}

	if norm.RequestID == "" {
		norm.RequestID = r.newID()
	}
	return norm, adapter, nil
}

func (r *Router) resolveProvider(req *providers.CompletionRequest) error {
	if name, ok := r.registry.ResolveProvider(req.Model); ok {
		req.Provider = name
		r.stats.resolvedByModel.Add(1)
		return nil
	}
	if r.cfg.DefaultProvider != "" {
		req.Provider = r.cfg.DefaultProvider
		r.stats.defaultProviderUsed.Add(1)
		return nil
	}
	return &providers.ValidationError{
		Field:   "provider",
		Message: fmt.Sprintf("no provider serves model %q and no default provider is configured", req.Model),
	}
}

// Submit runs req through the pipeline. A streaming request returns as soon
// as the stream is open; its chunks are read from Result.Stream.
func (r *Router) Submit(ctx context.Context, req *providers.CompletionRequest) (*Result, error) {
	start := time.Now()
	r.stats.totalRequests.Add(1)

	norm, adapter, err := r.Prepare(req)
	if err != nil {
		r.stats.validationErrors.Add(1)
		r.stats.errors.Add(1)
		if r.collector != nil && req != nil {
			r.collector.RecordRequest(req.Provider, req.Model, metrics.StatusError, time.Since(start), 0)
		}
		return nil, err
	}

	fp, err := cache.Fingerprint(norm)
	if err != nil {
		r.stats.errors.Add(1)
		return nil, &providers.ValidationError{Message: err.Error()}
	}

	ctx = tracing.ExtractFromMap(ctx, norm.Metadata)
	ctx = logging.WithRequestID(ctx, norm.RequestID)
	ctx = logging.WithProvider(ctx, norm.Provider)
	ctx = logging.WithModel(ctx, norm.Model)
	ctx = logging.WithFingerprint(ctx, fp)
	ctx = logging.WithCaller(ctx, ratelimit.CallerKey(norm))

	ctx, span := r.tracer.Start(ctx, "connector_hub.submit")
	defer span.End()
	tracing.SetRequestAttributes(span, norm.RequestID, norm.Provider, norm.Model, norm.Stream)

	c := pipeline.NewContext(norm, fp, adapter)
	err = r.pipeline.Execute(ctx, c)

	r.stats.incrementProvider(norm.Provider)
	if c.CacheHit() {
		r.stats.cacheHits.Add(1)
	}
	if err != nil {
		r.stats.errors.Add(1)
	}

	r.observe(norm, c, err, time.Since(start))
	tracing.SetErrorAttributes(span, err, providers.ErrorKind(err))
	if err != nil {
		return nil, err
	}

	return &Result{
		Response:    c.Response,
		Stream:      c.Stream,
		RequestID:   norm.RequestID,
		Provider:    norm.Provider,
		Fingerprint: fp,
		CacheHit:    c.CacheHit(),
		Attempts:    c.Attempts(),
		Duration:    time.Since(start),
	}, nil
}

func (r *Router) observe(req *providers.CompletionRequest, c *pipeline.Context, err error, d time.Duration) {
	if r.collector == nil {
		return
	}

	var (
		rl   *providers.RateLimitedError
		open *providers.CircuitOpenError
	)
	status := metrics.StatusSuccess
	switch {
	case errors.As(err, &rl):
		status = metrics.StatusRateLimited
	case errors.As(err, &open):
		status = metrics.StatusCircuitOpen
	case err != nil:
		status = metrics.StatusError
	case c.CacheHit():
		status = metrics.StatusCacheHit
	}
	r.collector.RecordRequest(req.Provider, req.Model, status, d, c.Attempts())
}

// Stats returns a snapshot of the routing counters.
func (r *Router) Stats() Stats {
	return r.stats.snapshot()
}

// ResetStats zeroes the routing counters.
func (r *Router) ResetStats() {
	r.stats.reset()
}

// Stages returns the pipeline stage names in execution order.
func (r *Router) Stages() []string {
	return r.pipeline.Stages()
}
