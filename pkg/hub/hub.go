package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/health"
	"llm-dev-ops/connector-hub/pkg/limits/ratelimit"
	"llm-dev-ops/connector-hub/pkg/pipeline"
	"llm-dev-ops/connector-hub/pkg/providerfactory"
	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/resilience"
	"llm-dev-ops/connector-hub/pkg/router"
	"llm-dev-ops/connector-hub/pkg/secrets"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"
	"llm-dev-ops/connector-hub/pkg/tokens"
)

// Hub is one connector hub instance. It owns its adapters, cache, breakers,
// limiters and metrics; nothing is shared between hubs.
type Hub struct {
	cfg    *config.Config
	logger *logging.Logger

	providers  *providerfactory.Registry
	collector  *metrics.Collector
	tracer     *tracing.Tracer
	ownsTracer bool
	store      *cache.Store
	limits     *ratelimit.Registry
	controller *resilience.Controller
	monitor    *health.Monitor
	pipeline   *pipeline.Pipeline
	router     *router.Router
	sweeper    *sweeper

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a hub from cfg, which should already carry defaults (see
// config.Default and config.LoadConfig). Adapters named in cfg.Providers are
// constructed and registered in name order.
func New(cfg *config.Config, opts ...Option) (*Hub, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	h := &Hub{cfg: cfg, logger: o.logger}
	if h.logger == nil {
		l, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		h.logger = l
	}
	logger := h.logger.Slog()

	h.tracer = o.tracer
	if h.tracer == nil {
		t, err := tracing.New(&cfg.Telemetry.Tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
		h.tracer = t
		h.ownsTracer = true
	}

	h.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, o.registry)

	h.providers = providerfactory.NewRegistry(logger)
	for _, p := range o.providers {
		if err := h.providers.Register(p); err != nil {
			return nil, h.abort(fmt.Errorf("failed to register provider: %w", err))
		}
	}
	provCfgs, err := providerConfigs(context.Background(), cfg, secrets.FromConfig(cfg.Secrets, logger))
	if err != nil {
		return nil, h.abort(err)
	}
	if err := h.providers.LoadFromConfig(provCfgs); err != nil {
		return nil, h.abort(err)
	}

	if cfg.Cache.IsEnabled() {
		backend := o.backend
		if backend == nil {
			b, err := openBackend(context.Background(), cfg.Cache)
			if err != nil {
				return nil, h.abort(fmt.Errorf("failed to open cache backend: %w", err))
			}
			backend = b
		}
		h.store = cache.NewStore(backend, cache.WithDefaultTTL(cfg.Cache.DefaultTTL), cache.WithLogger(logger))
		h.sweeper = newSweeper(h.store, h.collector, cfg.Cache.SweepSchedule, logger)
	} else if o.backend != nil {
		o.backend.Close()
	}

	h.limits = ratelimit.NewRegistry(quota(cfg.RateLimits.Default), callerQuotas(cfg.RateLimits.Callers), cfg.RateLimits.MaxWait,
		ratelimit.WithCallerLimit(cfg.RateLimits.MaxCallers, cfg.RateLimits.IdleTTL))

	ctrlOpts := []resilience.Option{
		resilience.WithLogger(logger),
		resilience.WithStateChange(func(key string, from, to resilience.State) {
			h.collector.UpdateCircuitState(key, int(to))
		}),
	}
	if o.now != nil {
		ctrlOpts = append(ctrlOpts, resilience.WithClock(o.now))
	}
	h.controller = resilience.NewController(resilienceConfig(cfg.Resilience), ctrlOpts...)

	monOpts := []health.Option{
		health.WithLogger(logger),
		health.WithAdvisor(h.controller),
		health.WithObserver(func(provider string, status providers.HealthStatus) {
			h.collector.UpdateProviderHealth(provider, status.Healthy, status.Latency)
		}),
	}
	if o.now != nil {
		monOpts = append(monOpts, health.WithClock(o.now))
	}
	h.monitor = health.NewMonitor(h.providers, cfg.Health, monOpts...)

	p, err := pipeline.Build(cfg.Pipeline, pipeline.Deps{
		Logger:     logger,
		Limits:     h.limits,
		Cache:      h.store,
		Controller: h.controller,
		Collector:  h.collector,
		Tracer:     h.tracer,
		Mux:        stream.New(cfg.Stream.BufferDepth),
		Estimator:  tokens.NewSimpleEstimator(nil),
	})
	if err != nil {
		return nil, h.abort(fmt.Errorf("failed to build pipeline: %w", err))
	}
	h.pipeline = p

	h.router = router.New(h.providers, p, cfg.Routing,
		router.WithLogger(logger),
		router.WithCollector(h.collector),
		router.WithTracer(h.tracer),
	)

	logger.Info("hub initialized",
		"providers", h.providers.Names(),
		"stages", p.Stages(),
		"cache_enabled", h.store != nil,
	)
	return h, nil
}

// abort releases whatever New had built before failing.
func (h *Hub) abort(err error) error {
	if h.store != nil {
		h.store.Close()
	}
	if h.providers != nil {
		h.providers.Close()
	}
	if h.ownsTracer {
		h.tracer.Shutdown(context.Background())
	}
	return err
}

// Submit routes req through the pipeline.
func (h *Hub) Submit(ctx context.Context, req *providers.CompletionRequest) (*router.Result, error) {
	return h.router.Submit(ctx, req)
}

// Complete sends req as a non-streaming request.
func (h *Hub) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if req == nil {
		return nil, &providers.ValidationError{Message: "request is nil"}
	}
	r := req.Clone()
	r.Stream = false
	res, err := h.router.Submit(ctx, r)
	if err != nil {
		return nil, err
	}
	return res.Response, nil
}

// Stream sends req as a streaming request. The caller must drain or Close
// the returned stream.
func (h *Hub) Stream(ctx context.Context, req *providers.CompletionRequest) (*stream.Stream, error) {
	if req == nil {
		return nil, &providers.ValidationError{Message: "request is nil"}
	}
	r := req.Clone()
	r.Stream = true
	res, err := h.router.Submit(ctx, r)
	if err != nil {
		return nil, err
	}
	return res.Stream, nil
}

// Models returns the known model list of every provider. A provider whose
// list is unknown maps to an empty slice.
func (h *Hub) Models() map[string][]string {
	out := make(map[string][]string, h.providers.Len())
	for _, name := range h.providers.Names() {
		models, err := h.providers.Models(name)
		if err != nil {
			continue
		}
		out[name] = models
	}
	return out
}

// RefreshModels re-lists models from every provider.
func (h *Hub) RefreshModels(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, h.providers.Len())
	var errs []error
	for _, name := range h.providers.Names() {
		models, err := h.providers.RefreshModels(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		out[name] = models
	}
	return out, errors.Join(errs...)
}

// Start runs the health monitor and the cache sweeper in the background
// until ctx is cancelled or Close is called.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("hub is closed")
	}
	if h.started {
		return fmt.Errorf("hub already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	if h.sweeper != nil {
		if err := h.sweeper.Start(ctx); err != nil {
			cancel()
			return err
		}
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Error("health monitor stopped", "error", err)
		}
	}()

	h.started = true
	h.cancel = cancel
	h.logger.Info("hub started", "health_enabled", h.cfg.Health.IsEnabled())
	return nil
}

// CheckHealth probes every provider once.
func (h *Hub) CheckHealth(ctx context.Context) []health.ProviderHealth {
	return h.monitor.CheckAll(ctx)
}

// Health returns the health monitor.
func (h *Hub) Health() *health.Monitor {
	return h.monitor
}

// Registry returns the adapter registry.
func (h *Hub) Registry() *providerfactory.Registry {
	return h.providers
}

// Metrics returns the metrics collector.
func (h *Hub) Metrics() *metrics.Collector {
	return h.collector
}

// Tracer returns the hub's tracer.
func (h *Hub) Tracer() *tracing.Tracer {
	return h.tracer
}

// Logger returns the hub's logger.
func (h *Hub) Logger() *logging.Logger {
	return h.logger
}

// Router returns the request router.
func (h *Hub) Router() *router.Router {
	return h.router
}

// Config returns the configuration the hub was built from.
func (h *Hub) Config() *config.Config {
	return h.cfg
}

// Close stops background work and releases adapters, the cache backend and
// the tracer. It is safe to call more than once.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if h.sweeper != nil {
		h.sweeper.Stop()
	}
	h.wg.Wait()

	var errs []error
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := h.providers.Close(); err != nil {
		errs = append(errs, fmt.Errorf("providers: %w", err))
	}
	if h.ownsTracer {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}

	h.logger.Info("hub closed")
	return errors.Join(errs...)
}

// providerConfigs converts the configured providers, resolving any
// ${secret:name} references in credentials and headers.
func providerConfigs(ctx context.Context, cfg *config.Config, resolver *secrets.Resolver) ([]providers.ProviderConfig, error) {
	out := make([]providers.ProviderConfig, 0, len(cfg.Providers))
	for _, name := range cfg.ProviderNames() {
		p := cfg.Providers[name]

		apiKey, err := resolver.Resolve(ctx, p.APIKey)
		if err != nil {
			return nil, fmt.Errorf("provider %s: api_key: %w", name, err)
		}
		var headers map[string]string
		if p.Headers != nil {
			headers = make(map[string]string, len(p.Headers))
			for k, v := range p.Headers {
				resolved, err := resolver.Resolve(ctx, v)
				if err != nil {
					return nil, fmt.Errorf("provider %s: header %s: %w", name, k, err)
				}
				headers[k] = resolved
			}
		}

		out = append(out, providers.ProviderConfig{
			Name:             name,
			Type:             p.Type,
			BaseURL:          p.BaseURL,
			APIKey:           apiKey,
			Timeout:          p.Timeout,
			Models:           p.Models,
			DefaultMaxTokens: p.DefaultMaxTokens,
			MaxIdleConns:     p.MaxIdleConns,
			Headers:          headers,
		})
	}
	return out, nil
}

func quota(q config.Quota) ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: q.RequestsPerSecond,
		RequestsPerMinute: q.RequestsPerMinute,
		RequestsPerHour:   q.RequestsPerHour,
		TokensPerMinute:   q.TokensPerMinute,
		TokensPerHour:     q.TokensPerHour,
		MaxConcurrent:     q.MaxConcurrent,
	}
}

func callerQuotas(callers map[string]config.Quota) map[string]ratelimit.Config {
	out := make(map[string]ratelimit.Config, len(callers))
	for k, q := range callers {
		out[k] = quota(q)
	}
	return out
}

func resilienceConfig(r config.ResilienceConfig) resilience.Config {
	jitter := config.DefaultJitter
	if r.Jitter != nil {
		jitter = *r.Jitter
	}
	return resilience.Config{
		Breaker: resilience.BreakerConfig{
			FailureThreshold: r.FailureThreshold,
			FailureWindow:    r.FailureWindow,
			Cooldown:         r.Cooldown,
		},
		Retry: resilience.RetryConfig{
			MaxAttempts:   r.MaxAttempts,
			BaseDelay:     r.BaseDelay,
			MaxDelay:      r.MaxDelay,
			Jitter:        jitter,
			LatencyBudget: r.LatencyBudget,
		},
	}
}
