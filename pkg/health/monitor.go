package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/providers"

	"golang.org/x/sync/errgroup"
)

// ErrProbeTimeout is reported when an adapter does not answer a probe
// within the probe timeout.
var ErrProbeTimeout = errors.New("health probe timeout")

// Source lists the adapters to probe.
type Source interface {
	Providers() []providers.Provider
}

// Advisor receives probe results. The resilience controller implements it.
type Advisor interface {
	Advise(provider string, healthy bool, latency time.Duration)
}

// ProviderHealth is the last known health of one adapter.
type ProviderHealth struct {
	Provider            string        `json:"provider"`
	Healthy             bool          `json:"healthy"`
	Latency             time.Duration `json:"latency"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Probes              int64         `json:"probes"`
	CheckedAt           time.Time     `json:"checked_at"`
}

// Monitor probes every registered adapter on an interval and keeps the
// latest result per adapter. Results are advisory only.
type Monitor struct {
	source   Source
	advisor  Advisor
	observer func(provider string, status providers.HealthStatus)
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	cfg     config.HealthConfig
	results map[string]ProviderHealth

	reset chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithAdvisor forwards every probe result to a.
func WithAdvisor(a Advisor) Option {
	return func(m *Monitor) { m.advisor = a }
}

// WithObserver registers fn to run after every probe, e.g. to export
// metrics.
func WithObserver(fn func(provider string, status providers.HealthStatus)) Option {
	return func(m *Monitor) { m.observer = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a monitor over source. Zero config values fall back to
// the package defaults in config.
func NewMonitor(source Source, cfg config.HealthConfig, opts ...Option) *Monitor {
	m := &Monitor{
		source:  source,
		logger:  slog.Default(),
		now:     time.Now,
		cfg:     withDefaults(cfg),
		results: make(map[string]ProviderHealth),
		reset:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "health")
	return m
}

func withDefaults(cfg config.HealthConfig) config.HealthConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultHealthInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultHealthTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.DefaultHealthConcurrency
	}
	return cfg
}

// Config returns the effective configuration.
func (m *Monitor) Config() config.HealthConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Reconfigure applies a reloaded health section. A running loop picks up
// the new interval immediately; a disabled section pauses probing.
func (m *Monitor) Reconfigure(cfg config.HealthConfig) {
	m.mu.Lock()
	m.cfg = withDefaults(cfg)
	m.mu.Unlock()

	select {
	case m.reset <- struct{}{}:
	default:
	}
}

// Run probes all adapters immediately and then once per interval until ctx
// is done.
func (m *Monitor) Run(ctx context.Context) error {
	cfg := m.Config()
	if cfg.IsEnabled() {
		m.CheckAll(ctx)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.reset:
			cfg = m.Config()
			ticker.Reset(cfg.Interval)
			m.logger.Info("health probing reconfigured", "enabled", cfg.IsEnabled(), "interval", cfg.Interval)
		case <-ticker.C:
			if m.Config().IsEnabled() {
				m.CheckAll(ctx)
			}
		}
	}
}

// CheckAll runs one probe round over every adapter, at most Concurrency at
// a time, and returns the results sorted by provider.
func (m *Monitor) CheckAll(ctx context.Context) []ProviderHealth {
	cfg := m.Config()
	adapters := m.source.Providers()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, p := range adapters {
		g.Go(func() error {
			m.record(p.GetName(), m.probe(gctx, p, cfg.Timeout))
			return nil
		})
	}
	_ = g.Wait()

	out := make([]ProviderHealth, 0, len(adapters))
	m.mu.RLock()
	for _, p := range adapters {
		if h, ok := m.results[p.GetName()]; ok {
			out = append(out, h)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// probe runs a single health check bounded by timeout, even when the
// adapter ignores its context.
func (m *Monitor) probe(ctx context.Context, p providers.Provider, timeout time.Duration) providers.HealthStatus {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := m.now()
	result := make(chan providers.HealthStatus, 1)
	go func() {
		result <- p.HealthCheck(probeCtx)
	}()

	select {
	case status := <-result:
		if status.CheckedAt.IsZero() {
			status.CheckedAt = m.now()
		}
		return status
	case <-probeCtx.Done():
		err := ErrProbeTimeout
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return providers.HealthStatus{
			Healthy:   false,
			Latency:   m.now().Sub(start),
			Err:       err,
			CheckedAt: m.now(),
		}
	}
}

func (m *Monitor) record(name string, status providers.HealthStatus) {
	m.mu.Lock()
	h := m.results[name]
	h.Provider = name
	h.Healthy = status.Healthy
	h.Latency = status.Latency
	h.CheckedAt = status.CheckedAt
	h.Probes++
	if status.Healthy {
		h.ConsecutiveFailures = 0
		h.LastError = ""
	} else {
		h.ConsecutiveFailures++
		if status.Err != nil {
			h.LastError = status.Err.Error()
		} else {
			h.LastError = "unhealthy"
		}
	}
	m.results[name] = h
	m.mu.Unlock()

	if !status.Healthy {
		m.logger.Warn("provider health probe failed",
			"provider", name,
			"error", h.LastError,
			"consecutive_failures", h.ConsecutiveFailures,
		)
	}
	if m.advisor != nil {
		m.advisor.Advise(name, status.Healthy, status.Latency)
	}
	if m.observer != nil {
		m.observer(name, status)
	}
}

// Get returns the last result for provider.
func (m *Monitor) Get(provider string) (ProviderHealth, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.results[provider]
	return h, ok
}

// Snapshot returns the last result of every probed adapter, keyed by
// provider. Adapters never probed are absent.
func (m *Monitor) Snapshot() map[string]ProviderHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]ProviderHealth, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}
