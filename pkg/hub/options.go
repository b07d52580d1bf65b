package hub

import (
	"time"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	logger    *logging.Logger
	registry  *prometheus.Registry
	providers []providers.Provider
	backend   cache.Backend
	tracer    *tracing.Tracer
	now       func() time.Time
}

// Option configures a Hub.
type Option func(*options)

// WithLogger sets the logger. By default one is built from
// telemetry.logging.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry registers metrics on registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithProviders registers adapters in addition to those in the
// configuration. They are registered first.
func WithProviders(p ...providers.Provider) Option {
	return func(o *options) { o.providers = append(o.providers, p...) }
}

// WithCacheBackend replaces the backend selected by cache.backend.
// The hub takes ownership and closes it.
func WithCacheBackend(b cache.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithTracer replaces the tracer built from telemetry.tracing. The hub does
// not shut down a tracer it did not create.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithClock replaces time.Now for breakers and health probes.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
