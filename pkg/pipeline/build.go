package pipeline

import (
	"fmt"
	"log/slog"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/limits/ratelimit"
	"llm-dev-ops/connector-hub/pkg/resilience"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"
	"llm-dev-ops/connector-hub/pkg/tokens"
)

// Deps are the components the built-in stages use. A nil Limits, Cache or
// Collector leaves the corresponding stage out.
type Deps struct {
	Logger     *slog.Logger
	Limits     *ratelimit.Registry
	Cache      *cache.Store
	Controller *resilience.Controller
	Collector  *metrics.Collector
	Tracer     *tracing.Tracer
	Mux        *stream.Multiplexer
	Estimator  tokens.Estimator
}

// Build assembles the built-in stages enabled in cfg, always in the
// canonical order logging, ratelimit, cache, resilience, metrics.
func Build(cfg config.PipelineConfig, deps Deps) (*Pipeline, error) {
	if deps.Mux == nil {
		return nil, fmt.Errorf("pipeline requires a stream multiplexer")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	var stages []Stage
	for _, name := range config.CanonicalStages {
		if !cfg.Enabled(name) {
			continue
		}

		var mw Middleware
		switch name {
		case config.StageLogging:
			mw = Logging(deps.Logger)
		case config.StageRateLimit:
			if deps.Limits != nil {
				mw = RateLimit(deps.Limits, deps.Collector, deps.Estimator)
			}
		case config.StageCache:
			if deps.Cache != nil {
				mw = Cache(deps.Cache, deps.Mux, deps.Logger, deps.Collector)
			}
		case config.StageResilience:
			if deps.Controller != nil {
				mw = Resilience(deps.Controller, deps.Tracer)
			}
		case config.StageMetrics:
			if deps.Collector != nil {
				mw = Metrics(deps.Collector)
			}
		}
		if mw == nil {
			continue
		}
		stages = append(stages, Traced(deps.Tracer, Stage{Name: name, Middleware: mw}))
	}

	return New(Invoke(deps.Mux), stages...)
}
