// Package telemetry groups the observability packages of a connector hub.
//
// # Components
//
//   - logging: slog loggers with secret redaction and per-request context fields
//   - metrics: Prometheus collectors registered on a per-hub registry
//   - tracing: OpenTelemetry spans per pipeline stage and upstream attempt
//
// Every hub builds its own logger, collector and tracer from the telemetry
// section of its config. Nothing is registered globally, so several hubs
// can run in one process:
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(ctx)
package telemetry
