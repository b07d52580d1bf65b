// Package tracing provides OpenTelemetry tracing for a connector hub.
//
// A Tracer is created per hub from the telemetry.tracing section. When
// tracing is enabled, spans are exported over OTLP gRPC with a parent-based
// sampler (always, never or ratio). Nothing is installed globally, so two
// hubs can export to different collectors.
//
// The pipeline opens one span per stage, named pipeline.<stage>, and one
// span per upstream attempt. Provider HTTP requests carry the W3C
// traceparent header, and a request whose metadata holds a traceparent
// continues that trace.
//
// Tests use NewWithProvider with a tracetest.SpanRecorder:
//
//	recorder := tracetest.NewSpanRecorder()
//	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
//	tracer := tracing.NewWithProvider(tp)
package tracing
