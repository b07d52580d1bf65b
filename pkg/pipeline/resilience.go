package pipeline

import (
	"context"
	"strconv"

	"llm-dev-ops/connector-hub/pkg/resilience"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Resilience runs the inner stages under the circuit breaker for the
// call's provider and model, once per attempt. Stages after it therefore
// see every attempt; stages before it see the call once.
func Resilience(controller *resilience.Controller, tracer *tracing.Tracer) Middleware {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Context) error {
			key := resilience.Key(c.ProviderName(), c.Model())

			_, err := controller.Execute(ctx, key, func(ctx context.Context, n int) (*stream.Stream, error) {
				c.BeginAttempt(n)

				ctx, span := tracer.Start(ctx, "attempt "+strconv.Itoa(n))
				defer span.End()
				span.SetAttributes(
					attribute.Int(tracing.AttrAttempt, n),
					attribute.String(tracing.AttrProvider, c.ProviderName()),
					attribute.String(tracing.AttrModel, c.Model()),
				)

				err := next(logging.WithAttempt(ctx, n), c)
				tracing.SetStatus(span, err)
				if err != nil {
					return nil, err
				}
				return c.Stream, nil
			})
			return err
		}
	}
}
