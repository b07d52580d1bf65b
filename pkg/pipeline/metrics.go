package pipeline

import (
	"context"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
)

// Metrics records the latency and outcome of each upstream attempt, token
// usage of completed calls and the end of each stream.
func Metrics(collector *metrics.Collector) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Context) error {
			start := time.Now()
			err := next(ctx, c)
			collector.RecordAttempt(c.ProviderName(), c.Model(), time.Since(start), providers.ErrorKind(err))
			if err != nil {
				return err
			}

			if c.Response != nil {
				collector.RecordTokens(c.ProviderName(), c.Model(),
					c.Response.Usage.PromptTokens, c.Response.Usage.CompletionTokens)
			}
			if c.Stream != nil {
				provider, model := c.ProviderName(), c.Model()
				c.Stream.OnRelease(func(o stream.Outcome) {
					collector.RecordStream(provider, o.Status.String(), o.Produced)
					for i := len(o.Chunks) - 1; i >= 0; i-- {
						if u := o.Chunks[i].Usage; u != nil {
							collector.RecordTokens(provider, model, u.PromptTokens, u.CompletionTokens)
							break
						}
					}
				})
			}
			return nil
		}
	}
}
