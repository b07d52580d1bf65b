package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"llm-dev-ops/connector-hub/pkg/limits/ratelimit"
	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
	"llm-dev-ops/connector-hub/pkg/telemetry/metrics"
	"llm-dev-ops/connector-hub/pkg/tokens"
)

// RateLimit admits the call against the caller's quota before any upstream
// work. The concurrency slot is held until the call returns or, for
// streams, until the stream is released. Token usage is charged afterwards;
// when the provider reports none and estimator is non-nil, an estimate is
// charged instead.
func RateLimit(limits *ratelimit.Registry, collector *metrics.Collector, estimator tokens.Estimator) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Context) error {
			caller := ratelimit.CallerKey(c.Request)
			c.Set(MetaCaller, caller)

			start := time.Now()
			release, err := limits.Acquire(ctx, caller)
			if collector != nil {
				collector.RecordRateLimitWait(time.Since(start))
			}
			if err != nil {
				var rl *providers.RateLimitedError
				if collector != nil && errors.As(err, &rl) {
					collector.RecordRateLimited(rl.Reason)
				}
				return err
			}

			err = next(ctx, c)
			if err != nil {
				release()
				return err
			}

			if c.Stream != nil {
				req := c.Request
				c.Stream.OnRelease(func(o stream.Outcome) {
					release()
					if n := streamTokens(estimator, req, o); n > 0 {
						limits.Record(caller, n)
					}
				})
				return nil
			}

			release()
			if c.Response != nil && !c.CacheHit() {
				usage := tokens.Usage(estimator, c.Request, c.Response.Content, c.Response.Usage)
				limits.Record(caller, int64(usage.TotalTokens))
			}
			return nil
		}
	}
}

// streamTokens returns the usage reported by a stream, or an estimate from
// the request and any recorded deltas.
func streamTokens(estimator tokens.Estimator, req *providers.CompletionRequest, o stream.Outcome) int64 {
	var content strings.Builder
	for i := len(o.Chunks) - 1; i >= 0; i-- {
		if u := o.Chunks[i].Usage; u != nil && u.TotalTokens > 0 {
			return int64(u.TotalTokens)
		}
	}
	for _, chunk := range o.Chunks {
		content.WriteString(chunk.Delta)
	}
	return int64(tokens.Usage(estimator, req, content.String(), providers.TokenUsage{}).TotalTokens)
}
