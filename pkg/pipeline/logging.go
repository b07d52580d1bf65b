package pipeline

import (
	"context"
	"log/slog"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
)

// Logging logs each call when it enters and leaves the pipeline, and each
// stream when it is released. Request id, provider and model come from the
// context fields set by the router.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Context) error {
			logger.DebugContext(ctx, "request started",
				"stream", c.Streaming(),
				"messages", len(c.Request.Messages),
			)

			err := next(ctx, c)

			attrs := []any{
				"outcome", outcome(err),
				"duration_ms", c.Elapsed().Milliseconds(),
				"cache_hit", c.CacheHit(),
				"attempts", c.Attempts(),
			}
			if err != nil {
				attrs = append(attrs, "error_type", providers.ErrorKind(err), "error", err)
			}
			logger.Log(ctx, level(err), "request completed", attrs...)

			if err == nil && c.Stream != nil {
				// The stream outlives this call; log its end separately.
				c.Stream.OnRelease(func(o stream.Outcome) {
					lvl := slog.LevelInfo
					if o.Status == stream.StatusInterrupted {
						lvl = slog.LevelWarn
					}
					attrs := []any{
						"status", o.Status.String(),
						"chunks", o.Produced,
						"duration_ms", o.Duration.Milliseconds(),
					}
					if o.Err != nil {
						attrs = append(attrs, "error", o.Err)
					}
					logger.Log(context.WithoutCancel(ctx), lvl, "stream released", attrs...)
				})
			}
			return err
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}

// level picks Warn for rejections the caller can act on and Error for
// upstream failures.
func level(err error) slog.Level {
	switch providers.ErrorKind(err) {
	case "":
		return slog.LevelInfo
	case providers.KindValidation, providers.KindRateLimited, providers.KindCircuitOpen,
		providers.KindCanceled, providers.KindClient:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
