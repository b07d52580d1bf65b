package bench

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner executes targets and collects their results.
type Runner struct {
	// Parallel is the number of targets run at once. Timings are only
	// comparable when it is 1. Default: 1
	Parallel int

	// Logger receives one line per finished target
	Logger *slog.Logger
}

// Run executes targets and returns one Result per target, in input order.
// A failing target is reported in its Result and does not stop the others;
// only cancellation of ctx is returned as an error.
func (r *Runner) Run(ctx context.Context, targets []Target) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			metrics, err := t.Run(gctx)
			res := Result{TargetID: t.ID, Metrics: metrics, Timestamp: time.Now().UTC()}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.Error = err.Error()
				logger.Error("benchmark failed", "target", t.ID, "error", err)
			} else {
				logger.Info("benchmark completed",
					"target", t.ID,
					"mean_ns", metrics[MetricMeanNs],
					"p99_ns", metrics[MetricP99Ns],
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
