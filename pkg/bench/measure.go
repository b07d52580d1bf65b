package bench

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Options controls how many times an operation runs.
type Options struct {
	// Iterations is the number of timed runs. Default: DefaultIterations
	Iterations int

	// Warmup is the number of untimed runs before timing starts
	Warmup int
}

// Defaults for Options.
const (
	DefaultIterations = 1000
	DefaultWarmup     = 100
)

func (o Options) withDefaults() Options {
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.Warmup < 0 {
		o.Warmup = 0
	}
	return o
}

// measure runs op Warmup times untimed, then Iterations times timed, and
// summarizes the timed runs. The first error aborts the measurement.
func measure(ctx context.Context, opts Options, op func(ctx context.Context) error) (map[string]float64, error) {
	opts = opts.withDefaults()

	for i := 0; i < opts.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := op(ctx); err != nil {
			return nil, fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}

	samples := make([]time.Duration, opts.Iterations)
	begin := time.Now()
	for i := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := op(ctx); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		samples[i] = time.Since(start)
	}
	return summarize(samples, time.Since(begin)), nil
}

func summarize(samples []time.Duration, elapsed time.Duration) map[string]float64 {
	n := len(samples)
	if n == 0 {
		return map[string]float64{MetricIterations: 0}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	m := map[string]float64{
		MetricMeanNs:     float64(total.Nanoseconds()) / float64(n),
		MetricP50Ns:      float64(percentile(sorted, 50).Nanoseconds()),
		MetricP95Ns:      float64(percentile(sorted, 95).Nanoseconds()),
		MetricP99Ns:      float64(percentile(sorted, 99).Nanoseconds()),
		MetricMinNs:      float64(sorted[0].Nanoseconds()),
		MetricMaxNs:      float64(sorted[n-1].Nanoseconds()),
		MetricIterations: float64(n),
	}
	if elapsed > 0 {
		m[MetricThroughputOps] = float64(n) / elapsed.Seconds()
	}
	return m
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
