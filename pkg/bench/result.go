package bench

import "time"

// Metric names reported by every target.
const (
	MetricMeanNs        = "mean_ns"
	MetricP50Ns         = "p50_ns"
	MetricP95Ns         = "p95_ns"
	MetricP99Ns         = "p99_ns"
	MetricMinNs         = "min_ns"
	MetricMaxNs         = "max_ns"
	MetricThroughputOps = "throughput_ops"
	MetricIterations    = "iterations"
)

// Result is the outcome of one target run.
type Result struct {
	TargetID  string             `json:"target_id"`
	Metrics   map[string]float64 `json:"metrics"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Success reports whether the target ran to completion.
func (r Result) Success() bool {
	return r.Error == ""
}
