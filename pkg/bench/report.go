package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Output layout under the results directory.
const (
	RawDir      = "raw"
	SummaryFile = "summary.md"
	LatestFile  = "results-latest.json"
)

// WriteResults writes results as raw/results-<timestamp>.json, a copy at
// raw/results-latest.json and a Markdown summary at summary.md, creating dir
// as needed. It returns the path of the timestamped file.
func WriteResults(dir string, results []Result) (string, error) {
	return writeResults(dir, results, time.Now().UTC())
}

func writeResults(dir string, results []Result, now time.Time) (string, error) {
	raw := filepath.Join(dir, RawDir)
	if err := os.MkdirAll(raw, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	path := filepath.Join(raw, "results-"+now.Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(raw, LatestFile), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}

	summary := Summary(results, now)
	if err := os.WriteFile(filepath.Join(dir, SummaryFile), []byte(summary), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// ReadResults loads a results file written by WriteResults.
func ReadResults(path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return results, nil
}

// Summary renders results as a Markdown report.
func Summary(results []Result, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Connector Hub Benchmark Results\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))

	passed := 0
	for _, r := range results {
		if r.Success() {
			passed++
		}
	}
	fmt.Fprintf(&b, "Targets: %d, passed: %d, failed: %d\n\n", len(results), passed, len(results)-passed)

	b.WriteString("| Target | Status | Mean (µs) | p50 (µs) | p95 (µs) | p99 (µs) | Throughput (ops/s) | Iterations |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		if !r.Success() {
			fmt.Fprintf(&b, "| %s | FAIL | - | - | - | - | - | - |\n", r.TargetID)
			continue
		}
		fmt.Fprintf(&b, "| %s | OK | %.2f | %.2f | %.2f | %.2f | %.0f | %.0f |\n",
			r.TargetID,
			r.Metrics[MetricMeanNs]/1e3,
			r.Metrics[MetricP50Ns]/1e3,
			r.Metrics[MetricP95Ns]/1e3,
			r.Metrics[MetricP99Ns]/1e3,
			r.Metrics[MetricThroughputOps],
			r.Metrics[MetricIterations],
		)
	}

	var failures []Result
	for _, r := range results {
		if !r.Success() {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, r := range failures {
			fmt.Fprintf(&b, "- `%s`: %s\n", r.TargetID, r.Error)
		}
	}
	return b.String()
}
