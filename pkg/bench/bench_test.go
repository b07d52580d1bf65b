package bench

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTargets_AllRun(t *testing.T) {
	targets := Targets(Options{Iterations: 20, Warmup: 2})

	want := []string{
		TargetProviderResolution,
		TargetRequestTransformation,
		TargetMiddlewarePipeline,
		TargetCacheOperations,
		TargetStreamParsing,
	}
	if len(targets) != len(want) {
		t.Fatalf("Targets() returned %d targets, want %d", len(targets), len(want))
	}

	for i, target := range targets {
		t.Run(target.ID, func(t *testing.T) {
			if target.ID != want[i] {
				t.Fatalf("ID = %q, want %q", target.ID, want[i])
			}
			m, err := target.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if m[MetricIterations] != 20 {
				t.Errorf("iterations = %v, want 20", m[MetricIterations])
			}
			for _, k := range []string{MetricMeanNs, MetricP50Ns, MetricP95Ns, MetricP99Ns, MetricMinNs, MetricMaxNs} {
				if _, ok := m[k]; !ok {
					t.Errorf("metric %s missing", k)
				}
			}
			if m[MetricMinNs] > m[MetricP50Ns] || m[MetricP50Ns] > m[MetricP99Ns] || m[MetricP99Ns] > m[MetricMaxNs] {
				t.Errorf("percentiles out of order: %v", m)
			}
		})
	}
}

func TestByPrefix(t *testing.T) {
	targets := Targets(Options{})

	tests := []struct {
		prefix string
		want   int
	}{
		{prefix: "", want: 5},
		{prefix: "provider", want: 1},
		{prefix: "c", want: 1},
		{prefix: "nothing", want: 0},
	}
	for _, tt := range tests {
		if got := len(ByPrefix(targets, tt.prefix)); got != tt.want {
			t.Errorf("ByPrefix(%q) = %d targets, want %d", tt.prefix, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(100-i) * time.Microsecond
	}

	m := summarize(samples, time.Second)

	tests := []struct {
		metric string
		want   float64
	}{
		{MetricMinNs, 1000},
		{MetricMaxNs, 100000},
		{MetricP50Ns, 50000},
		{MetricP95Ns, 95000},
		{MetricP99Ns, 99000},
		{MetricMeanNs, 50500},
		{MetricIterations, 100},
		{MetricThroughputOps, 100},
	}
	for _, tt := range tests {
		if got := m[tt.metric]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.metric, got, tt.want)
		}
	}
}

func TestMeasure_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := measure(context.Background(), Options{Iterations: 10}, func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("measure() error = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestMeasure_Defaults(t *testing.T) {
	calls := 0
	m, err := measure(context.Background(), Options{Warmup: -1}, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("measure() error = %v", err)
	}
	if calls != DefaultIterations || m[MetricIterations] != DefaultIterations {
		t.Errorf("calls = %d, iterations = %v, want %d", calls, m[MetricIterations], DefaultIterations)
	}
}

func TestRunner_ReportsFailuresWithoutStopping(t *testing.T) {
	targets := []Target{
		{ID: "bad", Run: func(ctx context.Context) (map[string]float64, error) { return nil, errors.New("exploded") }},
		{ID: "good", Run: func(ctx context.Context) (map[string]float64, error) {
			return map[string]float64{MetricMeanNs: 10}, nil
		}},
	}

	results, err := (&Runner{Parallel: 2}).Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].TargetID != "bad" || results[0].Success() || results[0].Error != "exploded" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].TargetID != "good" || !results[1].Success() {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Runner{}).Run(ctx, Targets(Options{Iterations: 5}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	results := []Result{
		{TargetID: "cache-operations", Metrics: map[string]float64{MetricMeanNs: 1500, MetricIterations: 10}, Timestamp: now},
		{TargetID: "stream-parsing", Error: "decode failed", Timestamp: now},
	}

	path, err := writeResults(dir, results, now)
	if err != nil {
		t.Fatalf("writeResults() error = %v", err)
	}
	if want := filepath.Join(dir, "raw", "results-20240501_123045.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	back, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults() error = %v", err)
	}
	if len(back) != 2 || back[0].Metrics[MetricMeanNs] != 1500 || back[1].Error != "decode failed" {
		t.Errorf("ReadResults() = %+v", back)
	}

	if _, err := os.Stat(filepath.Join(dir, "raw", LatestFile)); err != nil {
		t.Errorf("latest file: %v", err)
	}

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		t.Fatalf("ReadFile(summary) error = %v", err)
	}
	for _, want := range []string{"| cache-operations | OK | 1.50 |", "| stream-parsing | FAIL |", "passed: 1, failed: 1", "decode failed"} {
		if !strings.Contains(string(summary), want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
