package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Namespace:              "test",
		Subsystem:              "hub",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if collector.Path() != "/metrics" {
		t.Errorf("Path() = %q", collector.Path())
	}
	if !collector.Enabled() {
		t.Error("metrics endpoint should default to enabled")
	}
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector(testConfig(), nil)
	b := NewCollector(testConfig(), nil)

	a.RecordRequest("openai", "gpt-4", StatusSuccess, time.Second, 1)

	if got, err := testutil.GatherAndCount(b.Registry(), "test_hub_requests_total"); err != nil || got != 0 {
		t.Errorf("second collector saw %d series", got)
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRequest("openai", "gpt-4", StatusSuccess, 200*time.Millisecond, 1)
	collector.RecordRequest("openai", "gpt-4", StatusSuccess, 300*time.Millisecond, 2)
	collector.RecordRequest("openai", "gpt-4", StatusCacheHit, time.Millisecond, 0)
	collector.RecordTokens("openai", "gpt-4", 10, 25)

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("openai", "gpt-4", StatusSuccess)); got != 2 {
		t.Errorf("success requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("openai", "gpt-4", StatusCacheHit)); got != 1 {
		t.Errorf("cache hit requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.tokensTotal.WithLabelValues("openai", "gpt-4", "completion")); got != 25 {
		t.Errorf("completion tokens = %v, want 25", got)
	}
	if got := testutil.CollectAndCount(rm.attempts); got != 1 {
		t.Errorf("attempt histograms = %d, want 1", got)
	}
}

func TestCollector_RecordStream(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordStream("anthropic", "completed", 12)
	collector.RecordStream("anthropic", "interrupted", 3)

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.streamChunks.WithLabelValues("anthropic")); got != 15 {
		t.Errorf("chunks = %v, want 15", got)
	}
	if got := testutil.ToFloat64(rm.streamsTotal.WithLabelValues("anthropic", "interrupted")); got != 1 {
		t.Errorf("interrupted streams = %v, want 1", got)
	}
}

func TestCollector_ProviderAndCircuit(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordAttempt("openai", "gpt-4", 100*time.Millisecond, "")
	collector.RecordAttempt("openai", "gpt-4", 2*time.Second, "server_error")
	collector.UpdateProviderHealth("openai", false, 50*time.Millisecond)
	collector.UpdateCircuitState("openai/gpt-4", 1)

	pm := collector.providerMetrics
	if got := testutil.ToFloat64(pm.errors.WithLabelValues("openai", "server_error")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.health.WithLabelValues("openai")); got != 0 {
		t.Errorf("health = %v, want 0", got)
	}
	if got := testutil.ToFloat64(pm.probeLatency.WithLabelValues("openai")); got != 0.05 {
		t.Errorf("probe latency = %v, want 0.05", got)
	}
	if got := testutil.ToFloat64(pm.circuitState.WithLabelValues("openai/gpt-4")); got != 1 {
		t.Errorf("circuit state = %v, want 1", got)
	}
}

func TestCollector_CacheAndRateLimit(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCacheHit("memory")
	collector.RecordCacheMiss("memory")
	collector.RecordCacheMiss("memory")
	collector.RecordCacheError("redis", "get")
	collector.RecordCacheSweep("memory", 4)
	collector.RecordCacheSweep("memory", 0)
	collector.RecordRateLimited("concurrent request limit exceeded")
	collector.RecordRateLimitWait(20 * time.Millisecond)

	cm := collector.cacheMetrics
	if got := testutil.ToFloat64(cm.missesTotal.WithLabelValues("memory")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.errorsTotal.WithLabelValues("redis", "get")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.evictionsTotal.WithLabelValues("memory")); got != 4 {
		t.Errorf("evictions = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.rateLimitMetrics.rejections.WithLabelValues("concurrent request limit exceeded")); got != 1 {
		t.Errorf("rejections = %v, want 1", got)
	}
}

func TestCollector_ProviderStats(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordAttempt("openai", "gpt-4", 50*time.Millisecond, "")
	collector.RecordAttempt("openai", "gpt-3.5-turbo", 300*time.Millisecond, "")
	collector.RecordAttempt("openai", "gpt-4", 2*time.Second, "timeout")
	collector.RecordAttempt("openai", "gpt-4", 3*time.Second, "timeout")

	stats, err := collector.ProviderStats()
	if err != nil {
		t.Fatalf("ProviderStats() error = %v", err)
	}

	s, ok := stats["openai"]
	if !ok {
		t.Fatalf("no stats for openai: %v", stats)
	}
	if s.Attempts != 4 || s.Failures != 2 {
		t.Errorf("attempts/failures = %d/%d, want 4/2", s.Attempts, s.Failures)
	}
	if s.ErrorRate != 0.5 {
		t.Errorf("error rate = %v, want 0.5", s.ErrorRate)
	}
	if s.Latency.Count != 4 {
		t.Errorf("latency count = %d, want 4", s.Latency.Count)
	}

	want := []Bucket{{0.1, 1}, {0.5, 2}, {1.0, 2}, {5.0, 4}}
	if len(s.Latency.Buckets) != len(want) {
		t.Fatalf("buckets = %v, want %v", s.Latency.Buckets, want)
	}
	for i, b := range want {
		if s.Latency.Buckets[i] != b {
			t.Errorf("bucket[%d] = %v, want %v", i, s.Latency.Buckets[i], b)
		}
	}
}

func TestCollector_CacheStats(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	stats, err := collector.CacheStats()
	if err != nil {
		t.Fatalf("CacheStats() error = %v", err)
	}
	if stats.HitRatio != 0 {
		t.Errorf("empty hit ratio = %v", stats.HitRatio)
	}

	collector.RecordCacheHit("memory")
	collector.RecordCacheHit("memory")
	collector.RecordCacheHit("redis")
	collector.RecordCacheMiss("memory")

	stats, _ = collector.CacheStats()
	if stats.Hits != 3 || stats.Misses != 1 || stats.HitRatio != 0.75 {
		t.Errorf("CacheStats() = %+v", stats)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordRequest("mock", "mock-model", StatusSuccess, time.Millisecond, 1)

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `test_hub_requests_total{model="mock-model",provider="mock",status="success"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two label sets to be allowed")
	}
	if !cl.Allow("a") {
		t.Error("existing label set should stay allowed")
	}
	if cl.Allow("c") {
		t.Error("third label set should be rejected")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func TestCollector_ModelCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(1)

	collector.RecordRequest("openai", "gpt-4", StatusSuccess, time.Millisecond, 1)
	collector.RecordRequest("openai", "gpt-4o", StatusSuccess, time.Millisecond, 1)

	if got := testutil.ToFloat64(collector.requestMetrics.requestsTotal.WithLabelValues("openai", "other", StatusSuccess)); got != 1 {
		t.Errorf("overflow model not folded into other: %v", got)
	}
}

func BenchmarkCollector_RecordRequest(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordRequest("openai", "gpt-4", StatusSuccess, time.Second, 1)
	}
}

func BenchmarkCollector_RecordAttempt(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordAttempt("openai", "gpt-4", 100*time.Millisecond, "")
	}
}
