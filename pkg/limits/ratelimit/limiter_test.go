package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ============================================================================
// Token Bucket Tests
// ============================================================================

func TestTokenBucket_Basic(t *testing.T) {
	bucket := NewTokenBucket(10, 10)

	if !bucket.Take(5) {
		t.Error("Expected to take 5 tokens from full bucket")
	}
	if remaining := bucket.Remaining(); remaining != 5 {
		t.Errorf("Expected 5 remaining, got %d", remaining)
	}
	if !bucket.Take(5) {
		t.Error("Expected to take remaining 5 tokens")
	}
	if bucket.Take(1) {
		t.Error("Expected bucket to be empty")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 10, clock.Now)
	bucket.Take(10)

	clock.Advance(500 * time.Millisecond)
	if remaining := bucket.Remaining(); remaining != 5 {
		t.Errorf("Expected 5 tokens after 500ms, got %d", remaining)
	}

	clock.Advance(time.Hour)
	if remaining := bucket.Remaining(); remaining != 10 {
		t.Errorf("Expected refill to stop at capacity, got %d", remaining)
	}
}

func TestTokenBucket_FractionalRefill(t *testing.T) {
	clock := newFakeClock()
	// one token per minute
	bucket := newTokenBucket(1, 1.0/60.0, clock.Now)
	bucket.Take(1)

	for i := 0; i < 59; i++ {
		clock.Advance(time.Second)
		if bucket.Take(1) {
			t.Fatalf("token available after %ds", i+1)
		}
	}
	clock.Advance(2 * time.Second)
	if !bucket.Take(1) {
		t.Fatal("Expected a token after a minute")
	}
}

func TestTokenBucket_Give(t *testing.T) {
	bucket := NewTokenBucket(3, 0)
	bucket.Take(3)
	bucket.Give(1)
	if remaining := bucket.Remaining(); remaining != 1 {
		t.Errorf("Expected 1 token after Give, got %d", remaining)
	}
	bucket.Give(10)
	if remaining := bucket.Remaining(); remaining != 3 {
		t.Errorf("Give must not exceed capacity, got %d", remaining)
	}
}

func TestTokenBucket_TimeUntilAvailable(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 10, clock.Now)

	if wait := bucket.TimeUntilAvailable(1); wait != 0 {
		t.Errorf("Expected no wait on a full bucket, got %v", wait)
	}

	bucket.Take(10)
	if wait := bucket.TimeUntilAvailable(5); wait != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", wait)
	}
}

func TestTokenBucket_Concurrent(t *testing.T) {
	bucket := NewTokenBucket(1000, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if bucket.Take(1) {
					mu.Lock()
					taken++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if taken != 1000 {
		t.Errorf("Expected exactly 1000 tokens taken, got %d", taken)
	}
}

// ============================================================================
// Sliding Window Tests
// ============================================================================

func newTestWindow(clock *fakeClock, window, bucketSize time.Duration) *SlidingWindow {
	sw := NewSlidingWindow(window, bucketSize)
	sw.now = clock.Now
	return sw
}

func TestSlidingWindow_Basic(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, time.Second)
	sw.Add(100)
	sw.Add(200)

	if sum := sw.Sum(); sum != 300 {
		t.Errorf("Expected sum 300, got %d", sum)
	}
}

func TestSlidingWindow_RollingWindow(t *testing.T) {
	clock := newFakeClock()
	sw := newTestWindow(clock, 10*time.Second, time.Second)

	sw.Add(100)
	clock.Advance(6 * time.Second)
	sw.Add(50)

	if sum := sw.Sum(); sum != 150 {
		t.Errorf("Expected 150 within the window, got %d", sum)
	}

	clock.Advance(5 * time.Second)
	if sum := sw.Sum(); sum != 50 {
		t.Errorf("Expected the first value to age out, got %d", sum)
	}

	clock.Advance(10 * time.Second)
	if sum := sw.Sum(); sum != 0 {
		t.Errorf("Expected an empty window, got %d", sum)
	}
}

func TestSlidingWindow_TimeUntilBelow(t *testing.T) {
	clock := newFakeClock()
	sw := newTestWindow(clock, 10*time.Second, time.Second)

	sw.Add(100)
	clock.Advance(4 * time.Second)
	sw.Add(50)

	tests := []struct {
		name  string
		limit int64
		want  time.Duration
	}{
		{"already below", 200, 0},
		{"first bucket must expire", 60, 6 * time.Second},
		{"both buckets must expire", 10, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sw.TimeUntilBelow(tt.limit); got != tt.want {
				t.Errorf("TimeUntilBelow(%d) = %v, want %v", tt.limit, got, tt.want)
			}
		})
	}
}

func TestSlidingWindow_Reset(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, time.Second)
	sw.Add(100)
	sw.Reset()

	if sum := sw.Sum(); sum != 0 {
		t.Errorf("Expected sum 0 after reset, got %d", sum)
	}
}

func TestSlidingWindow_Concurrent(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				sw.Add(1)
			}
		}()
	}
	wg.Wait()

	if sum := sw.Sum(); sum != 1000 {
		t.Errorf("Expected sum 1000, got %d", sum)
	}
}

// ============================================================================
// Concurrent Limiter Tests
// ============================================================================

func TestConcurrentLimiter_Basic(t *testing.T) {
	limiter := NewConcurrentLimiter(2)

	if !limiter.Acquire() || !limiter.Acquire() {
		t.Fatal("Expected two acquisitions to succeed")
	}
	if limiter.Acquire() {
		t.Error("Expected third acquisition to fail")
	}

	limiter.Release()
	if !limiter.Acquire() {
		t.Error("Expected acquisition after release to succeed")
	}
	if got := limiter.Remaining(); got != 0 {
		t.Errorf("Expected 0 remaining, got %d", got)
	}
}

func TestConcurrentLimiter_ReleaseNeverNegative(t *testing.T) {
	limiter := NewConcurrentLimiter(1)
	limiter.Release()
	limiter.Release()

	if got := limiter.Current(); got != 0 {
		t.Errorf("Expected current 0, got %d", got)
	}
	if !limiter.Acquire() {
		t.Fatal("Expected acquire to succeed")
	}
	if limiter.Acquire() {
		t.Error("Extra releases must not raise the limit")
	}
}

func TestConcurrentLimiter_Concurrent(t *testing.T) {
	limiter := NewConcurrentLimiter(10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	peak, current := int64(0), int64(0)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !limiter.Acquire() {
				return
			}
			mu.Lock()
			current++
			peak = max(peak, current)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			limiter.Release()
		}()
	}
	wg.Wait()

	if peak > 10 {
		t.Errorf("Expected at most 10 concurrent holders, saw %d", peak)
	}
	if got := limiter.Current(); got != 0 {
		t.Errorf("Expected 0 held after all released, got %d", got)
	}
}

// ============================================================================
// Limiter Tests
// ============================================================================

func TestLimiter_RequestLimits(t *testing.T) {
	l := NewLimiter("alice", Config{RequestsPerSecond: 5})

	for i := 0; i < 5; i++ {
		if res := l.CheckRequest(); !res.Allowed {
			t.Fatalf("request %d rejected: %s", i, res.Reason)
		}
	}

	res := l.CheckRequest()
	if res.Allowed {
		t.Fatal("Expected sixth request to be rejected")
	}
	if res.Reason != "requests per second limit exceeded" {
		t.Errorf("Reason = %q", res.Reason)
	}
	if res.RetryAfter <= 0 {
		t.Errorf("Expected a positive retry-after, got %v", res.RetryAfter)
	}
}

func TestLimiter_RejectionRefundsEarlierBuckets(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter("alice", Config{RequestsPerSecond: 10, RequestsPerMinute: 2}, clock.Now)

	for i := 0; i < 2; i++ {
		if res := l.CheckRequest(); !res.Allowed {
			t.Fatalf("request %d rejected", i)
		}
	}
	for i := 0; i < 5; i++ {
		if res := l.CheckRequest(); res.Allowed {
			t.Fatal("Expected per-minute bucket to reject")
		}
	}

	if got := l.Usage().RequestsPerSecondRemaining; got != 8 {
		t.Errorf("rejected requests consumed per-second tokens: remaining %d, want 8", got)
	}
}

func TestLimiter_TokenLimits(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter("alice", Config{TokensPerMinute: 1000}, clock.Now)

	l.RecordTokens(800)
	if res := l.CheckTokens(200); !res.Allowed {
		t.Errorf("Expected 200 more tokens to fit: %s", res.Reason)
	}
	res := l.CheckTokens(300)
	if res.Allowed {
		t.Fatal("Expected 300 more tokens to be rejected")
	}
	if res.Remaining != 200 {
		t.Errorf("Remaining = %d, want 200", res.Remaining)
	}
	if res.RetryAfter != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", res.RetryAfter)
	}

	clock.Advance(61 * time.Second)
	if res := l.CheckTokens(300); !res.Allowed {
		t.Error("Expected usage to age out of the window")
	}
}

func TestLimiter_TryAcquireConcurrency(t *testing.T) {
	l := NewLimiter("alice", Config{MaxConcurrent: 1, RequestsPerMinute: 10})

	release, res := l.TryAcquire()
	if !res.Allowed {
		t.Fatalf("first acquire rejected: %s", res.Reason)
	}

	if _, res := l.TryAcquire(); res.Allowed {
		t.Fatal("Expected second acquire to be rejected")
	} else if res.Reason != "concurrent request limit exceeded" {
		t.Errorf("Reason = %q", res.Reason)
	}
	if got := l.Usage().RequestsPerMinuteRemaining; got != 9 {
		t.Errorf("concurrency rejection consumed a request token: remaining %d, want 9", got)
	}

	release()
	release()
	if got := l.Usage().InFlight; got != 0 {
		t.Errorf("InFlight = %d after release, want 0", got)
	}
	if _, res := l.TryAcquire(); !res.Allowed {
		t.Error("Expected acquire after release to succeed")
	}
}

func TestLimiter_AcquireRejectsBeyondMaxWait(t *testing.T) {
	l := NewLimiter("alice", Config{RequestsPerMinute: 1})

	release, err := l.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()

	_, err = l.Acquire(context.Background(), 50*time.Millisecond)
	var rle *providers.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("Expected RateLimitedError, got %v", err)
	}
	if rle.Caller != "alice" {
		t.Errorf("Caller = %q, want alice", rle.Caller)
	}
	if rle.RetryAfter < 50*time.Second {
		t.Errorf("RetryAfter = %v, want close to a minute", rle.RetryAfter)
	}
	if !errors.Is(err, providers.ErrRateLimited) {
		t.Error("Expected errors.Is(err, ErrRateLimited)")
	}
}

func TestLimiter_AcquireWaitsForQuota(t *testing.T) {
	l := NewLimiter("alice", Config{RequestsPerSecond: 20})
	for i := 0; i < 20; i++ {
		l.CheckRequest()
	}

	start := time.Now()
	release, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected Acquire to wait for a refill, returned after %v", elapsed)
	}
}

func TestLimiter_AcquireHonoursContext(t *testing.T) {
	l := NewLimiter("alice", Config{MaxConcurrent: 1})
	release, _ := l.TryAcquire()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Acquire(ctx, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestLimiter_NoLimits(t *testing.T) {
	l := NewLimiter("alice", Config{})
	if !l.Config().Unlimited() {
		t.Error("Expected empty config to be unlimited")
	}

	for i := 0; i < 1000; i++ {
		release, err := l.Acquire(context.Background(), 0)
		if err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
		release()
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := NewLimiter("alice", Config{RequestsPerSecond: 1, TokensPerMinute: 100})
	l.CheckRequest()
	l.RecordTokens(100)

	l.Reset()

	if res := l.CheckRequest(); !res.Allowed {
		t.Error("Expected request allowed after reset")
	}
	if res := l.CheckTokens(100); !res.Allowed {
		t.Error("Expected tokens allowed after reset")
	}
}

// ============================================================================
// Registry Tests
// ============================================================================

func TestCallerKey(t *testing.T) {
	tests := []struct {
		name string
		req  *providers.CompletionRequest
		want string
	}{
		{"nil request", nil, AnonymousCaller},
		{"empty request", &providers.CompletionRequest{}, AnonymousCaller},
		{"user", &providers.CompletionRequest{User: "u1"}, "u1"},
		{
			"metadata wins over user",
			&providers.CompletionRequest{User: "u1", Metadata: map[string]string{"caller": "team-a"}},
			"team-a",
		},
		{
			"empty metadata caller falls through",
			&providers.CompletionRequest{User: "u1", Metadata: map[string]string{"caller": ""}},
			"u1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CallerKey(tt.req); got != tt.want {
				t.Errorf("CallerKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry_PerCallerQuotas(t *testing.T) {
	r := NewRegistry(
		Config{RequestsPerMinute: 1},
		map[string]Config{"vip": {RequestsPerMinute: 3}},
		0,
	)

	if r.Limiter("alice") != r.Limiter("alice") {
		t.Fatal("Expected the same limiter for the same caller")
	}

	ctx := context.Background()
	for caller, allowed := range map[string]int{"alice": 1, "bob": 1, "vip": 3} {
		for i := 0; i < allowed; i++ {
			if _, err := r.Acquire(ctx, caller); err != nil {
				t.Fatalf("%s request %d rejected: %v", caller, i, err)
			}
		}
		if _, err := r.Acquire(ctx, caller); err == nil {
			t.Errorf("%s: expected rejection after %d requests", caller, allowed)
		}
	}

	usage := r.Usage()
	if len(usage) != 3 || usage[0].Caller != "alice" || usage[2].Caller != "vip" {
		t.Errorf("Usage() = %+v, want alice, bob, vip", usage)
	}
}

func TestRegistry_RecordChargesTokens(t *testing.T) {
	r := NewRegistry(Config{TokensPerMinute: 100}, nil, 0)
	r.Record("alice", 100)

	_, err := r.Acquire(context.Background(), "alice")
	var rle *providers.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("Expected RateLimitedError once the token window is full, got %v", err)
	}
	if rle.Reason != "tokens per minute limit exceeded" {
		t.Errorf("Reason = %q", rle.Reason)
	}
}

func TestRegistry_BoundsTrackedCallers(t *testing.T) {
	r := NewRegistry(Config{RequestsPerMinute: 1}, nil, 0, WithCallerLimit(3, time.Hour))

	for i := 0; i < 50; i++ {
		r.Limiter(fmt.Sprintf("user-%d", i))
	}
	if n := r.Len(); n != 3 {
		t.Errorf("Len() = %d, want 3", n)
	}
	if usage := r.Usage(); len(usage) != 3 || usage[0].Caller != "user-47" {
		t.Errorf("Usage() = %+v, want the three most recent callers", usage)
	}
}

func TestRegistry_DropsIdleCallers(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the idle TTL")
	}
	r := NewRegistry(Config{RequestsPerMinute: 1}, nil, 0, WithCallerLimit(100, 50*time.Millisecond))

	busy := r.Limiter("busy")
	r.Limiter("idle")

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		if r.Limiter("busy") != busy {
			t.Fatal("active caller lost its limiter")
		}
		time.Sleep(10 * time.Millisecond)
	}

	usage := r.Usage()
	if len(usage) != 1 || usage[0].Caller != "busy" {
		t.Errorf("Usage() = %+v, want only busy", usage)
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkTokenBucket_Take(b *testing.B) {
	bucket := NewTokenBucket(int64(b.N)+1, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bucket.Take(1)
	}
}

func BenchmarkSlidingWindow_Add(b *testing.B) {
	sw := NewSlidingWindow(time.Minute, time.Second)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sw.Add(1)
	}
}

func BenchmarkLimiter_Acquire(b *testing.B) {
	l := NewLimiter("bench", Config{MaxConcurrent: 100})
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		release, err := l.Acquire(ctx, 0)
		if err != nil {
			b.Fatal(err)
		}
		release()
	}
}
