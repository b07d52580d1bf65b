package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/providers/mock"
	"llm-dev-ops/connector-hub/pkg/stream"
)

var errUnavailable = &providers.ProviderError{Provider: "mock", StatusCode: 503, Message: "unavailable", Retryable: true}

func newTestController(t *testing.T, cfg Config, delays *[]time.Duration) (*Controller, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	c := NewController(cfg,
		WithClock(clock.Now),
		WithRand(func() float64 { return 0.5 }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			if delays != nil {
				*delays = append(*delays, d)
			}
			clock.Advance(d)
			return ctx.Err()
		}),
	)
	return c, clock
}

func TestController_RetriesThenSucceeds(t *testing.T) {
	var delays []time.Duration
	c, _ := newTestController(t, Config{Retry: RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.5}}, &delays)

	calls := 0
	attempts, err := c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		calls++
		if attempt != calls {
			t.Errorf("expected attempt %d, got %d", calls, attempt)
		}
		if calls <= 2 {
			return nil, errUnavailable
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got %d (%d calls)", attempts, calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected exactly two retries, got %d", len(delays))
	}
	if delays[1] < delays[0] {
		t.Errorf("expected non-decreasing delays, got %v", delays)
	}
	for _, d := range delays {
		if d > time.Second {
			t.Errorf("delay %v exceeds max", d)
		}
	}
	if s := c.Breaker("mock/m").Snapshot(); s.Failures != 0 || s.State != "closed" {
		t.Errorf("expected closed breaker with reset count, got %+v", s)
	}
}

func TestController_NonRetryableNotRetried(t *testing.T) {
	c, _ := newTestController(t, Config{}, nil)

	badRequest := &providers.ProviderError{Provider: "mock", StatusCode: 400, Retryable: false}
	calls := 0
	attempts, err := c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		calls++
		return nil, badRequest
	})
	if calls != 1 || attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, badRequest) {
		t.Errorf("expected the original error unwrapped, got %v", err)
	}
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("non-retryable errors must not be wrapped as exhausted")
	}
	if s := c.Breaker("mock/m").Snapshot(); s.Failures != 0 {
		t.Errorf("client errors must not count as breaker failures, got %d", s.Failures)
	}
}

func TestController_ExhaustionWrapsLastError(t *testing.T) {
	c, _ := newTestController(t, Config{Retry: RetryConfig{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}}, nil)

	attempts, err := c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		return nil, &providers.TimeoutError{Provider: "mock", Timeout: time.Second}
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || exhausted.Elapsed <= 0 {
		t.Errorf("unexpected exhaustion: %+v", exhausted)
	}
	var te *providers.TimeoutError
	if !errors.As(err, &te) {
		t.Error("expected the timeout kind to survive wrapping")
	}
}

func TestController_LatencyBudget(t *testing.T) {
	var delays []time.Duration
	c, _ := newTestController(t, Config{Retry: RetryConfig{
		MaxAttempts:   10,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      time.Second,
		LatencyBudget: 350 * time.Millisecond,
	}}, &delays)

	attempts, err := c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		return nil, errUnavailable
	})

	// 100ms + 200ms fit in the budget, 400ms would not.
	if attempts != 3 || len(delays) != 2 {
		t.Errorf("expected 3 attempts and 2 delays, got %d attempts, delays %v", attempts, delays)
	}
	if !errors.Is(err, providers.ErrProvider) {
		t.Errorf("expected provider error kind, got %v", err)
	}
}

func TestController_RetryAfterHint(t *testing.T) {
	var delays []time.Duration
	c, _ := newTestController(t, Config{Retry: RetryConfig{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}}, &delays)

	limited := &providers.ProviderError{Provider: "mock", StatusCode: 429, Retryable: true, RetryAfter: 500 * time.Millisecond}
	c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		return nil, limited
	})
	if len(delays) != 1 || delays[0] != 500*time.Millisecond {
		t.Errorf("expected the Retry-After hint to set the delay, got %v", delays)
	}
}

func TestController_CircuitOpensAndFailsFast(t *testing.T) {
	c, clock := newTestController(t, Config{
		Breaker: BreakerConfig{FailureThreshold: 5, Cooldown: 10 * time.Second},
		Retry:   RetryConfig{MaxAttempts: 1},
	}, nil)

	p := mock.New("mock", mock.WithResults(mock.Result{Err: errUnavailable}))
	call := func(ctx context.Context, attempt int) (*stream.Stream, error) {
		_, err := p.Complete(ctx, &providers.CompletionRequest{Model: "m"})
		return nil, err
	}

	for i := 0; i < 5; i++ {
		c.Execute(context.Background(), "mock/m", call)
	}
	if p.CompleteCalls() != 5 {
		t.Fatalf("expected 5 adapter calls, got %d", p.CompleteCalls())
	}

	_, err := c.Execute(context.Background(), "mock/m", call)
	if !errors.Is(err, providers.ErrCircuitOpen) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if p.CompleteCalls() != 5 {
		t.Errorf("sixth call must not reach the adapter, got %d calls", p.CompleteCalls())
	}

	clock.Advance(10 * time.Second)
	ok := mock.New("mock")
	_, err = c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		_, err := ok.Complete(ctx, &providers.CompletionRequest{Model: "m"})
		return nil, err
	})
	if err != nil {
		t.Fatalf("expected half-open trial to succeed, got %v", err)
	}
	if c.Breaker("mock/m").State() != StateClosed {
		t.Errorf("expected closed after trial, got %v", c.Breaker("mock/m").State())
	}
}

func TestController_CancelledCallNotRetried(t *testing.T) {
	c, _ := newTestController(t, Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := c.Execute(ctx, "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		calls++
		cancel()
		return nil, ctx.Err()
	})
	if calls != 1 || !errors.Is(err, context.Canceled) {
		t.Errorf("expected single cancelled attempt, got %d calls, %v", calls, err)
	}
}

func TestController_StreamOutcomeSettledOnRelease(t *testing.T) {
	c, _ := newTestController(t, Config{Breaker: BreakerConfig{FailureThreshold: 1}}, nil)
	mux := stream.New(0)
	p := mock.New("mock", mock.WithStream(0, "A", "B"), mock.WithStreamError(1, errors.New("reset")))

	var s *stream.Stream
	attempts, err := c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		opened, err := mux.Open(ctx, func(ctx context.Context) (providers.StreamReader, error) {
			return p.StreamComplete(ctx, &providers.CompletionRequest{})
		})
		s = opened
		return opened, err
	})
	if err != nil || attempts != 1 {
		t.Fatalf("Execute() = %d, %v", attempts, err)
	}

	for {
		if _, err := s.Next(context.Background()); err != nil {
			break
		}
	}
	s.Close()

	if p.StreamCalls() != 1 {
		t.Errorf("a stream must never be retried after it opened, got %d opens", p.StreamCalls())
	}
	if c.Breaker("mock/m").State() != StateOpen {
		t.Errorf("expected interrupted stream to count as a failure")
	}
}

func TestController_StreamOpenRetried(t *testing.T) {
	c, _ := newTestController(t, Config{Retry: RetryConfig{MaxAttempts: 3}}, nil)
	mux := stream.New(0)
	p := mock.New("mock", mock.WithStream(0, "A"), mock.WithStreamOpenErrors(errUnavailable))

	attempts, err := c.Execute(context.Background(), "mock/m", func(ctx context.Context, attempt int) (*stream.Stream, error) {
		return mux.Open(ctx, func(ctx context.Context) (providers.StreamReader, error) {
			return p.StreamComplete(ctx, &providers.CompletionRequest{})
		})
	})
	if err != nil || attempts != 2 {
		t.Errorf("expected open retried once, got %d attempts, %v", attempts, err)
	}
}

func TestController_AdviseAndStates(t *testing.T) {
	c, _ := newTestController(t, Config{}, nil)
	c.Advise("openai", false, 120*time.Millisecond)

	a, ok := c.Advisory("openai")
	if !ok || a.Healthy || a.Latency != 120*time.Millisecond {
		t.Errorf("unexpected advisory: %+v", a)
	}
	if c.Breaker("openai/gpt-4").State() != StateClosed {
		t.Error("advisories must not move breakers")
	}

	c.Breaker("b/m")
	c.Breaker("a/m")
	states := c.States()
	if len(states) != 3 || states[0].Key != "a/m" {
		t.Errorf("expected sorted states, got %+v", states)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"retryable", errUnavailable, OutcomeFailure},
		{"timeout", &providers.TimeoutError{}, OutcomeFailure},
		{"client error", &providers.ProviderError{StatusCode: 400}, OutcomeIgnore},
		{"validation", providers.NewValidationError("model", "unknown"), OutcomeIgnore},
		{"cancelled", context.Canceled, OutcomeIgnore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if got := Key("openai", "gpt-4"); got != "openai/gpt-4" {
		t.Errorf("Key() = %q", got)
	}
}
