package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
)

// Config configures a Controller.
type Config struct {
	Breaker BreakerConfig
	Retry   RetryConfig
}

// Advisory is the latest out-of-band health signal for a provider.
// It is informational and never moves a breaker.
type Advisory struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Attempt performs one call. A streaming attempt returns the opened stream;
// its outcome is then settled when the stream is released.
type Attempt func(ctx context.Context, attempt int) (*stream.Stream, error)

// Controller owns the breakers for one hub and runs the retry loop.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	rand     func() float64
	onChange func(key string, from, to State)
	onRetry  func(key string, attempt int, delay time.Duration, err error)

	mu         sync.Mutex
	breakers   map[string]*Breaker
	advisories map[string]Advisory
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now for breakers created afterwards.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSleep replaces the backoff wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(c *Controller) { c.rand = fn }
}

// WithStateChange registers a callback for breaker transitions. It runs
// while the breaker is locked and must not call back into it.
func WithStateChange(fn func(key string, from, to State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithRetryHook registers a callback invoked before each retry delay.
func WithRetryHook(fn func(key string, attempt int, delay time.Duration, err error)) Option {
	return func(c *Controller) { c.onRetry = fn }
}

// NewController creates a controller.
func NewController(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:        Config{Breaker: cfg.Breaker.withDefaults(), Retry: cfg.Retry.withDefaults()},
		logger:     slog.Default(),
		now:        time.Now,
		sleep:      sleep,
		rand:       rand.Float64,
		breakers:   make(map[string]*Breaker),
		advisories: make(map[string]Advisory),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "resilience")
	return c
}

// Key builds the breaker key for a provider and model.
func Key(provider, model string) string {
	return provider + "/" + model
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Breaker returns the breaker for key, creating it on first use.
func (c *Controller) Breaker(key string) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.breakers[key]
	if !ok {
		b = NewBreaker(key, c.cfg.Breaker)
		b.now = c.now
		b.onChange = c.onChange
		c.breakers[key] = b
	}
	return b
}

// Execute runs fn under the breaker for key, retrying retryable failures.
// It returns the number of attempts made and the final error.
func (c *Controller) Execute(ctx context.Context, key string, fn Attempt) (int, error) {
	cfg := c.cfg.Retry
	breaker := c.Breaker(key)
	start := c.now()

	var lastErr error
	attempt := 0
	for attempt < cfg.MaxAttempts {
		done, err := breaker.Allow()
		if err != nil {
			return attempt, err
		}

		attempt++
		s, err := fn(ctx, attempt)
		if err == nil {
			if s != nil {
				s.OnRelease(func(o stream.Outcome) { done(StreamOutcome(o)) })
			} else {
				done(OutcomeSuccess)
			}
			return attempt, nil
		}

		done(Classify(err))
		lastErr = err

		if !providers.IsRetryable(err) || ctx.Err() != nil {
			return attempt, err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay(attempt, c.rand())
		if hint := providers.RetryAfterHint(err); hint > delay {
			delay = min(hint, cfg.MaxDelay)
		}
		if cfg.LatencyBudget > 0 && c.now().Sub(start)+delay > cfg.LatencyBudget {
			c.logger.DebugContext(ctx, "latency budget exhausted", "key", key, "attempt", attempt)
			break
		}

		c.logger.DebugContext(ctx, "retrying call", "key", key, "attempt", attempt, "delay", delay, "error", err)
		if c.onRetry != nil {
			c.onRetry(key, attempt, delay, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}

	return attempt, &RetryExhaustedError{Attempts: attempt, Elapsed: c.now().Sub(start), Err: lastErr}
}

// Classify maps a call error to a breaker outcome. Only errors the adapter
// marked retryable count as failures; caller cancellations and request
// rejections give no verdict.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return OutcomeIgnore
	case providers.IsRetryable(err):
		return OutcomeFailure
	default:
		return OutcomeIgnore
	}
}

// StreamOutcome maps how a stream ended to a breaker outcome.
func StreamOutcome(o stream.Outcome) Outcome {
	switch o.Status {
	case stream.StatusCompleted:
		return OutcomeSuccess
	case stream.StatusInterrupted:
		return OutcomeFailure
	default:
		return OutcomeIgnore
	}
}

// Advise records a health probe result for provider.
func (c *Controller) Advise(provider string, healthy bool, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advisories[provider] = Advisory{Healthy: healthy, Latency: latency, CheckedAt: c.now()}
}

// Advisory returns the latest health signal for provider.
func (c *Controller) Advisory(provider string) (Advisory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.advisories[provider]
	return a, ok
}

// States returns a snapshot of every breaker, sorted by key.
func (c *Controller) States() []CircuitState {
	c.mu.Lock()
	breakers := make([]*Breaker, 0, len(c.breakers))
	for _, b := range c.breakers {
		breakers = append(breakers, b)
	}
	c.mu.Unlock()

	states := make([]CircuitState, 0, len(breakers))
	for _, b := range breakers {
		states = append(states, b.Snapshot())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })
	return states
}
