package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// Limiter enforces one caller's quota across every configured dimension.
//
// Request buckets are checked in order (per second, minute, hour). When a
// later bucket rejects, tokens already taken from earlier buckets are given
// back so a rejected request costs nothing.
type Limiter struct {
	caller string
	config Config

	requestsPerSecond *TokenBucket
	requestsPerMinute *TokenBucket
	requestsPerHour   *TokenBucket

	tokensPerMinute *SlidingWindow
	tokensPerHour   *SlidingWindow

	concurrent *ConcurrentLimiter

	mu sync.Mutex
}

// NewLimiter creates a limiter for caller.
func NewLimiter(caller string, config Config) *Limiter {
	return newLimiter(caller, config, time.Now)
}

func newLimiter(caller string, config Config, now func() time.Time) *Limiter {
	l := &Limiter{
		caller: caller,
		config: config,
	}

	if config.RequestsPerSecond > 0 {
		l.requestsPerSecond = newTokenBucket(
			int64(config.RequestsPerSecond),
			float64(config.RequestsPerSecond),
			now,
		)
	}
	if config.RequestsPerMinute > 0 {
		l.requestsPerMinute = newTokenBucket(
			int64(config.RequestsPerMinute),
			float64(config.RequestsPerMinute)/60.0,
			now,
		)
	}
	if config.RequestsPerHour > 0 {
		l.requestsPerHour = newTokenBucket(
			int64(config.RequestsPerHour),
			float64(config.RequestsPerHour)/3600.0,
			now,
		)
	}

	if config.TokensPerMinute > 0 {
		l.tokensPerMinute = NewSlidingWindow(time.Minute, time.Second)
		l.tokensPerMinute.now = now
	}
	if config.TokensPerHour > 0 {
		l.tokensPerHour = NewSlidingWindow(time.Hour, time.Minute)
		l.tokensPerHour.now = now
	}

	if config.MaxConcurrent > 0 {
		l.concurrent = NewConcurrentLimiter(config.MaxConcurrent)
	}

	return l
}

// Caller returns the key this limiter enforces.
func (l *Limiter) Caller() string {
	return l.caller
}

// Config returns the limiter's quota.
func (l *Limiter) Config() Config {
	return l.config
}

type bucketCheck struct {
	bucket *TokenBucket
	reason string
	limit  int
}

// CheckRequest takes one token from every request bucket, or none.
func (l *Limiter) CheckRequest() *CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	checks := []bucketCheck{
		{l.requestsPerSecond, "requests per second limit exceeded", l.config.RequestsPerSecond},
		{l.requestsPerMinute, "requests per minute limit exceeded", l.config.RequestsPerMinute},
		{l.requestsPerHour, "requests per hour limit exceeded", l.config.RequestsPerHour},
	}

	taken := make([]*TokenBucket, 0, len(checks))
	for _, c := range checks {
		if c.bucket == nil {
			continue
		}
		if !c.bucket.Take(1) {
			for _, b := range taken {
				b.Give(1)
			}
			return &CheckResult{
				Allowed:    false,
				Reason:     c.reason,
				Limit:      int64(c.limit),
				Remaining:  c.bucket.Remaining(),
				RetryAfter: c.bucket.TimeUntilAvailable(1),
			}
		}
		taken = append(taken, c.bucket)
	}

	return &CheckResult{Allowed: true}
}

// CheckTokens reports whether n more tokens fit in the token windows. It
// does not record them; see RecordTokens. CheckTokens(0) rejects once a
// window is full.
func (l *Limiter) CheckTokens(n int64) *CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	windows := []struct {
		window *SlidingWindow
		limit  int
		reason string
	}{
		{l.tokensPerMinute, l.config.TokensPerMinute, "tokens per minute limit exceeded"},
		{l.tokensPerHour, l.config.TokensPerHour, "tokens per hour limit exceeded"},
	}

	for _, w := range windows {
		if w.window == nil {
			continue
		}
		limit := int64(w.limit)
		used := w.window.Sum()
		need := max(n, 1)
		if used+need > limit {
			// A request larger than the limit never fits.
			retry := w.window.Window()
			if need <= limit {
				retry = w.window.TimeUntilBelow(limit - need)
			}
			return &CheckResult{
				Allowed:    false,
				Reason:     w.reason,
				Limit:      limit,
				Remaining:  max(limit-used, 0),
				RetryAfter: retry,
			}
		}
	}

	return &CheckResult{Allowed: true}
}

// RecordTokens charges n tokens of usage against the token windows.
func (l *Limiter) RecordTokens(n int64) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tokensPerMinute != nil {
		l.tokensPerMinute.Add(n)
	}
	if l.tokensPerHour != nil {
		l.tokensPerHour.Add(n)
	}
}

// TryAcquire admits one request if every dimension has room. On success the
// returned release must be called once the call (or its stream) is over.
func (l *Limiter) TryAcquire() (release func(), result *CheckResult) {
	if res := l.CheckTokens(0); !res.Allowed {
		return nil, res
	}

	res := l.CheckRequest()
	if !res.Allowed {
		return nil, res
	}

	if l.concurrent == nil {
		return func() {}, res
	}
	if !l.concurrent.Acquire() {
		l.refundRequest()
		return nil, &CheckResult{
			Allowed:    false,
			Reason:     "concurrent request limit exceeded",
			Limit:      l.concurrent.Limit(),
			Remaining:  0,
			RetryAfter: concurrencyPoll,
		}
	}

	var once sync.Once
	return func() { once.Do(l.concurrent.Release) }, res
}

// concurrencyPoll is how often a waiting caller rechecks for a free slot.
const concurrencyPoll = 10 * time.Millisecond

// Acquire admits one request, waiting up to maxWait for quota. When the
// wait needed exceeds maxWait it returns a *providers.RateLimitedError
// without waiting at all.
func (l *Limiter) Acquire(ctx context.Context, maxWait time.Duration) (func(), error) {
	deadline := time.Now().Add(maxWait)
	for {
		release, res := l.TryAcquire()
		if res.Allowed {
			return release, nil
		}

		remaining := time.Until(deadline)
		if maxWait <= 0 || res.RetryAfter > remaining {
			return nil, &providers.RateLimitedError{
				Caller:     l.caller,
				Reason:     res.Reason,
				RetryAfter: res.RetryAfter,
			}
		}

		wait := max(res.RetryAfter, time.Millisecond)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) refundRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range []*TokenBucket{l.requestsPerSecond, l.requestsPerMinute, l.requestsPerHour} {
		if b != nil {
			b.Give(1)
		}
	}
}

// Usage is a point-in-time view of a limiter's remaining quota.
type Usage struct {
	Caller                     string `json:"caller"`
	RequestsPerSecondRemaining int64  `json:"requests_per_second_remaining,omitempty"`
	RequestsPerMinuteRemaining int64  `json:"requests_per_minute_remaining,omitempty"`
	RequestsPerHourRemaining   int64  `json:"requests_per_hour_remaining,omitempty"`
	TokensLastMinute           int64  `json:"tokens_last_minute,omitempty"`
	TokensLastHour             int64  `json:"tokens_last_hour,omitempty"`
	InFlight                   int64  `json:"in_flight"`
}

// Usage returns the limiter's current usage.
func (l *Limiter) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := Usage{Caller: l.caller}
	if l.requestsPerSecond != nil {
		u.RequestsPerSecondRemaining = l.requestsPerSecond.Remaining()
	}
	if l.requestsPerMinute != nil {
		u.RequestsPerMinuteRemaining = l.requestsPerMinute.Remaining()
	}
	if l.requestsPerHour != nil {
		u.RequestsPerHourRemaining = l.requestsPerHour.Remaining()
	}
	if l.tokensPerMinute != nil {
		u.TokensLastMinute = l.tokensPerMinute.Sum()
	}
	if l.tokensPerHour != nil {
		u.TokensLastHour = l.tokensPerHour.Sum()
	}
	if l.concurrent != nil {
		u.InFlight = l.concurrent.Current()
	}
	return u
}

// Reset restores every dimension to full quota.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, b := range []*TokenBucket{l.requestsPerSecond, l.requestsPerMinute, l.requestsPerHour} {
		if b != nil {
			b.Reset()
		}
	}
	for _, w := range []*SlidingWindow{l.tokensPerMinute, l.tokensPerHour} {
		if w != nil {
			w.Reset()
		}
	}
	if l.concurrent != nil {
		l.concurrent.Reset()
	}
}

// String implements fmt.Stringer.
func (l *Limiter) String() string {
	return fmt.Sprintf("ratelimit.Limiter(%s)", l.caller)
}
