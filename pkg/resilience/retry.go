package resilience

import (
	"context"
	"time"
)

// Default retry settings.
const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 200 * time.Millisecond
	DefaultMaxDelay      = 5 * time.Second
	DefaultJitter        = 0.2
	DefaultLatencyBudget = 30 * time.Second
)

// RetryConfig configures the retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration

	// MaxDelay caps every delay, jitter included
	MaxDelay time.Duration

	// Jitter is the random fraction of the delay added on top, in [0, 1]
	Jitter float64

	// LatencyBudget bounds the total time spent across attempts and delays.
	// Zero means unbounded.
	LatencyBudget time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Jitter > 1 {
		c.Jitter = 1
	}
	return c
}

// Delay returns the wait before retry n (n >= 1). r is a uniform sample in
// [0, 1). With Jitter in [0, 1] the delays never decrease as n grows.
func (c RetryConfig) Delay(n int, r float64) time.Duration {
	if n < 1 {
		n = 1
	}

	d := c.MaxDelay
	if shift := n - 1; shift < 32 {
		if exp := c.BaseDelay << uint(shift); exp > 0 && exp < c.MaxDelay {
			d = exp
		}
	}

	d += time.Duration(c.Jitter * r * float64(d))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
