// Package ratelimit enforces per-caller request quotas before any upstream
// work is done.
//
// # Primitives
//
//   - TokenBucket: request rate with bursts up to capacity
//   - SlidingWindow: token usage over a rolling minute or hour
//   - ConcurrentLimiter: in-flight calls, streams included
//
// # Limiter
//
// A Limiter combines the primitives for one caller. Acquire admits a
// request or returns *providers.RateLimitedError with a retry-after hint:
//
//	release, err := limiter.Acquire(ctx, 200*time.Millisecond)
//	if err != nil {
//	    return err
//	}
//	defer release()
//
// A Registry holds one Limiter per caller key (see CallerKey).
package ratelimit
