// Package resilience implements per (provider, model) circuit breaking and
// bounded retries.
//
// # Circuit breaker
//
// Each key has one Breaker, created on first use:
//
//	closed    --K consecutive failures-->  open
//	open      --cooldown elapsed-------->  half-open (one trial admitted)
//	half-open --trial succeeds---------->  closed
//	half-open --trial fails------------->  open (cooldown restarts)
//
// While open, and while the half-open trial is in flight, calls fail with
// *providers.CircuitOpenError without reaching the adapter.
//
// # Retry
//
// Only errors classified retryable by the adapter (providers.IsRetryable) are
// retried. The delay before retry n is min(base*2^(n-1), max) plus a random
// jitter of up to Jitter times that delay, capped at max again. Retries stop
// when MaxAttempts is reached or the next delay would overrun the latency
// budget; the last error is then wrapped in *RetryExhaustedError.
//
// Streams are retried only while opening. Once a stream is open its outcome
// is reported to the breaker when the stream is released.
package resilience
