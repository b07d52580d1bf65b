// Package providers defines the canonical request model and the adapter
// contract every LLM backend implements.
//
// # Overview
//
// Adapters translate a CompletionRequest into their native wire format and
// translate native responses back into CompletionResponse or a sequence of
// StreamChunk values. The orchestration layers above (router, pipeline,
// resilience, cache) only ever see the canonical types.
//
// # Architecture
//
//  1. Provider interface - Complete, StreamComplete, ListModels, HealthCheck
//  2. HTTPProvider - connection pooling, timeouts and status classification
//  3. Adapters - openai, anthropic, generic and an in-process mock
//
// # Error Classification
//
// Adapters never retry. Every failure is returned classified so the
// resilience layer can decide:
//
//	var perr *providers.ProviderError
//	if errors.As(err, &perr) && perr.Retryable {
//	    // 408, 429, 5xx or a transport failure
//	}
//
// providers.IsRetryable is the single helper that applies this
// classification, including *TimeoutError which is always retryable.
//
// # Streaming
//
// StreamComplete returns a pull-based StreamReader. Read returns io.EOF only
// after the provider's explicit end-of-stream marker; a body that ends early
// is io.ErrUnexpectedEOF. Cancelling the context passed to StreamComplete
// aborts the transport, and Close releases the response body.
//
// # Volatile Fields
//
// CompletionRequest fields tagged json:"-" (Timeout, CachePolicy, APIKey,
// RequestID, Metadata) never reach a provider and do not take part in
// request fingerprints.
package providers
