package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on hub spans.
const (
	AttrProvider    = "connector_hub.provider"
	AttrModel       = "connector_hub.model"
	AttrRequestID   = "connector_hub.request_id"
	AttrCaller      = "connector_hub.caller"
	AttrStream      = "connector_hub.stream"
	AttrFingerprint = "connector_hub.fingerprint"
	AttrStage       = "connector_hub.pipeline.stage"
	AttrAttempt     = "connector_hub.attempt"
	AttrAttempts    = "connector_hub.attempts"

	AttrTokensPrompt     = "connector_hub.tokens.prompt"
	AttrTokensCompletion = "connector_hub.tokens.completion"

	AttrCacheHit     = "connector_hub.cache.hit"
	AttrCacheBackend = "connector_hub.cache.backend"

	AttrErrorType = "connector_hub.error.type"
)

// SetRequestAttributes sets the routing attributes of a call on a span.
func SetRequestAttributes(span trace.Span, requestID, provider, model string, stream bool) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.Bool(AttrStream, stream),
	)
}

// SetTokenAttributes sets token counts on a span.
func SetTokenAttributes(span trace.Span, promptTokens, completionTokens int) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
	)
}

// SetCacheAttributes sets cache lookup attributes on a span.
func SetCacheAttributes(span trace.Span, hit bool, backend string) {
	span.SetAttributes(
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheBackend, backend),
	)
}

// SetErrorAttributes records err with its kind label and marks the span
// failed. A nil err marks the span OK.
func SetErrorAttributes(span trace.Span, err error, kind string) {
	if err != nil && kind != "" {
		span.SetAttributes(attribute.String(AttrErrorType, kind))
	}
	SetStatus(span, err)
}
