// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON or text output with a level that can change at runtime
//   - Redaction of API keys, bearer tokens and other credentials
//   - Context fields (request id, caller, provider, model, fingerprint,
//     attempt, trace and span ids) added to every record
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "request completed",
//	    "api_key", "sk-abc123",  // Logged as "sk-a***"
//	    "duration_ms", 1234,
//	)
//
// Components that accept a *slog.Logger receive logger.Slog(); records
// written through it are redacted the same way.
//
// # Redaction
//
// Values of sensitive keys (api_key, authorization, token, password, ...)
// are masked to a four-character hint. Other string values have matching
// substrings replaced:
//
//   - API keys: sk-abc123xyz... → sk-***
//   - Bearer tokens: Bearer eyJ... → Bearer ***
//   - Emails: user@example.com → ***@***
package logging
