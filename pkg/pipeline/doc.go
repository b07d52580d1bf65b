// Package pipeline implements the ordered interceptor chain every call runs
// through.
//
// A Pipeline is built once, at hub construction, and never reordered. Each
// stage is a Middleware that wraps the next; its code before next runs in
// stage order and its code after next runs in reverse order. The built-in
// stages, in canonical order:
//
//   - logging: logs the call at entry and exit, and each stream on release
//   - ratelimit: admits the call against the caller's quota
//   - cache: serves stored entries and collapses concurrent identical calls
//   - resilience: circuit breaking and retries; inner stages run per attempt
//   - metrics: records the latency and outcome of each attempt
//
// The terminal handler calls the selected adapter, through the stream
// multiplexer for streaming calls.
//
//	p, err := pipeline.Build(cfg.Pipeline, pipeline.Deps{...})
//	c := pipeline.NewContext(req, fingerprint, adapter)
//	err = p.Execute(ctx, c)
package pipeline
