// Package server exposes a hub's operational state over HTTP.
//
// The listener serves:
//   - /metrics: Prometheus exposition (when metrics are enabled)
//   - /snapshot: the merged hub snapshot as JSON
//   - /healthz, /readyz and /version: see package health
//
// Every route runs behind panic recovery, access logging and trace context
// extraction.
//
// # Basic Usage
//
//	srv := server.New(cfg.Server, h, server.BuildInfo{Version: version})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled and then shuts down gracefully within
// ShutdownTimeout.
package server
