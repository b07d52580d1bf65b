// Package health provides the HealthMonitor for a connector hub.
//
// # Overview
//
// A Monitor probes every registered provider adapter on an interval. Probes
// run in parallel, bounded by health.concurrency, and each is cut off after
// health.timeout even if the adapter ignores its context. The latest result
// per adapter is kept with its latency and consecutive failure count.
//
// Results are advisory. They are forwarded to an Advisor (the resilience
// controller) and to an optional observer that exports metrics, but they
// never open or close a circuit breaker.
//
// # Usage
//
//	monitor := health.NewMonitor(registry, cfg.Health,
//	    health.WithAdvisor(controller),
//	    health.WithLogger(logger),
//	)
//	go monitor.Run(ctx)
//
//	snapshot := monitor.Snapshot()
//
// # Endpoints
//
//   - /healthz: liveness, always 200 while the process serves
//   - /readyz: readiness, 503 only when every probed adapter is failing
//   - /version: build information
package health
