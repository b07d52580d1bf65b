// Package bench measures the hub's hot paths in process.
//
// Targets cover provider resolution, wire encoding of requests, a full
// pipeline call against a mock adapter, cache fingerprint plus get and set,
// and SSE stream decoding. Each reports latency percentiles in nanoseconds
// and throughput:
//
//	runner := &bench.Runner{}
//	results, err := runner.Run(ctx, bench.Targets(bench.Options{Iterations: 1000, Warmup: 100}))
//	if err != nil {
//		return err
//	}
//	_, err = bench.WriteResults("bench-results", results)
package bench
