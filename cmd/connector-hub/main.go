// connector-hub routes LLM completion requests across providers behind one
// interface, with response caching, rate limiting, retries, circuit
// breaking and health monitoring.
//
// Usage:
//
//	# Serve /metrics, /snapshot and health endpoints
//	connector-hub serve --config hub.yaml
//
//	# Send one prompt
//	connector-hub complete --model gpt-4o "Summarize RFC 2616"
//
//	# Probe every configured provider once
//	connector-hub health
//
//	# Run the micro-benchmarks
//	connector-hub bench --target cache
package main

func main() {
	Execute()
}
