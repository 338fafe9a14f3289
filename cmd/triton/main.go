// Triton is a multi-worker HTTP serving supervisor.
//
// It binds a listening socket, resolves the configured Application Object,
// and runs a fixed-size pool of workers that each serve one request at a
// time. Crashed workers are replaced, request failures are isolated to a
// 4xx/5xx response, and SIGTERM drains the pool within a grace period.
//
// Usage:
//
//	# Start with configuration from the environment
//	triton run
//
//	# Start with a configuration file (environment still overrides)
//	triton run --config /etc/triton/config.yaml
//
//	# Validate configuration without binding the socket
//	triton check
//
//	# Show version information
//	triton version
//
// At runtime, SIGTTIN adds a worker and SIGTTOU removes one.
package main

func main() {
	Execute()
}
