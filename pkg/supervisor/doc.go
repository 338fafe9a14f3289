// Package supervisor implements the multi-worker serving core of Triton.
//
// A Supervisor owns exactly one listening socket and a pool of workers for
// the lifetime of the process. Each worker runs its own accept loop on the
// shared listener and serves one request at a time: accept, parse, dispatch
// to the Application Object, write the response, then honor HTTP/1.x
// keep-alive negotiation. The operating system's accept-queue arbitration is
// the only ordering guarantee between workers.
//
// The supervisor monitors the pool and replaces workers that exit
// unexpectedly, preserving the configured pool size. This is the only retry
// semantic in the system: worker availability is retried, individual
// requests never are. A request that panics inside the Application Object
// produces a 500 response on that connection and nothing else; a request
// that cannot be parsed produces a 4xx response and a closed connection.
//
// Shutdown broadcasts termination to the pool, closes the listener, and
// waits a bounded grace period for in-flight requests before force-closing
// the connections of any stragglers. It is idempotent.
package supervisor
