// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// The supervisor treats the Application Object as opaque. Everything Triton
// itself needs from a request (correlation IDs, structured request logs,
// metrics, panic containment) is layered around the object with these
// middleware functions before it is handed to the worker pool.
//
// # Middleware Chain
//
// Middleware functions are chained outermost-first:
//
//	handler = Recovery(RequestID(Logging(Metrics(app))))
//
// Recovery sits outermost so a panic anywhere in the chain, including in
// the other middleware, still produces a 500 response. The worker keeps
// its own panic backstop; this middleware exists so the response carries
// the request ID and shows up in the request log like any other.
package middleware
