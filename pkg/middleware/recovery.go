package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// errorDiscarder is implemented by buffering response writers that can
// throw away everything the handler wrote and replace it with an error
// response. The worker pool's response capture implements it.
type errorDiscarder interface {
	DiscardAndError(code int)
}

// Recovery recovers from panics in HTTP handlers and returns a 500
// Internal Server Error response. It logs the panic with stack trace for
// debugging but does not expose internal details to clients.
//
// When the response writer buffers output and supports discarding it, a
// panic after the handler has already written is still replaced with a
// clean 500. On a plain writer whose header has gone out, the WriteHeader
// below is a no-op and the connection is simply cut short.
//
// Example usage:
//
//	handler = Recovery(handler)
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				if d, ok := w.(errorDiscarder); ok {
					d.DiscardAndError(http.StatusInternalServerError)
					return
				}

				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("Internal Server Error\n"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
