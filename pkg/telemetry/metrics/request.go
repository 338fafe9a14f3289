package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"unishark/triton/pkg/config"
)

// RequestMetrics tracks metrics related to request processing.
//
// Metrics:
//   - triton_server_requests_total: Total request count by method, status
//   - triton_server_request_duration_seconds: Request duration histogram
//   - triton_server_response_size_bytes: Response size histogram
//
// Paths are deliberately not a label: the Application Object's URL space
// is opaque to the supervisor and would make cardinality unbounded.
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseBytes   prometheus.Histogram
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests served",
			},
			[]string{"method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"method"},
		),

		responseBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "response_size_bytes",
			Help:      "Size of responses in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		}),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.responseBytes,
	)

	return rm
}

// RecordRequest records metrics for one completed request.
func (rm *RequestMetrics) RecordRequest(method string, status int, duration time.Duration, bytes int) {
	rm.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
	if bytes > 0 {
		rm.responseBytes.Observe(float64(bytes))
	}
}

// Middleware returns middleware that records request metrics for every
// request passing through it.
func (rm *RequestMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		rm.RecordRequest(r.Method, sw.status, time.Since(start), sw.bytes)
	})
}

// statusWriter captures the response status and size for metrics.
type statusWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.status = code
		sw.written = true
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}
