// Package metrics provides Prometheus metrics for Triton.
//
// The collector owns a private registry and the metric families for the
// worker pool and request traffic. It is wired into the supervisor as an
// event sink and into the handler chain as middleware, and exposed on the
// admin endpoint in Prometheus exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"unishark/triton/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics in Triton.
// It manages metric registration and provides access to the pool and
// request metric groups.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	poolMetrics    *PoolMetrics
	requestMetrics *RequestMetrics
}

// NewCollector creates a collector with all metric families registered on
// a fresh registry, including the standard Go runtime and process
// collectors.
func NewCollector(cfg *config.MetricsConfig) *Collector {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		config:         cfg,
		registry:       registry,
		poolMetrics:    NewPoolMetrics(cfg, registry),
		requestMetrics: NewRequestMetrics(cfg, registry),
	}
}

// Pool returns the worker pool metrics.
func (c *Collector) Pool() *PoolMetrics {
	return c.poolMetrics
}

// Requests returns the request metrics.
func (c *Collector) Requests() *RequestMetrics {
	return c.requestMetrics
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
