package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"unishark/triton/pkg/config"
	"unishark/triton/pkg/supervisor"
)

// PoolMetrics tracks the state of the worker pool.
//
// Metrics:
//   - triton_server_workers_target: Configured pool size
//   - triton_server_workers_active: Workers currently in the pool
//   - triton_server_worker_exits_total: Worker exits by reason
type PoolMetrics struct {
	workersTarget prometheus.Gauge
	workersActive prometheus.Gauge
	exitsTotal    *prometheus.CounterVec
}

// NewPoolMetrics creates and registers pool metrics with the provided
// registry.
func NewPoolMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PoolMetrics {
	pm := &PoolMetrics{
		workersTarget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "workers_target",
			Help:      "Configured worker pool size",
		}),

		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "workers_active",
			Help:      "Number of workers currently in the pool",
		}),

		exitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "worker_exits_total",
				Help:      "Total number of worker exits by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		pm.workersTarget,
		pm.workersActive,
		pm.exitsTotal,
	)

	return pm
}

// SetTarget records the configured pool size.
func (pm *PoolMetrics) SetTarget(n int) {
	pm.workersTarget.Set(float64(n))
}

// RecordWorkerEvent updates pool metrics from a supervisor lifecycle
// event. PoolMetrics implements supervisor.EventSink.
func (pm *PoolMetrics) RecordWorkerEvent(ev supervisor.Event) {
	pm.workersActive.Set(float64(ev.PoolSize))

	switch ev.Type {
	case supervisor.EventCrashed, supervisor.EventExited, supervisor.EventRetired:
		pm.exitsTotal.WithLabelValues(string(ev.Type)).Inc()
	}
}
