// Package telemetry provides observability for Triton.
//
// # Components
//
//   - logging: structured logging built on log/slog
//   - metrics: Prometheus metrics for the worker pool and request traffic
//   - health: liveness and readiness endpoints for the admin server
//
// # Usage
//
//	logger, err := logging.New(&cfg.Telemetry.Logging)
//	slog.SetDefault(logger)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics)
//	collector.Pool().SetTarget(cfg.Worker.Count)
//
//	checker := health.New(0)
//	checker.Register("pool", func(ctx context.Context) error { return sup.Healthy() })
package telemetry
