package config

import (
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultBindAddress    = "0.0.0.0"
	DefaultPort           = 8000
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes = 1048576 // 1MB
	DefaultGracePeriod    = 30 * time.Second

	// App defaults
	DefaultAppTarget = "bot:app"

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "triton"
	DefaultMetricsSubsystem = "server"

	// Admin defaults
	DefaultAdminEnabled       = true
	DefaultAdminListenAddress = "127.0.0.1:9090"

	// Access log defaults
	DefaultAccessLogEnabled       = false
	DefaultAccessLogPath          = "data/access.db"
	DefaultAccessLogBuffer        = 1000
	DefaultAccessLogRetentionDays = 7
	DefaultAccessLogPruneSchedule = "0 3 * * *"

	// Journal defaults
	DefaultJournalEnabled = false
	DefaultJournalPath    = "data/journal.db"
)

// DefaultRequestDurationBuckets are the default histogram buckets for
// request duration in seconds.
var DefaultRequestDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// DefaultWorkerCount returns the default worker pool size: one worker per
// logical CPU, with a floor of 1.
func DefaultWorkerCount() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

// NewDefault returns a Config populated with all default values.
//
// Boolean fields that default to true are set here rather than in
// ApplyDefaults: after unmarshalling, an explicit false in the file is
// indistinguishable from an unset field, so Load unmarshals on top of a
// NewDefault config instead.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Admin.Enabled = DefaultAdminEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any configuration fields that
// are unset (zero-valued). NewDefault uses it to build the baseline the
// Load functions unmarshal on top of; it is not re-applied after loading,
// so an explicit zero in a file is preserved for validation.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.BindAddress == "" {
		cfg.Server.BindAddress = DefaultBindAddress
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.GracePeriod == 0 {
		cfg.Server.GracePeriod = DefaultGracePeriod
	}

	// Worker
	if cfg.Worker.Count == 0 {
		cfg.Worker.Count = DefaultWorkerCount()
	}

	// App
	if cfg.App.Target == "" {
		cfg.App.Target = DefaultAppTarget
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.RequestDurationBuckets == nil {
		cfg.Telemetry.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets
	}
	if cfg.Telemetry.Admin.ListenAddress == "" {
		cfg.Telemetry.Admin.ListenAddress = DefaultAdminListenAddress
	}

	// Access log
	if cfg.AccessLog.Path == "" {
		cfg.AccessLog.Path = DefaultAccessLogPath
	}
	if cfg.AccessLog.Buffer == 0 {
		cfg.AccessLog.Buffer = DefaultAccessLogBuffer
	}
	if cfg.AccessLog.RetentionDays == 0 {
		cfg.AccessLog.RetentionDays = DefaultAccessLogRetentionDays
	}
	if cfg.AccessLog.PruneSchedule == "" {
		cfg.AccessLog.PruneSchedule = DefaultAccessLogPruneSchedule
	}

	// Journal
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
}
