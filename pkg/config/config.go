package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for Triton.
// It contains all configuration sections for the serving supervisor,
// the worker pool, the application target, telemetry, and the journals.
type Config struct {
	// Server contains listener configuration: bind address, port,
	// per-connection timeouts, and the shutdown grace period.
	Server ServerConfig `yaml:"server"`

	// Worker contains worker pool configuration: pool size and the
	// optional recycling threshold.
	Worker WorkerConfig `yaml:"worker"`

	// App identifies the Application Object the workers dispatch to.
	App AppConfig `yaml:"app"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and the admin endpoint.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// AccessLog contains configuration for the persistent request journal.
	AccessLog AccessLogConfig `yaml:"access_log"`

	// Journal contains configuration for the worker-lifecycle journal.
	Journal JournalConfig `yaml:"journal"`
}

// ServerConfig contains configuration for the listening socket.
type ServerConfig struct {
	// BindAddress is the address the listener binds to.
	// Default: "0.0.0.0"
	BindAddress string `yaml:"bind_address"`

	// Port is the TCP port the listener binds to (1-65535).
	// Binding failure is fatal at startup.
	// Default: 8000
	Port int `yaml:"port"`

	// ReadTimeout is the deadline applied to a connection while reading
	// a request. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the deadline applied to a connection while writing
	// a response. A zero or negative value means no timeout.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes limits the bytes a worker will read parsing a
	// request line and headers. It does not limit the request body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// GracePeriod is the maximum duration to wait during shutdown for
	// in-flight requests to complete before workers are force-terminated.
	// Default: 30s
	GracePeriod time.Duration `yaml:"grace_period"`
}

// Addr returns the listener address in "host:port" form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.BindAddress, strconv.Itoa(s.Port))
}

// SplitBindAddress parses a "host:port" string into its parts.
func SplitBindAddress(addr string) (host string, port int, err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

// WorkerConfig contains configuration for the worker pool.
type WorkerConfig struct {
	// Count is the number of workers accepting connections from the
	// shared listener. Must be >= 1.
	// Default: runtime.NumCPU()
	Count int `yaml:"count"`

	// MaxRequests is the number of requests a worker serves before it
	// retires and is replaced by a fresh worker. 0 disables recycling.
	// Default: 0
	MaxRequests int `yaml:"max_requests"`
}

// AppConfig identifies the Application Object.
type AppConfig struct {
	// Target names the handler to serve, in "module:object" form.
	// The target is resolved once at startup; an unresolvable target is
	// a fatal error.
	// Default: "bot:app"
	Target string `yaml:"target"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Admin contains admin endpoint configuration.
	Admin AdminConfig `yaml:"admin"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "triton"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "server"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request
	// duration in seconds.
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// AdminConfig contains configuration for the admin HTTP endpoint, which
// serves metrics, health probes, and the worker pool snapshot on a port
// separate from the worker pool.
type AdminConfig struct {
	// Enabled controls whether the admin endpoint is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port for the admin endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`
}

// AccessLogConfig contains configuration for the persistent request journal.
type AccessLogConfig struct {
	// Enabled controls whether request records are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the file path for the SQLite access log database.
	// Default: "data/access.db"
	Path string `yaml:"path"`

	// Buffer is the size of the async write channel buffer. Records are
	// dropped (and counted) when the buffer is full.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// RetentionDays is the number of days to retain request records.
	// 0 means keep records forever (no pruning).
	// Default: 7
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// JournalConfig contains configuration for the worker-lifecycle journal.
type JournalConfig struct {
	// Enabled controls whether worker lifecycle events are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the file path for the SQLite journal database.
	// Default: "data/journal.db"
	Path string `yaml:"path"`
}
