package config

import (
	"fmt"
	"net"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateWorker(&cfg.Worker)...)
	errs = append(errs, validateApp(&cfg.App)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateAccessLog(&cfg.AccessLog)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates listener configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.BindAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.bind_address",
			Message: "bind address is required",
		})
	} else if net.ParseIP(cfg.BindAddress) == nil && cfg.BindAddress != "localhost" {
		// Hostnames other than localhost are allowed through; the bind
		// itself is the authoritative check. Reject obviously broken
		// values containing a port or scheme.
		if strings.ContainsAny(cfg.BindAddress, ":/") {
			errs = append(errs, FieldError{
				Field:   "server.bind_address",
				Message: fmt.Sprintf("invalid bind address %q: must be a host without port", cfg.BindAddress),
			})
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}

	if cfg.GracePeriod < 0 {
		errs = append(errs, FieldError{
			Field:   "server.grace_period",
			Message: "grace period must not be negative",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must not be negative",
		})
	}

	return errs
}

// validateWorker validates worker pool configuration.
func validateWorker(cfg *WorkerConfig) []FieldError {
	var errs []FieldError

	if cfg.Count < 1 {
		errs = append(errs, FieldError{
			Field:   "worker.count",
			Message: fmt.Sprintf("worker count must be at least 1, got %d", cfg.Count),
		})
	}

	if cfg.MaxRequests < 0 {
		errs = append(errs, FieldError{
			Field:   "worker.max_requests",
			Message: "max requests must not be negative",
		})
	}

	return errs
}

// validateApp validates the application target.
func validateApp(cfg *AppConfig) []FieldError {
	var errs []FieldError

	if cfg.Target == "" {
		errs = append(errs, FieldError{
			Field:   "app.target",
			Message: "application target is required",
		})
	} else if !strings.Contains(cfg.Target, ":") {
		errs = append(errs, FieldError{
			Field:   "app.target",
			Message: fmt.Sprintf("target %q must be in \"module:object\" form", cfg.Target),
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be debug, info, warn, or error", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be json or text", cfg.Logging.Format),
		})
	}

	if cfg.Admin.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Admin.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.admin.listen_address",
				Message: fmt.Sprintf("invalid listen address %q: %v", cfg.Admin.ListenAddress, err),
			})
		}
	}

	return errs
}

// validateAccessLog validates access log configuration.
func validateAccessLog(cfg *AccessLogConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "access_log.path",
			Message: "path is required when the access log is enabled",
		})
	}
	if cfg.Buffer < 1 {
		errs = append(errs, FieldError{
			Field:   "access_log.buffer",
			Message: "buffer must be at least 1",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "access_log.retention_days",
			Message: "retention days must not be negative",
		})
	}

	return errs
}

// validateJournal validates worker journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	if cfg.Enabled && cfg.Path == "" {
		return []FieldError{{
			Field:   "journal.path",
			Message: "path is required when the journal is enabled",
		}}
	}
	return nil
}
