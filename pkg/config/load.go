package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FromEnv builds a configuration from defaults and TRITON_* environment
// variables alone, without reading any file. This is the minimal startup
// path: a process with no config file resolves its entire configuration
// from the environment.
//
// A variable that is present but malformed (for example a non-numeric
// TRITON_PORT) is a fatal error, reported before any socket is opened.
func FromEnv() (*Config, error) {
	cfg := NewDefault()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields absent from the file keep their default values; a field the file
// sets explicitly is taken at face value, so an explicit invalid value
// (worker.count: 0) fails validation rather than being silently
// re-defaulted. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Unmarshal on top of the defaults so fields absent from the file
	// keep their default values, including booleans that default to true.
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention TRITON_FIELD (e.g., TRITON_PORT, TRITON_WORKERS) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Apply default values
//  2. Load YAML from file
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TRITON_* environment variable overrides to the
// configuration. Unlike the file path, a present-but-malformed value is an
// error rather than being silently ignored: an operator who sets
// TRITON_PORT=abc must learn about it at startup, not at bind time.
func applyEnvOverrides(cfg *Config) error {
	// Server overrides
	if val := os.Getenv("TRITON_BIND_ADDRESS"); val != "" {
		cfg.Server.BindAddress = val
	}
	if err := intVar("TRITON_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := durationVar("TRITON_READ_TIMEOUT", &cfg.Server.ReadTimeout); err != nil {
		return err
	}
	if err := durationVar("TRITON_WRITE_TIMEOUT", &cfg.Server.WriteTimeout); err != nil {
		return err
	}
	if err := intVar("TRITON_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes); err != nil {
		return err
	}
	if err := durationVar("TRITON_GRACE_PERIOD", &cfg.Server.GracePeriod); err != nil {
		return err
	}

	// Worker overrides
	if err := intVar("TRITON_WORKERS", &cfg.Worker.Count); err != nil {
		return err
	}
	if err := intVar("TRITON_WORKER_MAX_REQUESTS", &cfg.Worker.MaxRequests); err != nil {
		return err
	}

	// App overrides
	if val := os.Getenv("TRITON_APP_TARGET"); val != "" {
		cfg.App.Target = val
	}

	// Telemetry overrides
	if val := os.Getenv("TRITON_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TRITON_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if err := boolVar("TRITON_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled); err != nil {
		return err
	}
	if err := boolVar("TRITON_ADMIN_ENABLED", &cfg.Telemetry.Admin.Enabled); err != nil {
		return err
	}
	if val := os.Getenv("TRITON_ADMIN_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Admin.ListenAddress = val
	}

	// Access log overrides
	if err := boolVar("TRITON_ACCESS_LOG_ENABLED", &cfg.AccessLog.Enabled); err != nil {
		return err
	}
	if val := os.Getenv("TRITON_ACCESS_LOG_PATH"); val != "" {
		cfg.AccessLog.Path = val
	}
	if err := intVar("TRITON_ACCESS_LOG_RETENTION_DAYS", &cfg.AccessLog.RetentionDays); err != nil {
		return err
	}

	// Journal overrides
	if err := boolVar("TRITON_JOURNAL_ENABLED", &cfg.Journal.Enabled); err != nil {
		return err
	}
	if val := os.Getenv("TRITON_JOURNAL_PATH"); val != "" {
		cfg.Journal.Path = val
	}

	return nil
}

// intVar overrides dst with the integer value of the named environment
// variable, if present.
func intVar(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not an integer", name, val)
	}
	*dst = i
	return nil
}

// durationVar overrides dst with the duration value of the named
// environment variable, if present. Bare integers are read as seconds.
func durationVar(name string, dst *time.Duration) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not a duration", name, val)
	}
	*dst = d
	return nil
}

// boolVar overrides dst with the boolean value of the named environment
// variable, if present.
func boolVar(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not a boolean", name, val)
	}
	*dst = b
	return nil
}
