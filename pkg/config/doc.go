// Package config provides configuration management for Triton.
//
// This package handles resolving, validating, and watching configuration
// from TRITON_* environment variables and optional YAML files. Resolution
// happens exactly once at startup; a value that is present but malformed is
// a fatal error reported before any socket is opened.
//
// # Configuration Loading
//
// Configuration can be resolved in three ways:
//
//  1. From the environment only (no file required):
//     cfg, err := config.FromEnv()
//
//  2. From a YAML file only:
//     cfg, err := config.LoadConfig("triton.yaml")
//
//  3. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("triton.yaml")
//
// # Environment Variables
//
// Environment variables follow the naming convention TRITON_FIELD:
//
//   - TRITON_BIND_ADDRESS overrides server.bind_address (default "0.0.0.0")
//   - TRITON_PORT overrides server.port (default 8000)
//   - TRITON_WORKERS overrides worker.count (default: number of CPUs)
//   - TRITON_GRACE_PERIOD overrides server.grace_period (default 30s)
//   - TRITON_APP_TARGET overrides app.target (default "bot:app")
//   - TRITON_LOG_LEVEL / TRITON_LOG_FORMAT override telemetry.logging
//
// Environment variables always take precedence over file-based
// configuration. Duration variables accept either Go duration strings
// ("45s", "2m") or bare integers, read as seconds.
//
// # Watching
//
// Watcher reloads the configuration file on change with debouncing. A
// reload that fails validation is discarded and the previous configuration
// stays in effect; the supervisor applies worker pool size changes live.
package config
