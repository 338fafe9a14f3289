package supervisor

import (
	"errors"
	"fmt"
)

// BindError indicates the listener could not be bound to the configured
// address, typically because the port is already in use or requires
// privileges the process does not have. Bind failures are fatal at startup
// and are never retried; no worker is spawned.
type BindError struct {
	// Addr is the "host:port" address that could not be bound.
	Addr string

	// Err is the underlying error from the operating system.
	Err error
}

// Error returns the error message for this bind error.
func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindError) Unwrap() error {
	return e.Err
}

// ErrAlreadyRunning is returned by Start when the supervisor has already
// been started.
var ErrAlreadyRunning = errors.New("supervisor already running")

// ErrNotRunning is returned by operations that require a started supervisor.
var ErrNotRunning = errors.New("supervisor not running")
