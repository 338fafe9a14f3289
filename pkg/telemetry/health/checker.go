// Package health provides liveness and readiness probes for Triton.
//
// The probes are served by the admin endpoint. Liveness answers "is the
// process alive"; readiness runs the registered component checks (listener
// bound, pool at target size) and reports 503 until all of them pass.
package health

import (
	"context"
	"sync"
	"time"
)

// CheckFunc is a function that performs a health check for a component.
// It returns nil if the component is healthy, or an error describing the
// problem.
type CheckFunc func(ctx context.Context) error

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Status is the health status: "ok" or "unhealthy"
	Status string `json:"status"`

	// Message provides additional context (usually for unhealthy status)
	Message string `json:"message,omitempty"`

	// Duration is how long the check took
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Status represents the overall health status of the system.
type Status struct {
	// Status is the overall status: "ok", "ready", or "unhealthy"
	Status string `json:"status"`

	// Checks contains the status of individual components (for readiness)
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the health check was performed
	Timestamp time.Time `json:"timestamp"`
}

// Checker manages health checks for system components.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	checkTimeout time.Duration
}

// New creates a new health checker with the specified per-check timeout.
// If timeout is 0, defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// Register adds a named component check. Re-registering a name replaces
// the previous check.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckLiveness performs the liveness check: the process is alive if it
// can answer at all.
func (c *Checker) CheckLiveness(_ context.Context) Status {
	return Status{
		Status:    "ok",
		Timestamp: time.Now(),
	}
}

// CheckReadiness runs all registered component checks and aggregates the
// results. The system is ready only when every check passes.
func (c *Checker) CheckReadiness(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	status := Status{
		Status:    "ready",
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now(),
	}

	for name, fn := range checks {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
		err := fn(checkCtx)
		cancel()

		result := CheckResult{
			Status:   "ok",
			Duration: time.Since(start),
		}
		if err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
			status.Status = "unhealthy"
		}
		status.Checks[name] = result
	}

	return status
}
