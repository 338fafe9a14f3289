// Package app locates the Application Object the supervisor serves.
//
// The Application Object is an opaque http.Handler identified by a target
// in "module:object" form (for example "bot:app"). Targets are resolved
// exactly once at process start; a target that cannot be resolved is a
// fatal startup error. The supervisor holds no state about the object
// beyond the resolved handler reference and treats it as safe for
// concurrent use.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownTarget is returned by Resolve for a target no application has
// been registered under.
var ErrUnknownTarget = errors.New("unknown application target")

// Registry maps application targets to handlers.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]http.Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[string]http.Handler),
	}
}

// Register adds a handler under the given target. Registering a nil
// handler or an already-registered target is an error.
func (r *Registry) Register(target string, h http.Handler) error {
	if _, _, err := ParseTarget(target); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("nil handler for target %q", target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[target]; exists {
		return fmt.Errorf("target %q already registered", target)
	}
	r.objects[target] = h
	return nil
}

// Resolve returns the handler registered under the given target.
// The error wraps ErrUnknownTarget when no such registration exists, and
// names the known targets so a misconfiguration is diagnosable from the
// startup log alone.
func (r *Registry) Resolve(target string) (http.Handler, error) {
	if _, _, err := ParseTarget(target); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.objects[target]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)",
			ErrUnknownTarget, target, strings.Join(r.targetsLocked(), ", "))
	}
	return h, nil
}

// Targets returns the registered targets in sorted order.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.targetsLocked()
}

func (r *Registry) targetsLocked() []string {
	targets := make([]string, 0, len(r.objects))
	for t := range r.objects {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// ParseTarget splits a "module:object" target into its parts.
func ParseTarget(target string) (module, object string, err error) {
	module, object, ok := strings.Cut(target, ":")
	if !ok || module == "" || object == "" {
		return "", "", fmt.Errorf("invalid target %q: must be in \"module:object\" form", target)
	}
	return module, object, nil
}
