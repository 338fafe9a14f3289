package supervisor

import "time"

// EventType classifies a worker lifecycle event.
type EventType string

const (
	// EventSpawned is emitted when a worker is started.
	EventSpawned EventType = "spawned"

	// EventExited is emitted when a worker exits cleanly during shutdown
	// or a pool shrink.
	EventExited EventType = "exited"

	// EventCrashed is emitted when a worker exits unexpectedly. The
	// supervisor replaces crashed workers to preserve pool size.
	EventCrashed EventType = "crashed"

	// EventRetired is emitted when a worker retires after serving its
	// configured maximum number of requests. Retired workers are
	// replaced like crashed ones, but the exit is expected.
	EventRetired EventType = "retired"
)

// Event is a worker lifecycle event emitted by the supervisor.
type Event struct {
	// Type classifies the event.
	Type EventType

	// WorkerID identifies the worker the event concerns.
	WorkerID int

	// PoolSize is the number of active workers after the event.
	PoolSize int

	// Error is the error text for crashed workers, empty otherwise.
	Error string

	// Time is when the event occurred.
	Time time.Time
}

// EventSink receives worker lifecycle events. Sinks must be safe for
// concurrent use; the supervisor calls them from its monitor goroutine and
// must not be blocked, so slow sinks should buffer internally.
type EventSink interface {
	RecordWorkerEvent(ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ev Event)

// RecordWorkerEvent calls f(ev).
func (f EventSinkFunc) RecordWorkerEvent(ev Event) {
	f(ev)
}
