package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"unishark/triton/pkg/config"
)

// Options configures a Supervisor.
type Options struct {
	// Server is the listener configuration: bind address, port, timeouts,
	// and the shutdown grace period.
	Server config.ServerConfig

	// Worker is the worker pool configuration.
	Worker config.WorkerConfig

	// Handler is the Application Object all workers dispatch to. The
	// supervisor holds no state about it beyond this reference and treats
	// it as safe for concurrent use.
	Handler http.Handler

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Sinks receive worker lifecycle events (journal, metrics).
	Sinks []EventSink

	// Listener, when non-nil, is used instead of binding a new socket.
	// This supports pre-bound sockets handed down by a process manager.
	Listener net.Listener
}

// Supervisor owns the listening socket and the worker pool for the
// process's lifetime. See the package documentation for the serving
// contract.
type Supervisor struct {
	server    config.ServerConfig
	workerCfg config.WorkerConfig
	handler   http.Handler
	logger    *slog.Logger
	sinks     []EventSink

	mu       sync.Mutex
	listener net.Listener
	workers  map[int]*worker
	nextID   int
	target   int
	running  bool

	wg           sync.WaitGroup
	exitCh       chan workerExit
	shutdownCh   chan struct{}
	monitorDone  chan struct{}
	shutdownOnce sync.Once
}

// workerExit reports a worker leaving the pool.
type workerExit struct {
	w       *worker
	err     error
	retired bool
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	// Target is the configured pool size.
	Target int `json:"target"`

	// Active is the number of workers currently in the pool.
	Active int `json:"active"`
}

// WorkerInfo describes one worker in a pool snapshot.
type WorkerInfo struct {
	// ID is the supervisor-assigned worker identifier.
	ID int `json:"id"`

	// StartedAt is when the worker was spawned.
	StartedAt time.Time `json:"started_at"`

	// Served is the number of requests the worker has completed.
	Served int64 `json:"served"`

	// Draining is true for surplus workers that will retire after their
	// next request.
	Draining bool `json:"draining"`
}

// New creates a Supervisor from the given options. Start must be called
// before the supervisor serves anything.
func New(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Supervisor{
		server:      opts.Server,
		workerCfg:   opts.Worker,
		handler:     opts.Handler,
		logger:      logger.With("component", "supervisor"),
		sinks:       opts.Sinks,
		listener:    opts.Listener,
		workers:     make(map[int]*worker),
		target:      opts.Worker.Count,
		exitCh:      make(chan workerExit),
		shutdownCh:  make(chan struct{}),
		monitorDone: make(chan struct{}),
	}
}

// Start binds the listener and spawns the configured number of workers.
// A bind failure is returned as a *BindError and no worker is spawned;
// the caller should treat it as fatal and exit non-zero.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if s.handler == nil {
		return fmt.Errorf("no application handler configured")
	}
	if s.target < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", s.target)
	}

	if s.listener == nil {
		addr := s.server.Addr()
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return &BindError{Addr: addr, Err: err}
		}
		s.listener = l
	}
	s.running = true

	s.logger.Info("listener bound",
		"address", s.listener.Addr().String(),
		"workers", s.target,
	)

	for i := 0; i < s.target; i++ {
		s.spawnLocked()
	}

	go s.monitor()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Supervisor) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns the current pool statistics.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Target: s.target, Active: len(s.workers)}
}

// Snapshot returns a point-in-time view of every worker in the pool.
func (s *Supervisor) Snapshot() []WorkerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]WorkerInfo, 0, len(s.workers))
	for _, w := range s.workers {
		infos = append(infos, WorkerInfo{
			ID:        w.id,
			StartedAt: w.startedAt,
			Served:    w.served.Load(),
			Draining:  w.draining(),
		})
	}
	return infos
}

// Healthy reports whether the supervisor is running with a full pool.
// Used by the readiness probe.
func (s *Supervisor) Healthy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if len(s.workers) < s.target {
		return fmt.Errorf("pool below target: %d of %d workers active", len(s.workers), s.target)
	}
	return nil
}

// Resize changes the target pool size. Growing spawns workers immediately;
// shrinking marks surplus workers as draining, and each retires after it
// finishes its next request.
func (s *Supervisor) Resize(n int) error {
	if n < 1 {
		return fmt.Errorf("pool size must be at least 1, got %d", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if n == s.target {
		return nil
	}

	s.logger.Info("resizing worker pool", "from", s.target, "to", n)
	s.target = n

	for len(s.workers) < s.target {
		s.spawnLocked()
	}

	surplus := len(s.workers) - s.target
	for _, w := range s.workers {
		if surplus <= 0 {
			break
		}
		if !w.draining() {
			w.drain()
			surplus--
		}
	}

	return nil
}

// Shutdown broadcasts termination to all workers, waits up to the
// configured grace period for in-flight requests to complete, then
// force-closes the connections of any stragglers. The listener is closed
// on every exit path. Shutdown is idempotent: calling it twice is a no-op.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		l := s.listener

		s.logger.Info("initiating graceful shutdown",
			"grace_period", s.server.GracePeriod.String(),
		)

		// Stop accepting: the broadcast stops workers between requests
		// and the listener close unblocks every pending Accept. The
		// broadcast happens under the lock so handleExit cannot observe
		// a pre-shutdown state and respawn afterwards.
		close(s.shutdownCh)
		s.mu.Unlock()

		if l != nil {
			_ = l.Close()
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(s.server.GracePeriod)
		defer timer.Stop()

		select {
		case <-done:
		case <-ctx.Done():
			shutdownErr = s.forceTerminate(done)
		case <-timer.C:
			shutdownErr = s.forceTerminate(done)
		}

		<-s.monitorDone

		s.mu.Lock()
		s.running = false
		s.workers = make(map[int]*worker)
		s.mu.Unlock()

		s.logger.Info("supervisor stopped")
	})

	return shutdownErr
}

// forceTerminate closes the active connections of all remaining workers
// and gives them a short final window to exit.
func (s *Supervisor) forceTerminate(done chan struct{}) error {
	s.mu.Lock()
	remaining := len(s.workers)
	for _, w := range s.workers {
		w.closeActiveConn()
	}
	s.mu.Unlock()

	s.logger.Warn("grace period expired, force-closing connections",
		"workers_remaining", remaining,
	)

	select {
	case <-done:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("%d workers did not exit after force close", remaining)
	}
}

// spawnLocked creates and starts a new worker. Callers must hold s.mu.
func (s *Supervisor) spawnLocked() {
	s.nextID++
	w := newWorker(s, s.nextID)
	s.workers[w.id] = w
	s.wg.Add(1)
	go w.run()

	s.logger.Info("worker started",
		"worker_id", w.id,
		"pool_size", len(s.workers),
	)
	s.emit(Event{
		Type:     EventSpawned,
		WorkerID: w.id,
		PoolSize: len(s.workers),
		Time:     time.Now(),
	})
}

// monitor watches for worker exits and replaces workers to preserve the
// target pool size. It runs until shutdown begins.
func (s *Supervisor) monitor() {
	defer close(s.monitorDone)

	for {
		select {
		case exit := <-s.exitCh:
			s.handleExit(exit)
		case <-s.shutdownCh:
			return
		}
	}
}

// handleExit removes an exited worker from the pool, records the event,
// and spawns replacements while the pool is below target and shutdown has
// not begun.
func (s *Supervisor) handleExit(exit workerExit) {
	s.mu.Lock()
	delete(s.workers, exit.w.id)
	poolSize := len(s.workers)
	s.mu.Unlock()

	ev := Event{
		WorkerID: exit.w.id,
		PoolSize: poolSize,
		Time:     time.Now(),
	}

	switch {
	case exit.err != nil:
		ev.Type = EventCrashed
		ev.Error = exit.err.Error()
		s.logger.Error("worker crashed, replacing",
			"worker_id", exit.w.id,
			"error", exit.err,
			"served", exit.w.served.Load(),
		)
	case exit.retired:
		ev.Type = EventRetired
		s.logger.Info("worker retired after max requests",
			"worker_id", exit.w.id,
			"served", exit.w.served.Load(),
		)
	default:
		ev.Type = EventExited
		s.logger.Info("worker exited",
			"worker_id", exit.w.id,
			"served", exit.w.served.Load(),
		)
	}
	s.emit(ev)

	s.mu.Lock()
	// A worker that exits once shutdown has begun is never replaced; a
	// replacement here would race the waitgroup Shutdown is waiting on.
	if !s.shuttingDown() {
		for len(s.workers) < s.target {
			s.spawnLocked()
		}
	}
	s.mu.Unlock()
}

// emit delivers an event to every configured sink.
func (s *Supervisor) emit(ev Event) {
	for _, sink := range s.sinks {
		sink.RecordWorkerEvent(ev)
	}
}

// shuttingDown reports whether shutdown has been initiated.
func (s *Supervisor) shuttingDown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}
