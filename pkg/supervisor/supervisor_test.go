package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"unishark/triton/pkg/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		BindAddress:    "127.0.0.1",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxHeaderBytes: 1 << 20,
		GracePeriod:    5 * time.Second,
	}
}

// startSupervisor starts a supervisor on an ephemeral port and returns it
// with its base URL. Shutdown is registered as cleanup.
func startSupervisor(t *testing.T, opts Options) (*Supervisor, string) {
	t.Helper()

	if opts.Listener == nil {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to create test listener: %v", err)
		}
		opts.Listener = ln
	}
	if opts.Server.GracePeriod == 0 {
		opts.Server = testServerConfig()
	}

	s := New(opts)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})

	return s, "http://" + s.Addr().String()
}

// eventRecorder collects events for assertions; tests wire it in as an
// EventSinkFunc over its record method.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) sink() EventSink {
	return EventSinkFunc(r.record)
}

func (r *eventRecorder) count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	})
}

func TestStartSpawnsConfiguredWorkers(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 3},
		Handler: okHandler(),
		Sinks:   []EventSink{rec.sink()},
	})

	stats := s.Stats()
	if stats.Target != 3 {
		t.Errorf("Stats().Target = %d, want 3", stats.Target)
	}
	if stats.Active != 3 {
		t.Errorf("Stats().Active = %d, want 3", stats.Active)
	}
	if got := rec.count(EventSpawned); got != 3 {
		t.Errorf("spawned events = %d, want 3", got)
	}
	if err := s.Healthy(); err != nil {
		t.Errorf("Healthy() = %v, want nil", err)
	}
}

func TestStartBindErrorSpawnsNoWorkers(t *testing.T) {
	// Occupy a port so the bind fails.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to occupy port: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := testServerConfig()
	cfg.Port = port

	s := New(Options{
		Server:  cfg,
		Worker:  config.WorkerConfig{Count: 2},
		Handler: okHandler(),
	})

	err = s.Start()
	if err == nil {
		t.Fatal("Start() on an occupied port should fail")
	}

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error type = %T, want *BindError", err)
	}
	if bindErr.Addr == "" {
		t.Error("BindError.Addr should name the address")
	}

	if got := s.Stats().Active; got != 0 {
		t.Errorf("Stats().Active = %d after bind failure, want 0", got)
	}
}

func TestStartTwice(t *testing.T) {
	s, _ := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 1},
		Handler: okHandler(),
	})

	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
}

func TestServeRequest(t *testing.T) {
	_, base := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 2},
		Handler: okHandler(),
	})

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	s, _ := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 2},
		Handler: okHandler(),
	})

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown() = %v, want nil", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
}

func TestShutdownRefusesNewConnections(t *testing.T) {
	s, _ := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 1},
		Handler: okHandler(),
	})
	addr := s.Addr().String()

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err == nil {
		conn.Close()
		t.Error("dial after shutdown should fail")
	}
}

func TestShutdownWaitsForInflightRequest(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		fmt.Fprintln(w, "done")
	})

	s, base := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 1},
		Handler: handler,
	})

	type result struct {
		status int
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := http.Get(base + "/slow")
		if err != nil {
			resCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		resCh <- result{status: resp.StatusCode}
	}()

	<-started
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}

	res := <-resCh
	if res.err != nil {
		t.Fatalf("in-flight request failed: %v", res.err)
	}
	if res.status != http.StatusOK {
		t.Errorf("in-flight request status = %d, want 200", res.status)
	}
}

func TestShutdownForceTerminatesAfterGrace(t *testing.T) {
	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(2 * time.Second)
	})

	cfg := testServerConfig()
	cfg.GracePeriod = 100 * time.Millisecond

	s, base := startSupervisor(t, Options{
		Server:  cfg,
		Worker:  config.WorkerConfig{Count: 1},
		Handler: handler,
	})

	go func() {
		resp, err := http.Get(base + "/hang")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-started

	begin := time.Now()
	err := s.Shutdown(context.Background())
	elapsed := time.Since(begin)

	if err == nil {
		t.Error("Shutdown() should report workers that outlived the force close")
	}
	if elapsed > 3*time.Second {
		t.Errorf("Shutdown() took %v, should not wait out the handler", elapsed)
	}
}

func TestResizeGrow(t *testing.T) {
	rec := &eventRecorder{}
	s, _ := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 2},
		Handler: okHandler(),
		Sinks:   []EventSink{rec.sink()},
	})

	if err := s.Resize(4); err != nil {
		t.Fatalf("Resize(4) error = %v", err)
	}

	stats := s.Stats()
	if stats.Target != 4 || stats.Active != 4 {
		t.Errorf("Stats() = %+v, want target 4, active 4", stats)
	}
	if got := rec.count(EventSpawned); got != 4 {
		t.Errorf("spawned events = %d, want 4", got)
	}
}

func TestResizeShrinkMarksDraining(t *testing.T) {
	s, base := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 3},
		Handler: okHandler(),
	})

	if err := s.Resize(1); err != nil {
		t.Fatalf("Resize(1) error = %v", err)
	}

	draining := 0
	for _, info := range s.Snapshot() {
		if info.Draining {
			draining++
		}
	}
	if draining != 2 {
		t.Errorf("draining workers = %d, want 2", draining)
	}

	// Drained workers retire after their next request; drive traffic until
	// the pool settles at the new target.
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	waitFor(t, 5*time.Second, func() bool {
		resp, err := client.Get(base + "/")
		if err == nil {
			resp.Body.Close()
		}
		return s.Stats().Active == 1
	}, "pool never shrank to the new target")
}

func TestResizeRejectsInvalidSize(t *testing.T) {
	s, _ := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 1},
		Handler: okHandler(),
	})

	if err := s.Resize(0); err == nil {
		t.Error("Resize(0) should fail")
	}
}

func TestResizeNotRunning(t *testing.T) {
	s := New(Options{
		Server:  testServerConfig(),
		Worker:  config.WorkerConfig{Count: 1},
		Handler: okHandler(),
	})

	if err := s.Resize(2); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Resize() before Start() = %v, want ErrNotRunning", err)
	}
}

// flakyListener injects accept failures to exercise worker replacement.
type flakyListener struct {
	net.Listener
	mu       sync.Mutex
	failures int
}

func (f *flakyListener) Accept() (net.Conn, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("injected accept failure")
	}
	f.mu.Unlock()
	return f.Listener.Accept()
}

func TestCrashedWorkerIsReplaced(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	rec := &eventRecorder{}
	s, base := startSupervisor(t, Options{
		Worker:   config.WorkerConfig{Count: 2},
		Handler:  okHandler(),
		Sinks:    []EventSink{rec.sink()},
		Listener: &flakyListener{Listener: ln, failures: 2},
	})

	waitFor(t, 5*time.Second, func() bool {
		return rec.count(EventCrashed) >= 2
	}, "crashed workers never reported")

	waitFor(t, 5*time.Second, func() bool {
		return s.Stats().Active == 2
	}, "pool never recovered to target size")

	// The replacement workers serve traffic.
	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET after recovery error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status after recovery = %d, want 200", resp.StatusCode)
	}
}

func TestShutdownDuringCrashLoop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	// Workers crash continuously, so the respawn loop is active while
	// shutdown races it. No replacement may be spawned once shutdown has
	// begun.
	rec := &eventRecorder{}
	s, _ := startSupervisor(t, Options{
		Worker:   config.WorkerConfig{Count: 2},
		Handler:  okHandler(),
		Sinks:    []EventSink{rec.sink()},
		Listener: &flakyListener{Listener: ln, failures: 100000},
	})

	waitFor(t, 5*time.Second, func() bool {
		return rec.count(EventCrashed) >= 1
	}, "crash loop never started")

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
	if got := s.Stats().Active; got != 0 {
		t.Errorf("Stats().Active = %d after shutdown, want 0", got)
	}
}

func TestWorkerRecyclingAfterMaxRequests(t *testing.T) {
	rec := &eventRecorder{}
	s, base := startSupervisor(t, Options{
		Worker:  config.WorkerConfig{Count: 1, MaxRequests: 2},
		Handler: okHandler(),
		Sinks:   []EventSink{rec.sink()},
	})

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	for i := 0; i < 5; i++ {
		resp, err := client.Get(base + "/")
		if err != nil {
			t.Fatalf("GET %d error = %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %d status = %d, want 200", i, resp.StatusCode)
		}
	}

	waitFor(t, 5*time.Second, func() bool {
		return rec.count(EventRetired) >= 2
	}, "workers never retired at the recycling threshold")

	waitFor(t, 5*time.Second, func() bool {
		return s.Stats().Active == 1
	}, "pool never recovered after recycling")
}
