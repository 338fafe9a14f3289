package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "worker:\n  count: 2\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	reloads := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) {
			reloads <- cfg
		})
	}()
	defer w.Stop()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	writeConfigFile(t, path, "worker:\n  count: 4\n")

	select {
	case cfg := <-reloads:
		if cfg.Worker.Count != 4 {
			t.Errorf("reloaded Worker.Count = %d, want 4", cfg.Worker.Count)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherInvalidReloadDiscarded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "worker:\n  count: 2\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	reloads := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) {
			reloads <- cfg
		})
	}()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)

	// A config that fails validation must not reach the callback.
	writeConfigFile(t, path, "worker:\n  count: 0\n")

	select {
	case cfg := <-reloads:
		t.Errorf("invalid config reached callback: %+v", cfg.Worker)
	case <-time.After(1 * time.Second):
		// Expected: reload discarded.
	}
}

func TestWatcherStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "worker:\n  count: 2\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(context.Background(), func(*Config) {})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() after Stop() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after Stop()")
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	fired := make(chan struct{}, 8)
	for i := 0; i < 5; i++ {
		d.Trigger(func() { fired <- struct{}{} })
	}

	select {
	case <-fired:
	case <-time.After(1 * time.Second):
		t.Fatal("debounced callback never fired")
	}

	// Rapid triggers should have collapsed into one call.
	select {
	case <-fired:
		t.Error("debouncer fired more than once for rapid triggers")
	case <-time.After(200 * time.Millisecond):
	}
}
