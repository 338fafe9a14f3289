package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckLiveness(t *testing.T) {
	c := New(0)

	status := c.CheckLiveness(context.Background())
	if status.Status != "ok" {
		t.Errorf("liveness status = %q, want ok", status.Status)
	}
	if status.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestCheckReadinessAllPass(t *testing.T) {
	c := New(0)
	c.Register("pool", func(ctx context.Context) error { return nil })
	c.Register("storage", func(ctx context.Context) error { return nil })

	status := c.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Errorf("checks = %d, want 2", len(status.Checks))
	}
}

func TestCheckReadinessFailure(t *testing.T) {
	c := New(0)
	c.Register("pool", func(ctx context.Context) error { return nil })
	c.Register("storage", func(ctx context.Context) error {
		return errors.New("database unreachable")
	})

	status := c.CheckReadiness(context.Background())
	if status.Status != "unhealthy" {
		t.Errorf("status = %q, want unhealthy", status.Status)
	}
	if status.Checks["storage"].Status != "unhealthy" {
		t.Errorf("storage check = %q, want unhealthy", status.Checks["storage"].Status)
	}
	if status.Checks["storage"].Message != "database unreachable" {
		t.Errorf("storage message = %q", status.Checks["storage"].Message)
	}
	if status.Checks["pool"].Status != "ok" {
		t.Errorf("pool check = %q, want ok", status.Checks["pool"].Status)
	}
}

func TestCheckReadinessTimeout(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	status := c.CheckReadiness(context.Background())
	if status.Status != "unhealthy" {
		t.Errorf("status = %q, want unhealthy for a timed-out check", status.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	c := New(0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rec = httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	c := New(0)
	c.Register("pool", func(ctx context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	c.Register("pool", func(ctx context.Context) error {
		return errors.New("pool below target")
	})

	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not-ready status = %d, want 503", rec.Code)
	}
}
