package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"unishark/triton/pkg/config"
	"unishark/triton/pkg/supervisor"
)

func testMetricsConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "triton",
		Subsystem:              "server",
		RequestDurationBuckets: config.DefaultRequestDurationBuckets,
	}
}

func TestPoolMetricsTarget(t *testing.T) {
	c := NewCollector(testMetricsConfig())
	c.Pool().SetTarget(4)

	if got := testutil.ToFloat64(c.Pool().workersTarget); got != 4 {
		t.Errorf("workers_target = %v, want 4", got)
	}
}

func TestPoolMetricsRecordWorkerEvent(t *testing.T) {
	c := NewCollector(testMetricsConfig())
	pm := c.Pool()

	pm.RecordWorkerEvent(supervisor.Event{Type: supervisor.EventSpawned, WorkerID: 1, PoolSize: 1})
	pm.RecordWorkerEvent(supervisor.Event{Type: supervisor.EventSpawned, WorkerID: 2, PoolSize: 2})
	pm.RecordWorkerEvent(supervisor.Event{Type: supervisor.EventCrashed, WorkerID: 1, PoolSize: 1})
	pm.RecordWorkerEvent(supervisor.Event{Type: supervisor.EventRetired, WorkerID: 2, PoolSize: 0})

	if got := testutil.ToFloat64(pm.workersActive); got != 0 {
		t.Errorf("workers_active = %v, want 0 after last event", got)
	}
	if got := testutil.ToFloat64(pm.exitsTotal.WithLabelValues("crashed")); got != 1 {
		t.Errorf("worker_exits_total{reason=crashed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.exitsTotal.WithLabelValues("retired")); got != 1 {
		t.Errorf("worker_exits_total{reason=retired} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.exitsTotal.WithLabelValues("spawned")); got != 0 {
		t.Errorf("spawns must not count as exits, got %v", got)
	}
}

func TestRequestMetricsRecord(t *testing.T) {
	c := NewCollector(testMetricsConfig())
	rm := c.Requests()

	rm.RecordRequest(http.MethodGet, 200, 10*time.Millisecond, 128)
	rm.RecordRequest(http.MethodGet, 200, 20*time.Millisecond, 256)
	rm.RecordRequest(http.MethodPost, 500, 5*time.Millisecond, 0)

	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("GET", "200")); got != 2 {
		t.Errorf("requests_total{GET,200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("POST", "500")); got != 1 {
		t.Errorf("requests_total{POST,500} = %v, want 1", got)
	}
}

func TestRequestMetricsMiddleware(t *testing.T) {
	c := NewCollector(testMetricsConfig())

	handler := c.Requests().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	if got := testutil.ToFloat64(c.Requests().requestsTotal.WithLabelValues("GET", "418")); got != 1 {
		t.Errorf("requests_total{GET,418} = %v, want 1", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector(testMetricsConfig())
	c.Pool().SetTarget(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "triton_server_workers_target") {
		t.Error("exposition should include triton_server_workers_target")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("exposition should include the Go runtime collector")
	}
}
