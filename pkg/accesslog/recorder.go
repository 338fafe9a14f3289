package accesslog

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"unishark/triton/pkg/middleware"
)

// insertTimeout bounds a single database write so a stuck disk cannot
// wedge the writer goroutine forever.
const insertTimeout = 5 * time.Second

// Recorder accepts records on the request path and persists them in the
// background. Record never blocks: when the buffer is full the record is
// dropped and counted.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	ch        chan Record
	done      chan struct{}
	dropped   atomic.Int64
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRecorder creates a recorder with the given buffer size and starts its
// writer goroutine.
func NewRecorder(store *Store, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:  store,
		logger: logger,
		ch:     make(chan Record, buffer),
		done:   make(chan struct{}),
	}

	r.wg.Add(1)
	go r.writeLoop()

	return r
}

// Record enqueues one record for persistence. It never blocks and is safe
// to call from multiple workers concurrently. Records submitted after
// Close are dropped.
func (r *Recorder) Record(rec Record) {
	select {
	case <-r.done:
		r.dropped.Add(1)
		return
	default:
	}

	// The buffer channel is never closed, so a Record racing Close can at
	// worst lose the record to the drain, never panic.
	select {
	case r.ch <- rec:
	case <-r.done:
		r.dropped.Add(1)
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of records dropped because the buffer was
// full or the recorder was closed.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, flushes the buffer, and waits for the
// writer goroutine to finish.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		if n := r.dropped.Load(); n > 0 {
			r.logger.Warn("access log records dropped", "count", n)
		}
	})
	return nil
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.ch:
			r.persist(rec)
		case <-r.done:
			// Flush whatever made it into the buffer before Close.
			for {
				select {
				case rec := <-r.ch:
					r.persist(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error("failed to persist access record",
			"record_id", rec.ID,
			"error", err,
		)
	}
}

// Middleware returns middleware that records every completed request.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &sizeWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, req)

		r.Record(Record{
			ID:         uuid.NewString(),
			Time:       time.Now(),
			Method:     req.Method,
			Path:       req.URL.Path,
			Status:     sw.status,
			LatencyMs:  time.Since(start).Milliseconds(),
			Bytes:      sw.bytes,
			RemoteAddr: req.RemoteAddr,
			RequestID:  middleware.GetRequestID(req.Context()),
		})
	})
}

// sizeWriter captures the response status and size.
type sizeWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (sw *sizeWriter) WriteHeader(code int) {
	if !sw.written {
		sw.status = code
		sw.written = true
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *sizeWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}
