package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// worker is one concurrent unit of the pool. It accepts connections from
// the shared listener and serves them one at a time; it holds no state
// shared with other workers beyond the listener and the handler reference.
type worker struct {
	s         *Supervisor
	id        int
	startedAt time.Time
	served    atomic.Int64

	drainCh   chan struct{}
	drainOnce sync.Once

	connMu sync.Mutex
	conn   net.Conn
}

func newWorker(s *Supervisor, id int) *worker {
	return &worker{
		s:         s,
		id:        id,
		startedAt: time.Now(),
		drainCh:   make(chan struct{}),
	}
}

// run is the worker's accept loop. It exits on shutdown, on drain, after
// the recycling threshold, or on an unexpected error, and reports the exit
// to the supervisor's monitor.
func (w *worker) run() {
	defer w.s.wg.Done()

	var exitErr error
	retired := false

	defer func() {
		if r := recover(); r != nil {
			exitErr = fmt.Errorf("worker panic: %v", r)
		}
		select {
		case w.s.exitCh <- workerExit{w: w, err: exitErr, retired: retired}:
		case <-w.s.shutdownCh:
			// During shutdown the monitor is gone; Shutdown waits on
			// the waitgroup instead.
		}
	}()

	for {
		if w.stopped() {
			return
		}

		conn, err := w.s.listener.Accept()
		if err != nil {
			if w.stopped() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			// Unexpected accept failure: exit and let the supervisor
			// replace this worker.
			exitErr = fmt.Errorf("accept: %w", err)
			return
		}

		w.setActiveConn(conn)
		w.serveConn(conn)
		w.setActiveConn(nil)

		if w.maxed() {
			retired = true
			return
		}
	}
}

// serveConn serves requests on one connection until the client disconnects,
// keep-alive ends, shutdown begins, or the recycling threshold is reached.
// The connection is owned exclusively by this worker for its duration.
func (w *worker) serveConn(conn net.Conn) {
	defer conn.Close()

	lr := newHeaderLimitReader(conn, w.s.server.MaxHeaderBytes)
	br := bufio.NewReader(lr)

	for {
		// A draining worker still serves the request it accepted; only
		// shutdown and the recycling threshold abandon the connection.
		if w.s.shuttingDown() || w.maxed() {
			return
		}

		// The read deadline covers both header parsing and the wait for
		// the next request on a keep-alive connection.
		if t := w.s.server.ReadTimeout; t > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(t))
		}

		lr.reset()
		req, err := http.ReadRequest(br)
		if err != nil {
			w.respondReadError(conn, err, lr.hitLimit)
			return
		}
		lr.release()

		req.RemoteAddr = conn.RemoteAddr().String()

		resp := w.dispatch(req)

		shouldClose := resp.Close || req.Close || !req.ProtoAtLeast(1, 1) || w.stopped()
		if max := w.s.workerCfg.MaxRequests; max > 0 && w.served.Load()+1 >= int64(max) {
			// Last request before this worker retires.
			shouldClose = true
		}
		resp.Close = shouldClose

		// Drain the unread remainder of the body so a keep-alive
		// connection is positioned at the next request.
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()

		if t := w.s.server.WriteTimeout; t > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(t))
		}
		writeErr := resp.Write(conn)
		w.served.Add(1)

		if writeErr != nil || shouldClose {
			return
		}
	}
}

// dispatch invokes the Application Object for one parsed request and
// captures its response. A panic in the handler is logged and converted to
// a 500 response; it never terminates the worker.
func (w *worker) dispatch(req *http.Request) *http.Response {
	rec := newResponseCapture(req)

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.s.logger.Error("panic in application handler",
					"worker_id", w.id,
					"method", req.Method,
					"path", req.URL.Path,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				rec.DiscardAndError(http.StatusInternalServerError)
			}
		}()
		w.s.handler.ServeHTTP(rec, req)
	}()

	return rec.response()
}

// respondReadError answers an unparseable request with a 4xx response and
// leaves the connection to be closed. Disconnects and idle timeouts get no
// response; there is nobody left to read it.
func (w *worker) respondReadError(conn net.Conn, err error, headerTooLarge bool) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return
	}

	status := http.StatusBadRequest
	if headerTooLarge {
		status = http.StatusRequestHeaderFieldsTooLarge
	}

	w.s.logger.Warn("malformed request",
		"worker_id", w.id,
		"remote_addr", conn.RemoteAddr().String(),
		"status", status,
		"error", err,
	)

	body := http.StatusText(status) + "\n"
	if t := w.s.server.WriteTimeout; t > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t))
	}
	fmt.Fprintf(conn, "HTTP/1.1 %d %s\r\nContent-Type: text/plain; charset=utf-8\r\nConnection: close\r\nContent-Length: %d\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
}

// maxed reports whether the worker has reached its recycling threshold.
func (w *worker) maxed() bool {
	max := w.s.workerCfg.MaxRequests
	return max > 0 && w.served.Load() >= int64(max)
}

// stopped reports whether the worker should stop accepting work, either
// because shutdown began or because this worker is draining.
func (w *worker) stopped() bool {
	select {
	case <-w.s.shutdownCh:
		return true
	case <-w.drainCh:
		return true
	default:
		return false
	}
}

// drain marks the worker as surplus; it retires after its next request.
func (w *worker) drain() {
	w.drainOnce.Do(func() {
		close(w.drainCh)
	})
}

// draining reports whether the worker has been marked surplus.
func (w *worker) draining() bool {
	select {
	case <-w.drainCh:
		return true
	default:
		return false
	}
}

// setActiveConn records the connection the worker currently owns.
func (w *worker) setActiveConn(conn net.Conn) {
	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()
}

// closeActiveConn force-closes the worker's current connection, if any.
// Called by the supervisor when the shutdown grace period expires.
func (w *worker) closeActiveConn() {
	w.connMu.Lock()
	if w.conn != nil {
		_ = w.conn.Close()
	}
	w.connMu.Unlock()
}
