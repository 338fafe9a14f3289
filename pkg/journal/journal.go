// Package journal persists worker lifecycle events to SQLite.
//
// Every spawn, exit, crash, and retirement in the pool is recorded so an
// operator can reconstruct what the supervisor did after the fact. The
// journal is an event sink for the supervisor and must never block it, so
// events are buffered and written by a dedicated goroutine.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"unishark/triton/pkg/supervisor"
)

const (
	busyTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	eventBuffer  = 256
)

// WorkerEvent is one persisted lifecycle event.
type WorkerEvent struct {
	// Type is the event type: spawned, exited, crashed, or retired.
	Type string `json:"type"`

	// WorkerID identifies the worker.
	WorkerID int `json:"worker_id"`

	// PoolSize is the pool size after the event.
	PoolSize int `json:"pool_size"`

	// Error describes a crash, empty otherwise.
	Error string `json:"error,omitempty"`

	// Time is when the event occurred.
	Time time.Time `json:"time"`
}

// Journal is the SQLite-backed worker event journal. It implements
// supervisor.EventSink.
type Journal struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	logger     *slog.Logger

	ch        chan supervisor.Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open opens (creating if necessary) the journal database at path and
// starts the writer goroutine.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int(busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	j := &Journal{
		db:     db,
		logger: logger.With("component", "journal"),
		ch:     make(chan supervisor.Event, eventBuffer),
		done:   make(chan struct{}),
	}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	j.insertStmt, err = db.Prepare(`
		INSERT INTO worker_events (type, worker_id, pool_size, error, ts)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	j.wg.Add(1)
	go j.writeLoop()

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worker_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		worker_id INTEGER NOT NULL,
		pool_size INTEGER NOT NULL,
		error TEXT,
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_worker_events_ts ON worker_events(ts);
	`

	_, err := j.db.Exec(schema)
	return err
}

// RecordWorkerEvent buffers one event for persistence. It never blocks;
// events are dropped with a warning when the buffer is full or the
// journal is closed. The buffer channel is never closed, so an event
// racing Close is dropped rather than panicking.
func (j *Journal) RecordWorkerEvent(ev supervisor.Event) {
	select {
	case <-j.done:
		return
	default:
	}

	select {
	case j.ch <- ev:
	case <-j.done:
	default:
		j.logger.Warn("journal buffer full, dropping event",
			"type", string(ev.Type),
			"worker_id", ev.WorkerID,
		)
	}
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()

	for {
		select {
		case ev := <-j.ch:
			j.persist(ev)
		case <-j.done:
			// Flush whatever made it into the buffer before Close.
			for {
				select {
				case ev := <-j.ch:
					j.persist(ev)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) persist(ev supervisor.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := j.insertStmt.ExecContext(ctx,
		string(ev.Type),
		ev.WorkerID,
		ev.PoolSize,
		ev.Error,
		ev.Time.UnixMilli(),
	)
	if err != nil {
		j.logger.Error("failed to persist worker event",
			"type", string(ev.Type),
			"worker_id", ev.WorkerID,
			"error", err,
		)
	}
}

// Events returns up to limit events, newest first.
func (j *Journal) Events(ctx context.Context, limit int) ([]WorkerEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT type, worker_id, pool_size, error, ts
		FROM worker_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query worker events: %w", err)
	}
	defer rows.Close()

	var events []WorkerEvent
	for rows.Next() {
		var ev WorkerEvent
		var errText sql.NullString
		var ts int64
		if err := rows.Scan(&ev.Type, &ev.WorkerID, &ev.PoolSize, &errText, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan worker event: %w", err)
		}
		ev.Error = errText.String
		ev.Time = time.UnixMilli(ts)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close flushes buffered events and closes the database. Close is
// idempotent.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.done)
		j.wg.Wait()

		if j.insertStmt != nil {
			_ = j.insertStmt.Close()
		}
		err = j.db.Close()
	})
	return err
}
