// Package accesslog persists per-request records to SQLite.
//
// Records are written asynchronously through a buffered channel so the
// request path never blocks on disk; when the buffer is full, records are
// dropped and counted rather than applying backpressure. A cron-scheduled
// pruner enforces the retention window.
package accesslog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Record is one served request.
type Record struct {
	// ID is the unique record identifier.
	ID string `json:"id"`

	// Time is when the request completed.
	Time time.Time `json:"time"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Path is the request path.
	Path string `json:"path"`

	// Status is the response status code.
	Status int `json:"status"`

	// LatencyMs is the request duration in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// Bytes is the response body size.
	Bytes int `json:"bytes"`

	// RemoteAddr is the client address.
	RemoteAddr string `json:"remote_addr"`

	// RequestID is the correlation ID from the X-Request-ID header.
	RequestID string `json:"request_id"`
}

// Store is the SQLite-backed access log store.
type Store struct {
	db         *sql.DB
	insertStmt *sql.Stmt
}

// Open opens (creating if necessary) the access log database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open access log database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize access log schema: %w", err)
	}

	s.insertStmt, err = db.Prepare(`
		INSERT INTO requests (id, ts, method, path, status, latency_ms, bytes, remote_addr, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		remote_addr TEXT,
		request_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_ts ON requests(ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Insert writes one record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.insertStmt.ExecContext(ctx,
		rec.ID,
		rec.Time.UnixMilli(),
		rec.Method,
		rec.Path,
		rec.Status,
		rec.LatencyMs,
		rec.Bytes,
		rec.RemoteAddr,
		rec.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access record: %w", err)
	}
	return nil
}

// PruneBefore deletes records older than the cutoff and returns the number
// deleted.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE ts < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune access records: %w", err)
	}
	return res.RowsAffected()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, method, path, status, latency_ms, bytes, remote_addr, request_id
		FROM requests ORDER BY ts DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts int64
		if err := rows.Scan(&rec.ID, &ts, &rec.Method, &rec.Path, &rec.Status,
			&rec.LatencyMs, &rec.Bytes, &rec.RemoteAddr, &rec.RequestID); err != nil {
			return nil, fmt.Errorf("failed to scan access record: %w", err)
		}
		rec.Time = time.UnixMilli(ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the store.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		_ = s.insertStmt.Close()
	}
	return s.db.Close()
}
