// Package jobstore persists export job history to SQLite.
package jobstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/jobs"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	progress     TEXT NOT NULL DEFAULT '{}',
	error        TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	finished_at  TEXT,
	frame_count  INTEGER NOT NULL DEFAULT 0,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	output_bytes INTEGER NOT NULL DEFAULT 0,
	mime_type    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

// Store is a SQLite-backed job history. It implements jobs.Recorder.
type Store struct {
	conn   *sql.DB
	logger ports.Logger
}

// Open creates or opens the job database at dbPath. Jobs left in a
// non-terminal state by a previous process are marked failed.
func Open(dbPath string, logger ports.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, logger: logger}

	if err := s.markInterruptedJobs(); err != nil && logger != nil {
		logger.Warn("failed to mark interrupted jobs: %v", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// markInterruptedJobs fails jobs the previous process never finished.
func (s *Store) markInterruptedJobs() error {
	_, err := s.conn.Exec(
		`UPDATE jobs SET status = ?, error = 'interrupted by restart', finished_at = ? WHERE status IN (?, ?)`,
		string(jobs.StatusError), timestamp(time.Now()),
		string(jobs.StatusQueued), string(jobs.StatusRunning))
	return err
}

// RecordCreated inserts a new job row.
func (s *Store) RecordCreated(job jobs.Job) error {
	_, err := s.conn.Exec(
		`INSERT INTO jobs (id, status, created_at) VALUES (?, ?, ?)`,
		job.ID, string(job.Status), timestamp(job.CreatedAt))
	return err
}

// RecordProgress updates a job's progress snapshot. The status column
// tracks the running state so interrupted jobs are detectable.
func (s *Store) RecordProgress(id string, p pipeline.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		`UPDATE jobs SET status = ?, progress = ? WHERE id = ?`,
		string(jobs.StatusRunning), string(data), id)
	return err
}

// RecordFinished updates a job's terminal state.
func (s *Store) RecordFinished(job jobs.Job) error {
	data, err := json.Marshal(job.Progress)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		`UPDATE jobs SET status = ?, progress = ?, error = ?, finished_at = ?,
			frame_count = ?, duration_ms = ?, output_bytes = ?, mime_type = ?
		 WHERE id = ?`,
		string(job.Status), string(data), job.Error, timestamp(job.FinishedAt),
		job.FrameCount, job.DurationMs, job.OutputBytes, job.MimeType, job.ID)
	return err
}

// History returns the most recent jobs, newest first.
func (s *Store) History(limit int) ([]jobs.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(
		`SELECT id, status, progress, error, created_at, finished_at,
			frame_count, duration_ms, output_bytes, mime_type
		 FROM jobs ORDER BY created_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobs.Job
	for rows.Next() {
		var (
			job        jobs.Job
			status     string
			progress   string
			createdAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&job.ID, &status, &progress, &job.Error, &createdAt, &finishedAt,
			&job.FrameCount, &job.DurationMs, &job.OutputBytes, &job.MimeType); err != nil {
			return nil, err
		}
		job.Status = jobs.Status(status)
		if err := json.Unmarshal([]byte(progress), &job.Progress); err != nil {
			return nil, fmt.Errorf("decode progress for job %s: %w", job.ID, err)
		}
		job.CreatedAt = parseTimestamp(createdAt)
		if finishedAt.Valid {
			job.FinishedAt = parseTimestamp(finishedAt.String)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ jobs.Recorder = (*Store)(nil)
