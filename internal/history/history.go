// Package history records one row per capture run in a small SQLite
// database next to the snapshot store. The snapshot directories remain the
// authoritative record; the run log only exists so that "when did the last
// successful capture of category X happen" is one query instead of a
// directory walk.
//
// Recording is non-blocking by policy: a failing history database never
// fails a capture run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS capture_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	category     TEXT NOT NULL,
	year         TEXT NOT NULL,
	month        TEXT NOT NULL,
	report_dir   TEXT NOT NULL,
	diff_label   TEXT NOT NULL DEFAULT '',
	usage_changes INTEGER NOT NULL DEFAULT 0,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	success      INTEGER NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_capture_runs_category ON capture_runs(category, created_at);
`

// Open opens (creating if needed) the run-history database with the
// production pragmas applied via EXEC.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return db, nil
}

// Run is one capture run outcome.
type Run struct {
	Category     string
	Year         string
	Month        string
	ReportDir    string
	DiffLabel    string
	UsageChanges int
	Duration     time.Duration
	Success      bool
	Error        string
}

// Log writes capture runs.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLog creates a Log on an opened history database.
func NewLog(db *sql.DB, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{db: db, logger: logger}
}

// Record inserts one run row. Errors are logged but never returned, so a
// broken history database cannot fail a capture that already persisted its
// snapshot.
func (l *Log) Record(ctx context.Context, run Run) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO capture_runs (
			category, year, month, report_dir, diff_label,
			usage_changes, duration_ms, success, error, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.Category, run.Year, run.Month, run.ReportDir, run.DiffLabel,
		run.UsageChanges, run.Duration.Milliseconds(), run.Success, run.Error,
		time.Now().Unix())
	if err != nil {
		l.logger.Warn("history: record failed", "category", run.Category, "error", err)
	}
}

// Recent returns the most recent runs for one category, newest first.
func (l *Log) Recent(ctx context.Context, category string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT category, year, month, report_dir, diff_label,
		       usage_changes, duration_ms, success, error
		FROM capture_runs
		WHERE category = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ms int64
		if err := rows.Scan(&r.Category, &r.Year, &r.Month, &r.ReportDir, &r.DiffLabel,
			&r.UsageChanges, &ms, &r.Success, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
