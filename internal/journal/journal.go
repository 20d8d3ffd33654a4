// Package journal keeps a session log of outcomes in sqlite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vocaleye/pkg/intent"
)

// Entry is one logged outcome.
type Entry struct {
	ID         int64
	ActionID   string
	Kind       intent.Kind
	Status     intent.Status
	Reason     intent.Reason
	Summary    string
	Error      string
	Transcript string
	At         time.Time
}

type SQLite struct {
	db *sql.DB
}

// Open creates the database and its parent directory if needed.
func Open(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; :memory: databases are per-connection.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL,
			summary TEXT NOT NULL,
			error TEXT NOT NULL,
			transcript TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_kind ON outcomes(kind);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record appends o together with the transcript that produced it.
func (j *SQLite) Record(ctx context.Context, transcript string, o intent.Outcome) error {
	var errText string
	if o.Err != nil {
		errText = o.Err.Error()
	}
	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes(action_id, kind, status, reason, summary, error, transcript, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ActionID, string(o.Kind), string(o.Status), string(o.Reason), o.Summary, errText, transcript,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (j *SQLite) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, errors.New("n must be positive")
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, action_id, kind, status, reason, summary, error, transcript, created_at
		 FROM outcomes ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                    Entry
			kind, status, reason string
			at                   string
		)
		if err := rows.Scan(&e.ID, &e.ActionID, &kind, &status, &reason, &e.Summary, &e.Error, &e.Transcript, &at); err != nil {
			return nil, err
		}
		e.Kind, e.Status, e.Reason = intent.Kind(kind), intent.Status(status), intent.Reason(reason)
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error { return j.db.Close() }
