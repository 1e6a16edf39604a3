// Package journal keeps a SQLite history of index builds and the images each
// build skipped.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/viant/imgsim/builder"
	"github.com/viant/imgsim/engine"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record is one finished build, successful or not.
type Record struct {
	Report   *builder.Report
	Dataset  string
	IndexDir string
	Err      error
}

// Entry is a journaled build.
type Entry struct {
	BuildID   string        `json:"build_id"`
	Provider  string        `json:"provider"`
	Dataset   string        `json:"dataset"`
	IndexDir  string        `json:"index_dir"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// Journal persists build records.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := engine.Open(path)
	if err != nil {
		return nil, err
	}
	j, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an open database, ensuring the schema exists.
func New(ctx context.Context, db *sql.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: db is nil")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("journal: ensure schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// Record stores a build and its skipped images in one transaction.
func (j *Journal) Record(ctx context.Context, rec Record) error {
	if rec.Report == nil {
		return fmt.Errorf("journal: record without report")
	}
	r := rec.Report
	status, msg := StatusOK, ""
	if rec.Err != nil {
		status, msg = StatusFailed, rec.Err.Error()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO builds(build_id, provider, dataset, index_dir, attempted, succeeded, skipped, started_ns, duration_ns, status, error)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BuildID, r.Provider, rec.Dataset, rec.IndexDir, r.Attempted, r.Succeeded, len(r.Skipped),
		r.Started.UnixNano(), int64(r.Duration), status, msg)
	if err != nil {
		return fmt.Errorf("journal: insert build %s: %w", r.BuildID, err)
	}
	if len(r.Skipped) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO build_skips(build_id, seq, label, reason) VALUES(?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, s := range r.Skipped {
			if _, err := stmt.ExecContext(ctx, r.BuildID, i, s.Label, s.Reason); err != nil {
				return fmt.Errorf("journal: insert skip %s: %w", s.Label, err)
			}
		}
	}
	return tx.Commit()
}

// List returns up to limit builds, newest first. A limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `SELECT build_id, provider, dataset, index_dir, attempted, succeeded, skipped, started_ns, duration_ns, status, error
FROM builds ORDER BY started_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var started, duration int64
		if err := rows.Scan(&e.BuildID, &e.Provider, &e.Dataset, &e.IndexDir, &e.Attempted, &e.Succeeded, &e.Skipped, &started, &duration, &e.Status, &e.Error); err != nil {
			return nil, err
		}
		e.Started = time.Unix(0, started).UTC()
		e.Duration = time.Duration(duration)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Skips returns the images a build skipped, in the order they were skipped.
func (j *Journal) Skips(ctx context.Context, buildID string) ([]builder.Skip, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT label, reason FROM build_skips WHERE build_id = ? ORDER BY seq`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []builder.Skip{}
	for rows.Next() {
		var s builder.Skip
		if err := rows.Scan(&s.Label, &s.Reason); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
