package journal

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
    build_id    TEXT PRIMARY KEY,
    provider    TEXT NOT NULL,
    dataset     TEXT NOT NULL,
    index_dir   TEXT NOT NULL,
    attempted   INTEGER NOT NULL,
    succeeded   INTEGER NOT NULL,
    skipped     INTEGER NOT NULL,
    started_ns  INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS builds_started ON builds(started_ns);
CREATE TABLE IF NOT EXISTS build_skips (
    build_id TEXT NOT NULL REFERENCES builds(build_id) ON DELETE CASCADE,
    seq      INTEGER NOT NULL,
    label    TEXT NOT NULL,
    reason   TEXT NOT NULL,
    PRIMARY KEY (build_id, seq)
);
`

// EnsureSchema creates the journal tables if they do not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
