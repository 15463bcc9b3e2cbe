// Package index provides SQLite-backed resource indexing with optional FTS5 name search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS resources (
	path       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	library    TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(kind, name)
);

CREATE TABLE IF NOT EXISTS refs (
	source_path TEXT NOT NULL,
	target_kind TEXT NOT NULL,
	target_name TEXT NOT NULL,
	slot        TEXT NOT NULL DEFAULT '',
	UNIQUE(source_path, target_kind, target_name, slot)
);

CREATE INDEX IF NOT EXISTS idx_resources_kind ON resources(kind, name);
CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source_path);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_kind, target_name);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
