// pkg/store/store.go

// Package store provides the durable SQLite database backing the package
// metadata cache and the append-only transaction audit log. Cache rows
// are observed backend state and may be refreshed at will; audit rows are
// never updated or deleted.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS package_cache (
	name         TEXT NOT NULL,
	backend      TEXT NOT NULL,
	version      TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	dependencies TEXT NOT NULL DEFAULT '[]',
	installed    INTEGER NOT NULL DEFAULT 0,
	fetched_at   DATETIME NOT NULL,
	PRIMARY KEY (name, backend)
);

CREATE TABLE IF NOT EXISTS audit_log (
	txn_id           TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	timestamp        DATETIME NOT NULL,
	step_description TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	PRIMARY KEY (txn_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_cache_name ON package_cache(name);
CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_log(timestamp);
`

// DB wraps a sql.DB with cache and audit operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
