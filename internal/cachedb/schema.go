// Package cachedb persists offline cache storage and the client's local cache
// in SQLite.
package cachedb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_name TEXT NOT NULL,
	url        TEXT NOT NULL,
	status     INTEGER NOT NULL DEFAULT 200,
	header     TEXT NOT NULL DEFAULT '{}',
	body       BLOB,
	stored_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (cache_name, url)
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_name ON cache_entries(cache_name);

CREATE TABLE IF NOT EXISTS local_store (
	key       TEXT PRIMARY KEY,
	value     BLOB NOT NULL,
	stored_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with cache-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cachedb: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cachedb: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cachedb: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
