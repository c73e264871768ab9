package cachedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/aviva/internal/apperr"
)

// Get returns the value stored under key and when it was written.
// A missing key yields apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var (
		value []byte
		at    time.Time
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT value, stored_at FROM local_store WHERE key = ?`, key,
	).Scan(&value, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, apperr.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("cachedb: get %s: %w", key, err)
	}
	return value, at, nil
}

// Set writes value under key with timestamp at.
func (db *DB) Set(ctx context.Context, key string, value []byte, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO local_store (key, value, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at
	`, key, value, at.UTC())
	if err != nil {
		return fmt.Errorf("cachedb: set %s: %w", key, err)
	}
	return nil
}
