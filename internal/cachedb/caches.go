package cachedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/starford/aviva/internal/apperr"
)

// Put stores r under (cache, r.URL), replacing any previous copy.
func (db *DB) Put(ctx context.Context, cache string, r *Response) error {
	header, err := json.Marshal(r.Header)
	if err != nil {
		return fmt.Errorf("cachedb: encode header: %w", err)
	}
	at := r.StoredAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_name, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status    = excluded.status,
			header    = excluded.header,
			body      = excluded.body,
			stored_at = excluded.stored_at
	`, cache, r.URL, r.Status, string(header), r.Body, at.UTC())
	if err != nil {
		return fmt.Errorf("cachedb: put %s: %w", r.URL, err)
	}
	return nil
}

// PutAll stores every response in one transaction. Nothing is stored if any
// write fails.
func (db *DB) PutAll(ctx context.Context, cache string, rs []*Response) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cachedb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (cache_name, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cachedb: prepare put: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rs {
		header, err := json.Marshal(r.Header)
		if err != nil {
			return fmt.Errorf("cachedb: encode header: %w", err)
		}
		at := r.StoredAt
		if at.IsZero() {
			at = now
		}
		if _, err := stmt.ExecContext(ctx, cache, r.URL, r.Status, string(header), r.Body, at.UTC()); err != nil {
			return fmt.Errorf("cachedb: put %s: %w", r.URL, err)
		}
	}
	return tx.Commit()
}

// Match returns the stored response for url, or apperr.ErrNotFound.
func (db *DB) Match(ctx context.Context, cache, url string) (*Response, error) {
	var (
		r      = Response{URL: url}
		header string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM cache_entries WHERE cache_name = ? AND url = ?`,
		cache, url,
	).Scan(&r.Status, &header, &r.Body, &r.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cachedb: match %s: %w", url, err)
	}
	r.Header = http.Header{}
	if err := json.Unmarshal([]byte(header), &r.Header); err != nil {
		return nil, fmt.Errorf("cachedb: decode header: %w", err)
	}
	return &r, nil
}

// Keys lists the URLs stored in cache, sorted.
func (db *DB) Keys(ctx context.Context, cache string) ([]string, error) {
	return db.strings(ctx, `SELECT url FROM cache_entries WHERE cache_name = ? ORDER BY url`, cache)
}

// CacheNames lists every cache that holds at least one entry.
func (db *DB) CacheNames(ctx context.Context) ([]string, error) {
	return db.strings(ctx, `SELECT DISTINCT cache_name FROM cache_entries ORDER BY cache_name`)
}

// DeleteCache drops every entry of cache.
func (db *DB) DeleteCache(ctx context.Context, cache string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_name = ?`, cache); err != nil {
		return fmt.Errorf("cachedb: delete cache %s: %w", cache, err)
	}
	return nil
}

func (db *DB) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cachedb: query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
