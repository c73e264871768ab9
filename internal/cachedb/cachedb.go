package cachedb

import (
	"context"
	"net/http"
	"time"
)

// CacheStorage holds named caches of HTTP responses keyed by URL.
// Consumers should depend on this interface rather than the concrete *DB type.
type CacheStorage interface {
	Put(ctx context.Context, cache string, r *Response) error
	Match(ctx context.Context, cache, url string) (*Response, error)
	Keys(ctx context.Context, cache string) ([]string, error)
	CacheNames(ctx context.Context) ([]string, error)
	DeleteCache(ctx context.Context, cache string) error
}

// KeyValue is a small persistent string-keyed store with write timestamps.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Set(ctx context.Context, key string, value []byte, at time.Time) error
}

var (
	_ CacheStorage = (*DB)(nil)
	_ KeyValue     = (*DB)(nil)
)

// Response is a stored copy of an HTTP response.
type Response struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}
