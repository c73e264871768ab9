// Package client is the member-facing side of the portal: it keeps a local
// copy of the content Document, watches connectivity and re-renders the home
// page whenever something changes.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/cachedb"
	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/render"
)

// CacheKey is the local cache entry holding the last fetched document.
const CacheKey = "aviva_data_cache"

// DefaultFreshness is how long a locally cached document may be used when
// the network is unavailable.
const DefaultFreshness = time.Hour

// Syncer loads the Document from the network, then the local cache, then the
// built-in fallback.
type Syncer struct {
	baseURL   string
	http      *http.Client
	cache     cachedb.KeyValue
	freshness time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) SyncerOption {
	return func(s *Syncer) { s.http = c }
}

// WithFreshness sets the local cache freshness window.
func WithFreshness(d time.Duration) SyncerOption {
	return func(s *Syncer) { s.freshness = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a Syncer for the server at baseURL. cache may be nil.
func NewSyncer(baseURL string, cache cachedb.KeyValue, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		cache:     cache,
		freshness: DefaultFreshness,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fallback returns the document used when nothing else is available.
func Fallback() models.Document {
	return models.FallbackDocument()
}

// Sync returns the best available document. It never fails: the fallback is
// the last resort. Online is left false; the caller knows connectivity.
func (s *Syncer) Sync(ctx context.Context) render.Snapshot {
	doc, raw, err := s.fetch(ctx)
	if err == nil {
		now := s.now()
		if s.cache != nil {
			if err := s.cache.Set(ctx, CacheKey, raw, now); err != nil {
				s.logger.Warn("client: cache store failed", slog.String("error", err.Error()))
			}
		}
		s.logger.Debug("client: loaded from server")
		return render.Snapshot{Document: *doc, Source: render.SourceNetwork, FetchedAt: now}
	}
	s.logger.Warn("client: using local data", slog.String("error", err.Error()))

	if snap, ok := s.fromCache(ctx); ok {
		return snap
	}
	s.logger.Info("client: using fallback data")
	return render.Snapshot{Document: Fallback(), Source: render.SourceFallback}
}

func (s *Syncer) fromCache(ctx context.Context) (render.Snapshot, bool) {
	if s.cache == nil {
		return render.Snapshot{}, false
	}
	raw, at, err := s.cache.Get(ctx, CacheKey)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("client: cache read failed", slog.String("error", err.Error()))
		}
		return render.Snapshot{}, false
	}
	age := s.now().Sub(at)
	if age >= s.freshness {
		s.logger.Info("client: cached data expired", slog.Duration("age", age))
		return render.Snapshot{}, false
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("client: cached data unreadable", slog.String("error", err.Error()))
		return render.Snapshot{}, false
	}
	s.logger.Debug("client: loaded from local cache", slog.Duration("age", age))
	return render.Snapshot{Document: doc, Source: render.SourceCache, FetchedAt: at}, true
}

func (s *Syncer) fetch(ctx context.Context) (*models.Document, []byte, error) {
	raw, err := s.get(ctx, "/api/data")
	if err != nil {
		return nil, nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("client: decode document: %w", err)
	}
	return &doc, raw, nil
}

// Asset fetches a static file from the server through the client's transport.
func (s *Syncer) Asset(ctx context.Context, path string) ([]byte, error) {
	return s.get(ctx, path)
}

func (s *Syncer) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("client: get %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read %s: %w", path, err)
	}
	return body, nil
}
