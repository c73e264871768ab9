// Package offline implements the portal's offline cache layer: a versioned
// pre-cache of the app shell, cache-first serving with network fallback, and
// the update and notification lifecycle of the installed worker.
//
// A Worker is an http.RoundTripper, so any http.Client can be routed through it.
package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/cachedb"
)

// Phase is the lifecycle state of a Worker.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseInstalling
	PhaseInstalled // waiting for activation
	PhaseActivating
	PhaseActive
	PhaseRedundant
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseInstalling:
		return "installing"
	case PhaseInstalled:
		return "installed"
	case PhaseActivating:
		return "activating"
	case PhaseActive:
		return "active"
	case PhaseRedundant:
		return "redundant"
	}
	return "phase(" + strconv.Itoa(int(p)) + ")"
}

// Defaults used when the Config leaves a field empty.
const (
	CacheNamePrefix          = "aviva-cache-"
	DefaultNotificationTitle = "AVIVA App"
	DefaultPushBody          = "Nova mensagem da AVIVA"
	DefaultIcon              = "/logo.jpeg"
)

// DefaultManifest is the app shell pre-cached on install.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"/styles.css",
	"/script.js",
	"/manifest.json",
	"/logo.jpeg",
	"/admin.html",
	"/meditacao.html",
}

// DefaultBypassPrefixes are never served from or stored in the cache.
var DefaultBypassPrefixes = []string{"/api/", "/uploads/"}

// ErrNotInstalled is returned by Activate on a worker that was never installed.
var ErrNotInstalled = errors.New("offline: worker not installed")

// Config describes one worker version.
type Config struct {
	Version        string
	CacheName      string // defaults to CacheNamePrefix + Version
	Origin         *url.URL
	Manifest       []string
	BypassPrefixes []string
	// SkipWaiting activates right after install instead of waiting for a
	// SkipWaiting message.
	SkipWaiting bool

	NotificationTitle string
	Icon              string
}

func (c Config) withDefaults() Config {
	if c.CacheName == "" {
		c.CacheName = CacheNamePrefix + c.Version
	}
	if c.Manifest == nil {
		c.Manifest = DefaultManifest
	}
	if c.BypassPrefixes == nil {
		c.BypassPrefixes = DefaultBypassPrefixes
	}
	if c.NotificationTitle == "" {
		c.NotificationTitle = DefaultNotificationTitle
	}
	if c.Icon == "" {
		c.Icon = DefaultIcon
	}
	return c
}

// Worker is one installed version of the offline cache layer.
type Worker struct {
	cfg    Config
	caches cachedb.CacheStorage
	next   http.RoundTripper
	logger *slog.Logger

	mu    sync.RWMutex
	phase Phase

	msgCh  chan Message
	events chan Event
}

// NewWorker creates a worker storing responses in caches and reaching the
// network through next (http.DefaultTransport when nil).
func NewWorker(cfg Config, caches cachedb.CacheStorage, next http.RoundTripper, logger *slog.Logger) *Worker {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:    cfg.withDefaults(),
		caches: caches,
		next:   next,
		logger: logger,
		msgCh:  make(chan Message, 16),
		events: make(chan Event, 32),
	}
}

// CacheName returns the versioned cache this worker owns.
func (w *Worker) CacheName() string { return w.cfg.CacheName }

// Phase returns the current lifecycle phase.
func (w *Worker) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.phase
}

func (w *Worker) setPhase(p Phase) {
	w.mu.Lock()
	w.phase = p
	w.mu.Unlock()
}

// Events delivers lifecycle and notification events.
func (w *Worker) Events() <-chan Event { return w.events }

func (w *Worker) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("offline: event dropped", slog.String("event", fmt.Sprintf("%T", ev)))
	}
}

// Install fetches every manifest URL and stores the responses under the
// worker's cache. Either all of them are stored or none is; on failure the
// worker becomes redundant. With SkipWaiting set the worker activates at once.
func (w *Worker) Install(ctx context.Context) error {
	w.setPhase(PhaseInstalling)
	w.logger.Info("offline: installing", slog.String("version", w.cfg.Version), slog.Int("urls", len(w.cfg.Manifest)))

	fetched := make([]*cachedb.Response, 0, len(w.cfg.Manifest))
	for _, raw := range w.cfg.Manifest {
		u, err := w.resolve(raw)
		if err != nil {
			return w.failInstall(fmt.Errorf("offline: install %s: %w", raw, err))
		}
		resp, err := w.fetch(ctx, u)
		if err != nil {
			return w.failInstall(fmt.Errorf("offline: install %s: %w", raw, err))
		}
		fetched = append(fetched, resp)
	}

	if err := w.putAll(ctx, fetched); err != nil {
		_ = w.caches.DeleteCache(ctx, w.cfg.CacheName)
		return w.failInstall(err)
	}

	w.setPhase(PhaseInstalled)
	w.logger.Info("offline: installed", slog.String("cache", w.cfg.CacheName))
	if w.cfg.SkipWaiting {
		return w.Activate(ctx)
	}
	return nil
}

func (w *Worker) failInstall(err error) error {
	w.setPhase(PhaseRedundant)
	w.logger.Error("offline: install failed", slog.String("error", err.Error()))
	return err
}

func (w *Worker) putAll(ctx context.Context, rs []*cachedb.Response) error {
	if bulk, ok := w.caches.(interface {
		PutAll(context.Context, string, []*cachedb.Response) error
	}); ok {
		return bulk.PutAll(ctx, w.cfg.CacheName, rs)
	}
	for _, r := range rs {
		if err := w.caches.Put(ctx, w.cfg.CacheName, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) fetch(ctx context.Context, u *url.URL) (*cachedb.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &cachedb.Response{URL: w.key(u), Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// Activate deletes every other cache and takes control of clients.
func (w *Worker) Activate(ctx context.Context) error {
	switch w.Phase() {
	case PhaseInstalled:
	case PhaseActive:
		return nil
	default:
		return ErrNotInstalled
	}
	w.setPhase(PhaseActivating)

	names, err := w.caches.CacheNames(ctx)
	if err != nil {
		w.setPhase(PhaseInstalled)
		return fmt.Errorf("offline: list caches: %w", err)
	}
	var deleted []string
	for _, name := range names {
		if name == w.cfg.CacheName {
			continue
		}
		if err := w.caches.DeleteCache(ctx, name); err != nil {
			w.setPhase(PhaseInstalled)
			return fmt.Errorf("offline: delete cache %s: %w", name, err)
		}
		w.logger.Info("offline: removed old cache", slog.String("cache", name))
		deleted = append(deleted, name)
	}

	w.setPhase(PhaseActive)
	w.logger.Info("offline: active, clients claimed", slog.String("version", w.cfg.Version))
	w.emit(Activated{CacheName: w.cfg.CacheName, Deleted: deleted})
	return nil
}

// Retire marks a superseded worker as redundant. It stops serving from cache.
func (w *Worker) Retire() {
	w.setPhase(PhaseRedundant)
}

// Post queues msg for the Run loop.
func (w *Worker) Post(ctx context.Context, msg Message) error {
	select {
	case w.msgCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles posted messages until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-w.msgCh:
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) {
	switch m := msg.(type) {
	case SkipWaiting:
		if w.Phase() != PhaseInstalled {
			return
		}
		if err := w.Activate(ctx); err != nil {
			w.logger.Error("offline: skip waiting", slog.String("error", err.Error()))
		}
	case Push:
		body := DefaultPushBody
		if m.HasData {
			body = m.Body
		}
		w.emit(ShowNotification{
			Title:   w.cfg.NotificationTitle,
			Body:    body,
			Icon:    w.cfg.Icon,
			Badge:   w.cfg.Icon,
			Vibrate: []int{100, 50, 100},
			Actions: []NotificationAction{
				{Action: ActionExplore, Title: "Abrir App", Icon: w.cfg.Icon},
				{Action: ActionClose, Title: "Fechar", Icon: w.cfg.Icon},
			},
		})
	case NotificationClick:
		w.emit(NotificationClosed{Action: m.Action})
		if m.Action == ActionExplore {
			w.emit(OpenWindow{URL: "/"})
		}
	}
}

// RoundTrip serves GET requests cache-first. Requests that are not GET, hit
// a bypass prefix, or arrive before activation go straight to the network.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || w.bypass(req.URL.Path) || w.Phase() != PhaseActive {
		return w.next.RoundTrip(req)
	}
	ctx := req.Context()
	key := w.key(req.URL)

	cached, err := w.caches.Match(ctx, w.cfg.CacheName, key)
	if err == nil {
		return toHTTP(cached, req), nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		w.logger.Warn("offline: cache lookup failed", slog.String("url", key), slog.String("error", err.Error()))
	}

	resp, netErr := w.next.RoundTrip(req)
	if netErr != nil {
		if isNavigation(req) {
			if root, err := w.caches.Match(ctx, w.cfg.CacheName, "/"); err == nil {
				return toHTTP(root, req), nil
			}
		}
		return nil, fmt.Errorf("offline: %s unavailable: %w", key, netErr)
	}

	if resp.StatusCode != http.StatusOK || !w.sameOrigin(req.URL) {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("offline: read %s: %w", key, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err := w.caches.Put(ctx, w.cfg.CacheName, &cachedb.Response{
		URL: key, Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body,
	}); err != nil {
		w.logger.Warn("offline: cache store failed", slog.String("url", key), slog.String("error", err.Error()))
	}
	return resp, nil
}

func (w *Worker) bypass(p string) bool {
	for _, prefix := range w.cfg.BypassPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (w *Worker) resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if w.cfg.Origin != nil {
		u = w.cfg.Origin.ResolveReference(u)
	}
	return u, nil
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	if u.Host == "" || w.cfg.Origin == nil {
		return true
	}
	return strings.EqualFold(u.Scheme, w.cfg.Origin.Scheme) && strings.EqualFold(u.Host, w.cfg.Origin.Host)
}

// key is the path and query for same-origin URLs and the full URL otherwise.
func (w *Worker) key(u *url.URL) string {
	if w.sameOrigin(u) {
		k := u.EscapedPath()
		if k == "" {
			k = "/"
		}
		if u.RawQuery != "" {
			k += "?" + u.RawQuery
		}
		return k
	}
	return u.String()
}

func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func toHTTP(r *cachedb.Response, req *http.Request) *http.Response {
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        strconv.Itoa(r.Status) + " " + http.StatusText(r.Status),
		StatusCode:    r.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}
