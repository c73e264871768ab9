package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/render"
	"github.com/starford/aviva/internal/sse"
	"github.com/starford/aviva/internal/testutil"
)

type portal struct {
	srv    *httptest.Server
	broker *sse.Broker
	mu     sync.Mutex
	doc    models.Document
	down   atomic.Bool
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	p := &portal{
		broker: sse.NewBroker(time.Millisecond),
		doc:    models.DefaultDocument(time.Now()),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		if p.down.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(p.doc)
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		if p.down.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})
	mux.HandleFunc("/styles.css", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("body{color:red}"))
	})
	mux.Handle("/api/events", p.broker)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		p.broker.Close()
		p.srv.Close()
	})
	return p
}

func (p *portal) setVerse(text string) {
	p.mu.Lock()
	p.doc.Verse.Text = text
	p.mu.Unlock()
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Fatal(msg)
}

func TestSyncFromNetworkStoresCache(t *testing.T) {
	p := newPortal(t)
	cache := testutil.TestCacheDB(t)
	p.setVerse("Da rede")

	snap := NewSyncer(p.srv.URL, cache).Sync(context.Background())
	if snap.Source != render.SourceNetwork || snap.Document.Verse.Text != "Da rede" {
		t.Fatalf("snapshot = %s %q", snap.Source, snap.Document.Verse.Text)
	}
	raw, _, err := cache.Get(context.Background(), CacheKey)
	if err != nil || !strings.Contains(string(raw), "Da rede") {
		t.Errorf("cache = %q, %v", raw, err)
	}
}

func TestSyncCacheFreshnessWindow(t *testing.T) {
	p := newPortal(t)
	cache := testutil.TestCacheDB(t)
	ctx := context.Background()
	p.setVerse("Guardado")

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	now := base
	s := NewSyncer(p.srv.URL, cache, WithClock(func() time.Time { return now }))
	if snap := s.Sync(ctx); snap.Source != render.SourceNetwork {
		t.Fatalf("initial source = %s", snap.Source)
	}
	p.down.Store(true)

	now = base.Add(30 * time.Minute)
	snap := s.Sync(ctx)
	if snap.Source != render.SourceCache || snap.Document.Verse.Text != "Guardado" {
		t.Errorf("30 min: source = %s verse = %q", snap.Source, snap.Document.Verse.Text)
	}

	now = base.Add(90 * time.Minute)
	snap = s.Sync(ctx)
	if snap.Source != render.SourceFallback || snap.Document.Verse.Reference != "Filipenses 1:21" {
		t.Errorf("90 min: source = %s verse = %+v", snap.Source, snap.Document.Verse)
	}
}

func TestSyncFallbackWithoutCache(t *testing.T) {
	snap := NewSyncer("http://127.0.0.1:1", nil).Sync(context.Background())
	if snap.Source != render.SourceFallback {
		t.Errorf("source = %s", snap.Source)
	}
}

func TestProbeTransitions(t *testing.T) {
	p := newPortal(t)
	probe := NewProbe(p.srv.URL+"/ping", 10*time.Millisecond)
	if !probe.Check(context.Background()) {
		t.Fatal("expected online")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan bool, 4)
	go probe.Run(ctx, true, out)

	p.down.Store(true)
	select {
	case v := <-out:
		if v {
			t.Error("expected offline transition")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no offline transition")
	}
	p.down.Store(false)
	select {
	case v := <-out:
		if !v {
			t.Error("expected online transition")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no online transition")
	}
}

type pages struct {
	mu   sync.Mutex
	last string
	n    int
}

func (p *pages) publish(_ context.Context, html []byte) error {
	p.mu.Lock()
	p.last = string(html)
	p.n++
	p.mu.Unlock()
	return nil
}

func (p *pages) get() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.n
}

func TestLoopOnce(t *testing.T) {
	p := newPortal(t)
	p.setVerse("Uma vez")
	out := &pages{}
	l := NewLoop(LoopConfig{AppName: "AVIVA", Stylesheet: "/styles.css"},
		NewSyncer(p.srv.URL, testutil.TestCacheDB(t)), NewProbe(p.srv.URL+"/ping", time.Hour), out.publish, nil)

	if err := l.Once(context.Background()); err != nil {
		t.Fatal(err)
	}
	html, n := out.get()
	if n != 1 || !strings.Contains(html, "Uma vez") || !strings.Contains(html, "body{color:red}") {
		t.Errorf("page %d: %s", n, html)
	}
	if strings.Contains(html, "offline-badge") {
		t.Error("rendered offline while server reachable")
	}
}

func TestLoopResyncsOnServerEvent(t *testing.T) {
	p := newPortal(t)
	p.setVerse("Antes")
	out := &pages{}
	l := NewLoop(LoopConfig{AppName: "AVIVA", EventsURL: p.srv.URL + "/api/events", ReconnectDelay: 20 * time.Millisecond},
		NewSyncer(p.srv.URL, testutil.TestCacheDB(t)), NewProbe(p.srv.URL+"/ping", time.Hour), out.publish, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { return p.broker.ClientCount() == 1 }, "event stream not connected")
	p.setVerse("Depois")
	p.broker.PublishContentEvent(sse.KindUpdated, "versiculo")

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		html, _ := out.get()
		return strings.Contains(html, "Depois")
	}, "page not re-rendered after document.changed")
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestLoopConnectivityIndicator(t *testing.T) {
	p := newPortal(t)
	out := &pages{}
	l := NewLoop(LoopConfig{AppName: "AVIVA", ReconnectDelay: 20 * time.Millisecond},
		NewSyncer(p.srv.URL, testutil.TestCacheDB(t)), NewProbe(p.srv.URL+"/ping", 10*time.Millisecond), out.publish, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { _, n := out.get(); return n >= 1 }, "no initial render")
	p.down.Store(true)
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		html, _ := out.get()
		return strings.Contains(html, "offline-badge")
	}, "offline indicator not rendered")

	p.setVerse("De volta")
	p.down.Store(false)
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		html, _ := out.get()
		return strings.Contains(html, "De volta") && !strings.Contains(html, "offline-badge")
	}, "no re-sync after reconnect")
}
