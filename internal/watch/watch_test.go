package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/aviva/internal/contentstore"
	"github.com/starford/aviva/internal/storage"
)

func watchTestEnv(t *testing.T) (string, *contentstore.Store) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	store := contentstore.New(files)
	if err := store.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}
	return dir, store
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
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatch(t *testing.T, dir string, store *contentstore.Store) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	var reloads atomic.Int32
	go Watch(ctx, dir, store, 20*time.Millisecond, quietLogger(), func() { reloads.Add(1) })
	time.Sleep(100 * time.Millisecond)
	return &reloads
}

func TestWatch_ExternalEditAnnounced(t *testing.T) {
	dir, store := watchTestEnv(t)
	reloads := startWatch(t, dir, store)

	doc, _ := store.Load(context.Background())
	doc.Verse.Text = "alterado fora do servidor"
	data, _ := contentstore.Encode(doc)
	if err := os.WriteFile(filepath.Join(dir, contentstore.DefaultDocumentName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() == 1
	}, "external edit not announced")
}

func TestWatch_OwnWritesIgnored(t *testing.T) {
	dir, store := watchTestEnv(t)
	reloads := startWatch(t, dir, store)

	doc, _ := store.Load(context.Background())
	doc.Verse.Text = "salvo pelo servidor"
	if _, err := store.Save(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	time.Sleep(400 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0 for own write", n)
	}
}

func TestWatch_InvalidDocumentNotAnnounced(t *testing.T) {
	dir, store := watchTestEnv(t)
	reloads := startWatch(t, dir, store)

	_ = os.WriteFile(filepath.Join(dir, contentstore.DefaultDocumentName), []byte("{nope"), 0o644)
	time.Sleep(400 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0 for invalid JSON", n)
	}
}

func TestWatch_OtherFilesIgnored(t *testing.T) {
	dir, store := watchTestEnv(t)
	reloads := startWatch(t, dir, store)

	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d", n)
	}
}
