// Package testutil provides shared test helpers for content directories,
// services and cache databases.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/starford/aviva/internal/cachedb"
	"github.com/starford/aviva/internal/contentservice"
	"github.com/starford/aviva/internal/contentstore"
	"github.com/starford/aviva/internal/media"
	"github.com/starford/aviva/internal/storage"
)

// TestCacheDB creates a temporary SQLite cache database that is closed on cleanup.
func TestCacheDB(t *testing.T) *cachedb.DB {
	t.Helper()
	db, err := cachedb.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFS creates a temporary directory with a storage provider on top.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Content is a seeded content service with its upload library.
type Content struct {
	Store     *contentstore.Store
	Service   *contentservice.Service
	Uploads   *media.Library
	UploadDir string
}

// TestContent seeds a content document in a temporary directory and builds
// the service on top. maxUpload <= 0 uses the media default.
func TestContent(t *testing.T, maxUpload int64, onChange contentservice.ChangeFunc) *Content {
	t.Helper()
	_, data := TestFS(t)
	uploadDir, uploads := TestFS(t)

	lib := media.NewLibrary(uploads, maxUpload, nil)
	store := contentstore.New(data)
	if err := store.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return &Content{
		Store:     store,
		Service:   contentservice.NewService(store, lib, onChange),
		Uploads:   lib,
		UploadDir: uploadDir,
	}
}
