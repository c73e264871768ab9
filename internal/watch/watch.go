// Package watch detects edits to the content document made outside the server.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor or an atomic
// rename produces.
const DefaultDebounce = 200 * time.Millisecond

// Document is the store being watched.
type Document interface {
	DocumentName() string
	Reload(ctx context.Context) (bool, error)
}

// Watch starts an fsnotify watcher on dir, which holds doc's file, and calls
// onReload after each external change that parses. Writes made by the store
// itself are recognised by revision and ignored. It returns when ctx is
// cancelled.
//
// The directory rather than the file is watched so atomic replacements
// (write to a temp file, rename over the target) keep being observed.
func Watch(ctx context.Context, dir string, doc Document, debounce time.Duration, logger *slog.Logger, onReload func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(doc.DocumentName())
	logger.Info("watcher: started", slog.String("dir", dir), slog.String("document", target))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			changed, err := doc.Reload(ctx)
			if err != nil {
				logger.Warn("watcher: document not reloaded", slog.String("error", err.Error()))
				continue
			}
			if !changed {
				continue
			}
			logger.Info("watcher: document changed on disk")
			if onReload != nil {
				onReload()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
