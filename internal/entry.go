// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/aviva/internal/api"
	"github.com/starford/aviva/internal/cachedb"
	"github.com/starford/aviva/internal/client"
	"github.com/starford/aviva/internal/contentservice"
	"github.com/starford/aviva/internal/contentstore"
	"github.com/starford/aviva/internal/health"
	"github.com/starford/aviva/internal/mcpserver"
	"github.com/starford/aviva/internal/media"
	"github.com/starford/aviva/internal/offline"
	"github.com/starford/aviva/internal/pwa"
	"github.com/starford/aviva/internal/sse"
	"github.com/starford/aviva/internal/storage"
	"github.com/starford/aviva/internal/watch"
)

var errConfigRequired = errors.New("config is required")

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// content holds the storage and services shared by serve and mcp.
type content struct {
	store   *contentstore.Store
	uploads *media.Library
}

func openContent(ctx context.Context, cfg *Config, logger *slog.Logger) (*content, error) {
	data, err := storage.NewFS(cfg.Content.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init content storage: %w", err)
	}
	uploadFS, err := storage.NewFS(cfg.Media.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	store := contentstore.New(data,
		contentstore.WithDocumentName(cfg.Content.Document),
		contentstore.WithBackupsDir(cfg.Content.BackupsDir),
		contentstore.WithLogger(logger))
	if err := store.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed content document: %w", err)
	}

	return &content{
		store:   store,
		uploads: media.NewLibrary(uploadFS, cfg.Media.MaxBytes, cfg.Media.AllowedTypes),
	}, nil
}

// Run starts the portal server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Content.DataDir),
		slog.String("upload_dir", cfg.Media.UploadDir),
		slog.String("public_dir", cfg.Web.PublicDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := openContent(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	svc := contentservice.NewService(c.store, c.uploads, broker.PublishContentEvent)
	rt := health.NewRuntime(cfg.Web.ShortName, cfg.Web.Version)

	sw, err := pwa.ServiceWorkerHandler(pwa.WorkerScript{
		Version:        cfg.Web.Version,
		CacheName:      cfg.Offline.CacheName(),
		Manifest:       cfg.Offline.Precache,
		BypassPrefixes: cfg.Offline.BypassPrefixes,
		Title:          offline.DefaultNotificationTitle,
		DefaultBody:    offline.DefaultPushBody,
		Icon:           cfg.Web.Icon,
	})
	if err != nil {
		return fmt.Errorf("render service worker: %w", err)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rt.Middleware)

	// Health endpoints.
	r.Get("/health", rt.Health)
	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready(c.store.Check))
	r.Get("/ping", rt.Ping)
	r.Get("/status", rt.Status)

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, c.uploads, broker))

	// PWA.
	r.Get("/manifest.json", pwa.ManifestHandler(pwa.NewManifest(pwa.AppInfo{
		Name:            cfg.Web.Name,
		ShortName:       cfg.Web.ShortName,
		Description:     cfg.Web.Description,
		BackgroundColor: cfg.Web.BackgroundColor,
		ThemeColor:      cfg.Web.ThemeColor,
		Lang:            cfg.Web.Lang,
		Icon:            cfg.Web.Icon,
	})))
	r.Get("/sw.js", sw)
	pwa.NewSite(cfg.Web.PublicDir, cfg.Media.UploadDir).Mount(r)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Announce edits made to the document outside the server.
	if cfg.Content.Watch {
		g.Go(func() error {
			dir := filepath.Join(cfg.Content.DataDir, filepath.Dir(cfg.Content.Document))
			err := watch.Watch(gCtx, dir, c.store, watch.DefaultDebounce, logger, func() {
				broker.PublishContentEvent(sse.KindReloaded, "")
			})
			if err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		return health.KeepAlive(gCtx, cfg.KeepAlive.URL, cfg.KeepAlive.Interval, logger)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close the event streams first; Shutdown waits for open handlers.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the remaining goroutines once the server has stopped.
var errShutdown = errors.New("shutdown")

// RunRender runs the client sync/render loop against the configured server
// and writes each rendered page to the output file.
func RunRender(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := strings.TrimRight(cfg.Client.BaseURL, "/")
	origin, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}

	if dir := filepath.Dir(cfg.Client.CacheDB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := cachedb.Open(cfg.Client.CacheDB)
	if err != nil {
		return fmt.Errorf("open cache db: %w", err)
	}
	defer db.Close()

	worker := offline.NewWorker(offline.Config{
		Version:        cfg.Offline.CacheVersion,
		CacheName:      cfg.Offline.CacheName(),
		Origin:         origin,
		Manifest:       cfg.Offline.Precache,
		BypassPrefixes: cfg.Offline.BypassPrefixes,
		SkipWaiting:    true,
		Icon:           cfg.Web.Icon,
	}, db, nil, logger)
	if err := worker.Install(ctx); err != nil {
		// Without an installed cache every request goes to the network.
		logger.Warn("offline cache not installed", slog.String("error", err.Error()))
	}

	syncer := client.NewSyncer(base, db,
		client.WithHTTPClient(&http.Client{Transport: worker, Timeout: 15 * time.Second}),
		client.WithFreshness(cfg.Client.Freshness),
		client.WithLogger(logger))
	probe := client.NewProbe(base+"/ping", cfg.Client.ProbeInterval)

	out, err := storage.NewFS(filepath.Dir(cfg.Client.Output))
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}
	name := filepath.Base(cfg.Client.Output)
	publish := func(_ context.Context, html []byte) error {
		if err := out.Write(name, html); err != nil {
			return err
		}
		logger.Debug("page rendered", slog.String("file", cfg.Client.Output), slog.Int("bytes", len(html)))
		return nil
	}

	loop := client.NewLoop(client.LoopConfig{
		AppName:      cfg.Web.ShortName,
		EventsURL:    base + "/api/events",
		Stylesheet:   cfg.Client.Stylesheet,
		PollInterval: cfg.Client.PollInterval,
	}, syncer, probe, publish, logger)

	if app.once {
		return loop.Once(ctx)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gCtx) })
	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return nil
			case ev := <-worker.Events():
				logger.Info("offline worker event", slog.String("event", fmt.Sprintf("%T", ev)))
			}
		}
	})
	g.Go(func() error { return loop.Run(gCtx) })

	logger.Info("Render loop started",
		slog.String("base_url", base),
		slog.String("output", cfg.Client.Output),
		slog.String("cache", worker.CacheName()))
	return g.Wait()
}

// RunMCP serves the content tools over stdio. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	slog.SetDefault(logger)

	c, err := openContent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	svc := contentservice.NewService(c.store, c.uploads, nil)
	return mcpserver.New(svc, c.uploads, cfg.Web.Version).ServeStdio()
}
