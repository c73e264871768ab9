package client

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/aviva/internal/render"
)

// Defaults for Loop timings.
const (
	DefaultPollInterval   = 5 * time.Minute
	DefaultReconnectDelay = time.Second
)

// PublishFunc receives every rendered page.
type PublishFunc func(ctx context.Context, html []byte) error

// LoopConfig wires a Loop.
type LoopConfig struct {
	AppName        string
	EventsURL      string // empty disables server events
	Stylesheet     string // path inlined into the page, empty to link it
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

// Loop keeps the rendered page current. Every render rebuilds all sections
// from the latest snapshot.
type Loop struct {
	cfg     LoopConfig
	syncer  *Syncer
	probe   *Probe
	publish PublishFunc
	logger  *slog.Logger

	snap   render.Snapshot
	online bool
}

// NewLoop creates a Loop.
func NewLoop(cfg LoopConfig, syncer *Syncer, probe *Probe, publish PublishFunc, logger *slog.Logger) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{cfg: cfg, syncer: syncer, probe: probe, publish: publish, logger: logger}
}

// Once syncs and renders a single time.
func (l *Loop) Once(ctx context.Context) error {
	l.online = l.probe.Check(ctx)
	l.snap = l.syncer.Sync(ctx)
	return l.render(ctx)
}

// Run renders once, then re-syncs every poll interval while online, shortly
// after connectivity returns, and on server change events. Losing
// connectivity re-renders the current snapshot with the offline indicator.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Once(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	transitions := make(chan bool)
	changed := make(chan struct{}, 1)

	initial := l.online
	g.Go(func() error { return l.probe.Run(ctx, initial, transitions) })
	if l.cfg.EventsURL != "" {
		g.Go(func() error {
			return watchEvents(ctx, l.cfg.EventsURL, l.cfg.ReconnectDelay, changed, l.logger)
		})
	}
	g.Go(func() error { return l.loop(ctx, transitions, changed) })
	return g.Wait()
}

func (l *Loop) loop(ctx context.Context, transitions <-chan bool, changed <-chan struct{}) error {
	poll := time.NewTicker(l.cfg.PollInterval)
	defer poll.Stop()

	var reconnect <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-poll.C:
			if l.online {
				l.resync(ctx)
			}

		case online := <-transitions:
			l.online = online
			l.logger.Info("client: connectivity changed", slog.Bool("online", online))
			if online {
				reconnect = time.After(l.cfg.ReconnectDelay)
			} else {
				reconnect = nil
			}
			l.snap.Online = online
			l.tryRender(ctx)

		case <-reconnect:
			reconnect = nil
			l.resync(ctx)

		case <-changed:
			l.resync(ctx)
		}
	}
}

func (l *Loop) resync(ctx context.Context) {
	l.snap = l.syncer.Sync(ctx)
	l.tryRender(ctx)
}

func (l *Loop) tryRender(ctx context.Context) {
	if err := l.render(ctx); err != nil {
		l.logger.Error("client: render failed", slog.String("error", err.Error()))
	}
}

func (l *Loop) render(ctx context.Context) error {
	l.snap.Online = l.online
	page := render.Build(l.snap, l.cfg.AppName)
	if l.cfg.Stylesheet != "" {
		if css, err := l.syncer.Asset(ctx, l.cfg.Stylesheet); err == nil {
			page.Stylesheet = template.CSS(css)
		} else {
			l.logger.Debug("client: stylesheet unavailable", slog.String("error", err.Error()))
		}
	}
	var buf bytes.Buffer
	if err := render.WriteHTML(&buf, page); err != nil {
		return err
	}
	return l.publish(ctx, buf.Bytes())
}
