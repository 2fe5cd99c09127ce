package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pnl_dashboard/config"
	"pnl_dashboard/goals"
	"pnl_dashboard/internal/cache"
	"pnl_dashboard/internal/httpapi"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/internal/store"
	"pnl_dashboard/internal/watch"
	"pnl_dashboard/logger"
	"pnl_dashboard/metrics"
	"pnl_dashboard/queue"
	"pnl_dashboard/rollups"
)

const shutdownTimeout = 10 * time.Second

// App wires the table backend, cache, refresh queue and HTTP API together.
type App struct {
	cfg     config.Config
	tables  *sheets.Cached
	queue   *queue.Queue
	watcher *watch.Watcher
	handler http.Handler
	closers []func() error
	log     *logger.Entry
}

// New builds every component but starts nothing.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg, log: logger.GetLogger().WithComponent("app")}
	m := metrics.New()

	src, health, err := a.openSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	c, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tables = sheets.NewCached(src, c, time.Duration(cfg.Cache.TTLSec)*time.Second, m)
	a.queue = queue.New(cfg.Refresh.QueueSize, cfg.Refresh.WorkerCount, time.Duration(cfg.Refresh.JobTimeoutSec)*time.Second, m)
	if cfg.Backend == config.BackendCSV && cfg.WatchSnapshots {
		a.watcher = watch.New(cfg.SnapshotDir, cfg.Tables, a.tables, a.queue)
	}

	a.handler = httpapi.NewRouter(httpapi.NewHandler(httpapi.Deps{
		Rollups: rollups.NewService(a.tables, cfg.Tables, m),
		Goals:   goals.NewService(a.tables, cfg.Tables),
		Tables:  a.tables,
		Refs:    cfg.Tables,
		Metrics: m,
		Queue:   a.queue,
		Health:  health,
		Backend: cfg.Backend,
	}))
	return a, nil
}

func (a *App) openSource(ctx context.Context) (sheets.Source, func(context.Context) error, error) {
	switch a.cfg.Backend {
	case config.BackendSheets:
		g, err := sheets.NewGoogle(ctx, a.cfg.Google)
		if err != nil {
			return nil, nil, err
		}
		return g, nil, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("ensure db dir: %w", err)
		}
		st, err := store.Open(a.cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		return sheets.NewSQLite(st), st.Health, nil
	case config.BackendCSV:
		if err := os.MkdirAll(a.cfg.SnapshotDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("ensure snapshot dir: %w", err)
		}
		dir := a.cfg.SnapshotDir
		health := func(context.Context) error {
			_, err := os.Stat(dir)
			return err
		}
		return sheets.NewCSVDir(dir), health, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
	}
}

func (a *App) openCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.Cache.Backend != config.CacheRedis {
		return cache.NewMemory(), nil
	}
	client, err := cache.Connect(ctx, a.cfg.Cache.RedisURL)
	if err != nil {
		return nil, err
	}
	r := cache.NewRedis(client, a.cfg.Cache.KeyPrefix)
	a.closers = append(a.closers, r.Close)
	return r, nil
}

// Handler exposes the HTTP router.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the workers, the snapshot watcher, the cache warmer and the
// HTTP server, and blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	a.queue.Start(ctx)
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch snapshots: %w", err)
		}
	}
	if a.cfg.Refresh.IntervalSec > 0 {
		go a.warmLoop(ctx, time.Duration(a.cfg.Refresh.IntervalSec)*time.Second)
	}

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()
	a.log.WithFields(logger.Fields{"addr": srv.Addr, "backend": a.cfg.Backend}).Info("http listening")

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	// Drain the server and the workers before the deferred Close releases
	// the store and cache they read through.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	a.queue.Stop(shutdownCtx)

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) warmLoop(ctx context.Context, every time.Duration) {
	a.warm()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.warm()
		}
	}
}

// warm queues a refresh of every distinct table. It returns how many were
// accepted.
func (a *App) warm() int {
	queued := 0
	seen := make(map[string]bool)
	for _, name := range a.cfg.Tables.Names() {
		ref, _ := a.cfg.Tables.Lookup(name)
		if ref.IsZero() || seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		job := queue.Job{
			ID:   "warm:" + ref.Key(),
			Kind: "warm",
			Work: func(ctx context.Context) error {
				_, err := a.tables.Refresh(ctx, ref)
				return err
			},
		}
		if a.queue.Enqueue(job) {
			queued++
		}
	}
	a.log.WithField("queued", queued).Debug("cache warm scheduled")
	return queued
}

// Close releases the store and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
