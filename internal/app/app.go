package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/perfaudit/internal/infrastructure/wiring"
)

// App runs the audit server: it owns the HTTP listener and the capture
// watcher, and leaves dependency construction to wiring.Container.
type App struct {
	cfg        Config
	container  *wiring.Container
	httpServer *http.Server
}

// New constructs the application by creating a logger, wiring infrastructure
// components via the container, and setting up the HTTP server.
func New(cfg Config) (*App, error) {
	logger := logging.NewText(os.Stdout, cfg.LogLevel)

	container, err := wiring.New(wiring.Params{
		RootDir:         cfg.RootDir,
		HistorySize:     cfg.HistorySize,
		CacheSize:       cfg.CacheSize,
		RateLimiterTTL:  cfg.RateLimiterTTL,
		Rate:            cfg.Rate,
		Burst:           cfg.Burst,
		CalibrationFile: cfg.CalibrationFile,
		RankKey:         cfg.RankKey,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      container.Server(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		container:  container,
		httpServer: httpServer,
	}, nil
}

// Run loads every capture, serves audits until SIGINT/SIGTERM or ctx
// cancellation, then drains in-flight audit requests. A capture tree that
// fails to load at startup is fatal; later reload failures are not.
func (a *App) Run(ctx context.Context) error {
	defer a.container.Close()

	logger := a.container.Logger()

	if _, err := a.reloadCaptures(ctx); err != nil {
		return fmt.Errorf("failed to load captures: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watcher := a.setupWatcher(); watcher != nil {
		defer watcher.Stop()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting perfaudit server", "addr", a.httpServer.Addr, "captures", a.container.CapturesDir())
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// reloadCaptures reads the whole capture tree and swaps it into the server.
// The swap also drops every cached report, since a trace or devtools log may
// have changed under an unchanged capture id. On error nothing is swapped.
func (a *App) reloadCaptures(ctx context.Context) (int, error) {
	idx, err := a.container.LoadCapturesUseCase().Execute(ctx)
	if err != nil {
		return 0, err
	}
	a.container.Server().Rebuild(idx)
	return idx.Len(), nil
}

// setupWatcher reloads captures when a manifest, trace or devtools log
// changes. Imports staged by the repository are hidden files and are only
// seen once renamed into place. A capture still being copied in may fail to
// parse; the previous index keeps serving until the debounced reload after
// the last write succeeds.
func (a *App) setupWatcher() *filesystem.Watcher {
	logger := a.container.Logger()
	dir := a.container.CapturesDir()

	watcher, err := filesystem.NewWatcher(dir, a.cfg.WatcherDebounce, logger, func() {
		n, err := a.reloadCaptures(context.Background())
		if err != nil {
			logger.Error("capture reload failed, keeping previous captures", "error", err)
			return
		}
		logger.Info("hot reload complete", "captures", n)
	})
	if err != nil {
		logger.Warn("capture watcher not available, edits need POST /__admin/reload", "error", err)
		return nil
	}

	watcher.Start()
	logger.Info("capture watcher started", "dir", dir, "debounce", a.cfg.WatcherDebounce)
	return watcher
}
