package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rhujeraphorn/web-evana/internal/api"
	"github.com/Rhujeraphorn/web-evana/internal/cache"
	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/events"
	"github.com/Rhujeraphorn/web-evana/internal/metrics"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

func main() {
	cfg := config.Load()
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.ProvincesFile)
	if err != nil {
		return err
	}
	layout := sources.NewLayout(cfg, catalog)

	var st store.Store
	if cfg.DatabaseURL != "" {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := store.Open(openCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			// Files still serve every route endpoint.
			logger.Warn("database unavailable, serving files only", "error", err)
		} else {
			defer func() { _ = db.Close() }()
			st = db
		}
	}

	broker := newBroker(ctx, cfg, logger)
	metrics.RegisterDefault()
	srv := api.NewServer(cfg, layout, st, broker, logger)

	if cfg.WatchSources {
		w, err := cache.NewWatcher(srv.Cache, 0, logger.With("component", "watcher"), layout.DataDir, layout.OutputRoot)
		if err != nil {
			logger.Warn("source watcher disabled", "error", err)
		} else {
			go func() { _ = w.Run(ctx) }()
		}
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", httpSrv.Addr, "data_dir", layout.DataDir, "output_root", layout.OutputRoot, "store", st != nil)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

// newBroker prefers Redis when REDIS_URL is set and reachable.
func newBroker(ctx context.Context, cfg config.Config, logger *slog.Logger) events.Bus {
	if cfg.RedisURL == "" {
		return events.NewBroker()
	}
	rb, err := events.NewRedisBroker(cfg.RedisURL, logger.With("component", "events"))
	if err != nil {
		logger.Warn("invalid REDIS_URL, using in-memory broker", "error", err)
		return events.NewBroker()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rb.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, using in-memory broker", "error", err)
		_ = rb.Close()
		return events.NewBroker()
	}
	return rb
}
