// Package main implements the docsift API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsift/docsift/engine/blob"
	"github.com/docsift/docsift/engine/catalog"
	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/events"
	"github.com/docsift/docsift/engine/indexing"
	"github.com/docsift/docsift/engine/ingest"
	"github.com/docsift/docsift/engine/search"
	"github.com/docsift/docsift/pkg/gcp"
	"github.com/docsift/docsift/pkg/metrics"
	"github.com/docsift/docsift/pkg/resilience"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Cloud clients ---
	// A client that cannot be built (usually missing credentials) is
	// replaced by one failing every call, so /health and the other routes
	// stay up and report the cause per request.
	var discovery discoveryAPI
	dc, err := gcp.NewDiscoveryClient(ctx, cfg.DiscoveryEndpoint())
	if err != nil {
		logger.Error("discovery engine client unavailable", "err", err)
		discovery = unavailable{err: err}
	} else {
		defer dc.Close()
		discovery = dc
	}

	var store blob.ObjectStore
	sc, err := gcp.NewStorageClient(ctx)
	if err != nil {
		logger.Error("storage client unavailable", "err", err)
		store = unavailable{err: err}
	} else {
		defer sc.Close()
		store = sc
	}

	met := metrics.New()
	discovery = guardedDiscovery{next: discovery, b: newBreaker(cfg, "discoveryengine", resilience.Transient, met, logger)}
	store = guardedStore{next: store, b: newBreaker(cfg, "gcs", gcp.TransientStorageError, met, logger)}

	// --- Events ---
	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats unavailable, events disabled", "url", cfg.NATSURL, "err", err)
		} else {
			defer nc.Close()
			publisher = events.NewNATSPublisher(nc, logger)
		}
	}

	// --- Services ---
	uploader := blob.New(store, cfg, met, logger)
	svc := services{
		catalog: catalog.New(discovery, cfg, logger),
		objects: uploader,
		search:  search.New(discovery, cfg, met, logger),
		ingest:  ingest.New(uploader, indexing.New(discovery, cfg, met, logger), publisher, logger),
		metrics: met,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(svc, cfg, logger),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting",
			"port", cfg.Port,
			"summary_mode", cfg.SummaryMode,
			"location", cfg.Location,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
