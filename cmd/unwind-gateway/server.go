// ABOUTME: Wires the accessor, tool packs, router, and MCP endpoint into an HTTP server
// ABOUTME: Runs until the context ends, then drains requests and closes the pool last

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/2389/unwind-gateway/internal/auth"
	"github.com/2389/unwind-gateway/internal/config"
	"github.com/2389/unwind-gateway/internal/mcp"
	"github.com/2389/unwind-gateway/internal/metrics"
	"github.com/2389/unwind-gateway/internal/packs"
	"github.com/2389/unwind-gateway/internal/store"
	"github.com/2389/unwind-gateway/internal/tools"
)

// poolSource is the part of the accessor the HTTP layer needs.
type poolSource interface {
	store.Querier
	metrics.PoolStatter
}

// newRegistry registers every Unwind tool pack against db.
func newRegistry(db store.Querier, logger *slog.Logger) (*packs.Registry, error) {
	registry := packs.NewRegistry(logger)
	for _, p := range tools.Packs(tools.New(db, logger)) {
		if err := registry.RegisterBuiltinPack(p); err != nil {
			return nil, fmt.Errorf("registering %s: %w", p.ID, err)
		}
	}
	return registry, nil
}

// newHandler builds the HTTP routes: the MCP endpoint, health probes, and metrics.
func newHandler(cfg *config.Config, db poolSource, logger *slog.Logger) (http.Handler, error) {
	registry, err := newRegistry(db, logger)
	if err != nil {
		return nil, err
	}

	router := packs.NewRouter(packs.RouterConfig{
		Registry: registry,
		Logger:   logger.With("component", "router"),
		Timeout:  cfg.Tools.CallTimeout,
	})

	server, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Router:        router,
		Logger:        logger,
		TokenVerifier: auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		ServerVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if db.Stat() == nil {
			http.Error(w, "database pool not initialized", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}
	return mux, nil
}

// runServer opens the pool, checks the schema, and serves until ctx ends.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, skipSchemaCheck bool) error {
	acc := store.New(cfg.PoolConfig(), logger)
	if err := acc.Init(ctx); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	// Closed last, after the HTTP server has drained.
	defer acc.Close()

	if !skipSchemaCheck {
		if err := acc.VerifySchema(ctx, tools.ExpectedSchema); err != nil {
			return fmt.Errorf("checking schema: %w", err)
		}
		logger.Info("schema verified", "relations", len(tools.ExpectedSchema))
	}

	if cfg.Metrics.Enabled {
		if err := prometheus.Register(metrics.NewPoolCollector(acc)); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return fmt.Errorf("registering pool metrics: %w", err)
			}
		}
	}

	handler, err := newHandler(cfg, acc, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
