// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/c-c-k/progirl/internal/api"
	"github.com/c-c-k/progirl/internal/mcpserver"
	"github.com/c-c-k/progirl/internal/sse"
)

// Run starts the HTTP server, the index watcher and the SSE broker, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stdout)}, opts...)
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	s, err := Open(opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := s.Config
	logger := s.Logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("active_collection", s.Registry.ActiveID()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.SQLite.Enabled() {
		if err := s.Service.Sync(); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(s.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, map[string]any{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, map[string]any{
			"status":      "ok",
			"version":     app.version,
			"collections": s.Registry.IDs(),
			"active":      s.Registry.ActiveID(),
			"index":       cfg.SQLite.Enabled(),
			"sse_clients": broker.ClientCount(),
		})
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index current and forward note events to SSE clients.
	if cfg.SQLite.Enabled() {
		g.Go(func() error {
			if err := s.Service.Watch(gCtx, broker.PublishNoteEvent); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

func writeHealth(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	s, err := Open(append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Config.SQLite.Enabled() {
		if err := s.Service.Sync(); err != nil {
			s.Logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	version := app.version
	if version == "" {
		version = "dev"
	}
	return mcpserver.New(s.Service, version).Listen(ctx, os.Stdin, os.Stdout)
}
