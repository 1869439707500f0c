// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/meetbook/internal/api"
	"github.com/starford/meetbook/internal/auth"
	"github.com/starford/meetbook/internal/mcpserver"
	"github.com/starford/meetbook/internal/meetingservice"
	"github.com/starford/meetbook/internal/seed"
	"github.com/starford/meetbook/internal/store"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("breaker_enabled", cfg.Breaker.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Directory.Fixture != "" {
		s, err := seed.LoadAndApply(ctx, st, cfg.Directory.Fixture)
		if err != nil {
			return fmt.Errorf("seed directory: %w", err)
		}
		logger.Info("Directory seeded",
			slog.String("fixture", cfg.Directory.Fixture),
			slog.Int("users", s.Users),
			slog.Int("contacts", s.Contacts),
			slog.Int("leads", s.Leads))
	}

	handler, err := NewHandler(cfg, st)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the directory fixture on change.
	if cfg.Directory.Watch {
		g.Go(func() error {
			return seed.Watch(gCtx, cfg.Directory.Fixture, st, logger, nil)
		})
	}

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

// errShutdown cancels the group so background watchers stop with the server.
var errShutdown = errors.New("shutdown")

// NewHandler builds the root router: request middleware, unauthenticated
// health checks and the meeting API under /api.
func NewHandler(cfg *Config, st store.Store) (http.Handler, error) {
	svc, err := newService(cfg, st)
	if err != nil {
		return nil, err
	}
	authn, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, authn))
	return r, nil
}

// RunMCP serves the meeting tools over stdio as the configured dev identity.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// stdout carries the protocol.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	st, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := newService(cfg, st)
	if err != nil {
		return err
	}
	caller, err := devIdentity(cfg)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("user_id", caller.UserID.Hex()), slog.String("role", caller.Role))
	return mcpserver.New(svc, caller).ServeStdio()
}

// Seed applies a directory fixture to the configured store once.
func Seed(ctx context.Context, fixture string, opts ...Option) (seed.Summary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return seed.Summary{}, err
	}
	st, closeStore, err := app.openStore(ctx, slog.Default())
	if err != nil {
		return seed.Summary{}, err
	}
	defer closeStore()
	return seed.LoadAndApply(ctx, st, fixture)
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// openStore returns the injected store or opens the configured backend,
// wrapped in a circuit breaker when enabled.
func (a *application) openStore(ctx context.Context, logger *slog.Logger) (store.Store, func(), error) {
	if a.store != nil {
		return a.store, func() {}, nil
	}
	cfg := a.config

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case StoreDriverMongo:
		st, err = store.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
	default:
		st, err = store.OpenSQLite(cfg.SQLite.Path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	if cfg.Breaker.Enabled {
		st = store.NewBreaker(st, store.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
		}, logger)
	}

	return st, func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", slog.String("error", err.Error()))
		}
	}, nil
}

func newService(cfg *Config, st store.Store) (*meetingservice.Service, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return meetingservice.NewService(st,
		meetingservice.WithAdminRole(cfg.Auth.AdminRole),
		meetingservice.WithLocation(loc),
	), nil
}

func newAuthenticator(cfg *Config) (auth.Authenticator, error) {
	if cfg.Auth.AuthEnabled() {
		return auth.NewJWT(cfg.Auth.Secret), nil
	}
	id, err := devIdentity(cfg)
	if err != nil {
		return nil, err
	}
	slog.Warn("authentication disabled; all requests act as the dev identity",
		slog.String("user_id", id.UserID.Hex()), slog.String("role", id.Role))
	return auth.Static{Identity: id}, nil
}

func devIdentity(cfg *Config) (auth.Identity, error) {
	uid, err := cfg.Auth.DevUser()
	if err != nil {
		return auth.Identity{}, fmt.Errorf("auth: dev user id: %w", err)
	}
	return auth.Identity{UserID: uid, Role: cfg.Auth.DevRole}, nil
}
