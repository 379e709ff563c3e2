// propdesk - property management dashboard server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/propdesk/internal/api"
	"github.com/ashureev/propdesk/internal/backend"
	"github.com/ashureev/propdesk/internal/config"
	"github.com/ashureev/propdesk/internal/dashboard"
	"github.com/ashureev/propdesk/internal/identity"
	"github.com/ashureev/propdesk/internal/metrics"
	"github.com/ashureev/propdesk/internal/middleware"
	"github.com/ashureev/propdesk/internal/notify"
	"github.com/ashureev/propdesk/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "backend", cfg.BackendURL)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	views := dashboard.NewManager(func(token string) dashboard.Backend {
		return backend.NewClient(cfg.BackendURL, token, cfg.BackendTimeout)
	}, dashboard.ViewConfig{
		FetchTimeout: cfg.BackendTimeout,
		Notify: notify.Config{
			InfoTTL:  cfg.Notify.InfoTTL,
			ErrorTTL: cfg.Notify.ErrorTTL,
		},
		Logger: logger,
	})
	defer views.CloseAll()

	origins := []string{"*"}
	wsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		origins = []string{cfg.FrontendURL}
		if u, err := url.Parse(cfg.FrontendURL); err == nil && u.Host != "" {
			wsOrigins = []string{u.Host}
		}
	}

	baseHandler := api.NewHandler(repo, views, api.Options{
		IsDev:          cfg.IsDevelopment(),
		OriginPatterns: wsOrigins,
	})
	healthHandler := api.NewHealthHandler(repo)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}
	baseHandler.RegisterRoutes(r)

	// The notification websocket is long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashboard.StartTTLWorker(ctx, repo, views, dashboard.TTLConfig{
		ViewIdle:   cfg.ViewIdleTTL,
		SessionTTL: cfg.SessionTTL,
	})

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
