package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"keymint/internal/config"
	"keymint/internal/infrastructure"
	"keymint/internal/license"
	customMiddleware "keymint/internal/middleware"
	"keymint/internal/services"
	"keymint/internal/store"
	handlers "keymint/internal/transport/http"
)

const (
	// AppName is the human-readable service name.
	AppName = "keymint license server"
	// Version is the build version string.
	Version = "1.2.0"
)

// Application is the main dependency container for the license server.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Store          license.Store
	LicenseService services.LicenseService
	HealthService  *services.HealthService
	Metrics        *infrastructure.MetricsProvider
	Logger         *slog.Logger

	closeStore func() error
}

// NewApplication loads configuration and wires every component.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("store_backend", cfg.Store.Backend))

	metricsProvider, err := infrastructure.InitializeMetrics("keymint", Version, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: metricsProvider,
	}

	if err := app.setupStore(); err != nil {
		return nil, err
	}

	licenseMetrics, err := license.InitializeMetrics(metricsProvider.Meter(license.MeterName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize license metrics: %w", err)
	}

	app.LicenseService = services.NewLicenseService(app.Store, logger, licenseMetrics)
	app.HealthService = services.NewHealthService(app.Store, logger, AppName, Version)

	app.setupRouter()
	app.setupServer()

	return app, nil
}

// setupStore selects the store backend from configuration.
func (a *Application) setupStore() error {
	switch strings.ToLower(a.Config.Store.Backend) {
	case "file":
		a.Store = store.NewFileStore(a.Config.Store.FilePath)
		a.Logger.Info("using file store", slog.String("path", a.Config.Store.FilePath))
	case "memory":
		a.Store = store.NewMemoryStore()
		a.Logger.Warn("using in-memory store, records will not survive restart")
	case "postgres":
		pg, err := store.OpenPostgresStore(context.Background(), a.Config.Store.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to open postgres store: %w", err)
		}
		a.Store = pg
		a.closeStore = pg.Close
		a.Logger.Info("using postgres store")
	default:
		return fmt.Errorf("unknown store backend: %q", a.Config.Store.Backend)
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	licenseHandler := handlers.NewLicenseHandler(a.LicenseService, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Get("/health", healthHandler.HealthCheck)
	r.Handle("/metrics", handlers.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/api", licenseHandler.Routes())
		r.Get("/api/health/ready", healthHandler.ReadinessCheck)
		r.Get("/api/version", healthHandler.Version)
	})

	a.Router = r
}

// setupServer builds the http.Server with the configured timeouts.
func (a *Application) setupServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the server and blocks until an interrupt triggers graceful
// shutdown.
func (a *Application) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		a.Logger.Info("license server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		a.Logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	return a.Shutdown()
}

// Shutdown drains in-flight requests and releases resources.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return err
	}

	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			a.Logger.Warn("store close failed", slog.String("error", err.Error()))
		}
	}

	if err := a.Metrics.Shutdown(ctx); err != nil {
		a.Logger.Warn("metrics shutdown failed", slog.String("error", err.Error()))
	}

	a.Logger.Info("shutdown complete")
	return nil
}
