package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dandantas/scout/internal/config"
	"github.com/dandantas/scout/internal/handler"
	"github.com/dandantas/scout/internal/model"
	"github.com/dandantas/scout/internal/orchestrator"
	"github.com/dandantas/scout/internal/provider"
	"github.com/dandantas/scout/internal/registry"
	"github.com/dandantas/scout/pkg/middleware"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	config.InitLogger(cfg)

	slog.Info("Starting Scout Deep Research Service", "version", version)

	// Initialize registry and provider gateway
	reg := registry.New()
	gateway := provider.NewGateway(cfg)

	// Configure providers from the environment when keys are present; the
	// /configure endpoint can still replace them at runtime
	if cfg.GeminiAPIKey != "" && cfg.FirecrawlAPIKey != "" {
		creds := model.Credentials{
			GeminiAPIKey:    cfg.GeminiAPIKey,
			FirecrawlAPIKey: cfg.FirecrawlAPIKey,
		}
		if err := gateway.Configure(creds); err != nil {
			slog.Error("Failed to configure providers from environment", "error", err)
			os.Exit(1)
		}
	}

	// Initialize orchestrator
	orc := orchestrator.New(cfg, reg, gateway)

	// Start the overdue-job watchdog
	var watchdog *orchestrator.Watchdog
	if cfg.WatchdogEnabled {
		watchdog = orchestrator.NewWatchdog(orc, cfg.WatchdogGrace)
		if err := watchdog.Start(cfg.WatchdogInterval); err != nil {
			slog.Error("Failed to start watchdog", "error", err)
			os.Exit(1)
		}
	}

	// Initialize handlers
	researchHandler := handler.NewResearchHandler(orc, reg)
	configureHandler := handler.NewConfigureHandler(gateway)
	healthHandler := handler.NewHealthHandler(gateway, reg, version)

	// Create CORS config
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	// Create router
	router := handler.NewRouter(
		researchHandler,
		configureHandler,
		healthHandler,
		corsConfig,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Stop watchdog
	if watchdog != nil {
		watchdog.Stop()
	}

	// Shutdown HTTP server first so no new jobs arrive
	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Drain in-flight research workflows
	slog.Info("Draining research workflows...")
	orc.Stop(shutdownCtx)

	slog.Info("Scout Deep Research Service stopped")
}
