package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/flip-finder/internal/api"
	"github.com/mohamedkhairy/flip-finder/internal/app"
	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting REST API service",
		logger.Int("port", cfg.API.Port),
		logger.String("storage_backend", cfg.Storage.Backend),
		logger.Float64("rate_limit_rps", cfg.API.RateLimitRPS),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg, app.Options{RefreshInterval: cfg.API.RefreshInterval})
	if err != nil {
		logger.Fatal("Failed to initialize services", logger.ErrorField(err))
	}
	defer services.Close()

	if err := services.Loop.Start(); err != nil {
		logger.Fatal("Failed to start refresh loop", logger.ErrorField(err))
	}
	if err := services.ListenForChanges(ctx); err != nil {
		logger.Warn("Definition change notifications unavailable", logger.ErrorField(err))
	}

	// Writes through this process re-evaluate right away
	onChange := api.ChangeFunc(services.Loop.Trigger)

	router := api.NewRouter(
		api.NewColumnHandler(services.Columns, onChange),
		api.NewFilterHandler(services.Filters, onChange),
		api.NewValidationHandler(),
		api.NewTableHandler(services.Engine, services.Loop, services.Columns, services.Filters),
	)

	// Apply middleware
	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.RequestIDMiddleware(),
		api.ErrorHandlingMiddleware(),
		api.RateLimitMiddleware(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           middlewares(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down REST API service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}
	cancel()

	logger.Info("REST API service stopped")
}
