package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/flip-finder/internal/app"
	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/mohamedkhairy/flip-finder/internal/scanner"
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

	logger.Info("Starting scanner service",
		logger.Int("health_port", cfg.Scanner.HealthCheckPort),
		logger.Duration("refresh_interval", cfg.Scanner.RefreshInterval),
		logger.Int("workers", cfg.Engine.Workers),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg, app.Options{})
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

	// Setup health and metrics server
	var wg sync.WaitGroup
	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Scanner.HealthCheckPort),
		Handler:      setupHealthAndMetricsServer(services.Loop),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting health and metrics server",
			logger.Int("port", cfg.Scanner.HealthCheckPort),
		)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health and metrics server failed",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down scanner service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown failed", logger.ErrorField(err))
	}

	wg.Wait()
	cancel()

	stats := services.Loop.GetStats()
	logger.Info("Scanner service stopped",
		logger.Int64("refreshes", stats.Refreshes),
		logger.Int64("evaluations", stats.Evaluations),
		logger.Int64("fetch_errors", stats.FetchErrors),
	)
}

// setupHealthAndMetricsServer sets up HTTP endpoints for health checks,
// metrics and the latest default table
func setupHealthAndMetricsServer(loop *scanner.RefreshLoop) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		snap := loop.Snapshot()
		healthStatus := map[string]interface{}{
			"status":    "UP",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks": map[string]interface{}{
				"refresh_loop": map[string]interface{}{
					"running": loop.IsRunning(),
					"stats":   loop.GetStats(),
				},
				"snapshot": map[string]interface{}{
					"ready":  snap.Ready(),
					"items":  len(snap.Items),
					"source": snap.Source,
				},
			},
		}

		if !loop.IsRunning() {
			status = http.StatusServiceUnavailable
			healthStatus["status"] = "DOWN"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(healthStatus)
	}).Methods("GET")

	// Readiness probe
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if loop.IsRunning() && loop.Snapshot().Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("READY"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
		}
	}).Methods("GET")

	// Liveness probe
	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("LIVE"))
	}).Methods("GET")

	// Latest default table
	router.HandleFunc("/table", func(w http.ResponseWriter, r *http.Request) {
		table := loop.Table()
		w.Header().Set("Content-Type", "application/json")
		if table == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "no table evaluated yet"})
			return
		}
		json.NewEncoder(w).Encode(table)
	}).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return router
}
