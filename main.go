package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/pulse-api/config"
	"github.com/giygas/pulse-api/health"
	"github.com/giygas/pulse-api/heartbeat"
	"github.com/giygas/pulse-api/logging"
	"github.com/giygas/pulse-api/metrics"
	"github.com/giygas/pulse-api/server"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment itself may carry the config
	if err := godotenv.Load(); err != nil {
		logging.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.Env, cfg.LogLevel)

	// The registry and its default collectors are built once, before the
	// server accepts connections, and injected into everything that needs them
	registry := metrics.NewRegistry()

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		logging.Error("Failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}

	reporter := health.NewReporter(health.Liveness())

	hb, err := heartbeat.New(reporter, registry, time.Duration(cfg.HeartbeatInterval)*time.Second)
	if err != nil {
		logging.Error("Failed to set up heartbeat", "error", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, registry, httpMetrics, reporter)
	if err != nil {
		logging.Error("Failed to set up server", "error", err)
		os.Exit(1)
	}

	if err := hb.Start(); err != nil {
		logging.Error("Failed to start heartbeat", "error", err)
		os.Exit(1)
	}
	defer hb.Stop()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
}
