// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scout starts the Aleutian Scout API server.
//
// Aleutian Scout runs evidence-gated investigation sessions:
//   - Content-addressed evidence store (answers are cached, never re-fetched)
//   - Phase-gated progression (EXPLORE -> THINK -> EXECUTE)
//   - Bounded reasoning loop with convergence detection
//   - Live event stream over WebSocket
//
// Usage:
//
//	go run ./cmd/scout
//	go run ./cmd/scout -port 9090 -debug
//	go run ./cmd/scout -config ./config/scout.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8096/v1/scout/health
//
//	# Start an investigation session
//	curl -X POST http://localhost:8096/v1/scout/sessions \
//	  -H "Content-Type: application/json" \
//	  -d '{"task": "find out why the importer is slow"}'
//
//	# Run an operation against the session
//	curl -X POST http://localhost:8096/v1/scout/sessions/<id>/operations/exploration_summary \
//	  -H "Content-Type: application/json" -d '{}'
//
//	# Drive the loop to a final decision
//	curl -X POST http://localhost:8096/v1/scout/sessions/<id>/decision \
//	  -H "Content-Type: application/json" -d '{}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianScout/pkg/logging"
	"github.com/AleutianAI/AleutianScout/services/scout"
	"github.com/AleutianAI/AleutianScout/services/scout/config"
	"github.com/AleutianAI/AleutianScout/services/scout/telemetry"
)

func main() {
	port := flag.Int("port", 0, "API port (overrides config)")
	metricsPort := flag.Int("metrics-port", 0, "Prometheus scrape port (overrides config, 0 keeps config value)")
	configPath := flag.String("config", "", "Path to a scout.yaml config file (default: auto-discover)")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (file logging disabled when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging and Gin request logging")
	flag.Parse()

	if err := run(*port, *metricsPort, *configPath, *logDir, *debug); err != nil {
		slog.Error("scout exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run wires the full server stack and blocks until shutdown.
//
// Description:
//
//	Load order matters: logging first so every later failure is
//	structured, then config, then telemetry, then the service. The
//	API and metrics listeners run under one errgroup; the first
//	SIGINT/SIGTERM drains both with the configured grace period.
//
// Outputs:
//
//	error - Non-nil if startup fails or a listener dies.
func run(port, metricsPort int, configPath, logDir string, debug bool) error {
	// --- Logging ---
	level := logging.LevelInfo
	if debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "scout",
		JSON:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// --- Configuration ---
	if configPath == "" {
		configPath = config.Discover()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if metricsPort > 0 {
		cfg.Server.MetricsPort = metricsPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = scout.ServiceVersion
	telCfg.PrometheusPort = cfg.Server.MetricsPort
	shutdownTelemetry, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("scout"))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// --- Service ---
	svc := scout.NewService(scout.FromConfig(cfg), scout.WithMetrics(metrics))
	handlers := scout.NewHandlers(svc)

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(telCfg.ServiceName))
	router.Use(telemetry.GinMetrics(metrics))
	if debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	scout.RegisterRoutes(v1, handlers)

	// --- Config hot reload ---
	// Only an on-disk config can change under us; the embedded default
	// cannot.
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, svc.ApplyConfig)
		if err != nil {
			slog.Warn("config watcher unavailable",
				slog.String("path", configPath),
				slog.String("error", err.Error()))
		} else {
			go watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	// --- Servers ---
	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	apiServer := &http.Server{
		Addr:         apiAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsPort > 0 {
		if h := telemetry.MetricsHandler(); h != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", h)
			metricsServer = &http.Server{
				Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
				Handler:     mux,
				ReadTimeout: 10 * time.Second,
			}
		}
	}

	printBanner(cfg.Server.Port, cfg.Server.MetricsPort)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting scout API server", slog.String("address", apiAddr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			slog.Info("starting metrics server", slog.String("address", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down scout server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()

		var errs []error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown api server: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// printBanner prints the startup banner when stdout is a terminal.
// Piped and containerized runs get structured logs only.
func printBanner(port, metricsPort int) {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return
	}

	metricsLine := "disabled"
	if metricsPort > 0 {
		metricsLine = fmt.Sprintf("http://localhost:%d/metrics", metricsPort)
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                      ALEUTIAN SCOUT SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Evidence-gated investigation sessions with cached exploration,   ║
║  phase-gated reasoning, and convergent decision making.           ║
║  Metrics: %-56s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/scout/health                  │  ║
║  │                                                             │  ║
║  │ # Start a session (required first!)                         │  ║
║  │ curl -X POST http://localhost:%d/v1/scout/sessions \      │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"task": "why is the importer slow?"}'                │  ║
║  │                                                             │  ║
║  │ # List the session's operations                             │  ║
║  │ curl localhost:%d/v1/scout/sessions/<id>/operations       │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints (per session, under /v1/scout):                        ║
║  ├── Sessions: /sessions, /sessions/:id                           ║
║  ├── Operations (8): /sessions/:id/operations/:name               ║
║  ├── Gate: /sessions/:id/gate/before, /gate/after                 ║
║  ├── Loop: /sessions/:id/results, /sessions/:id/decision          ║
║  └── Events: /sessions/:id/events, /events/stream (WebSocket)     ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, metricsLine, port, port, port)
}
