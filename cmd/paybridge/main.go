// Package main is the entry point for the paybridge cross-chain payment service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/paybridge/business/chain"
	"github.com/fd1az/paybridge/business/execution"
	"github.com/fd1az/paybridge/business/gateway"
	"github.com/fd1az/paybridge/business/pricing"
	"github.com/fd1az/paybridge/business/routing"
	"github.com/fd1az/paybridge/business/settlement"
	"github.com/fd1az/paybridge/internal/apm"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/health"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/metrics"
	"github.com/fd1az/paybridge/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const defaultShutdownTimeout = 20 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "", "Override app.mode: all, api or worker")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("paybridge %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *mode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, mode string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if mode != "" {
		cfg.App.Mode = mode
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.Log.Level), cfg.App.Name, &logger.Options{
		Format:     logger.Format(cfg.Log.Format),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	log.Info(ctx, "starting paybridge",
		"version", version,
		"environment", cfg.App.Environment,
		"mode", cfg.App.Mode,
	)

	traceProvider, err := apm.NewTraceProvider(cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		if err := traceProvider.Stop(); err != nil {
			log.Warn(context.Background(), "failed to stop trace provider", "error", err)
		}
	}()

	metricProvider, err := metrics.NewMetricProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	metricsServer := metrics.NewServer(":"+strconv.Itoa(port), metricProvider, log)
	metricsServer.Start()

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	healthServer := health.NewServer(":"+strconv.Itoa(cfg.Health.Port), version, log)
	mono.RegisterHealthChecks(healthServer)
	healthServer.Start()
	log.Info(ctx, "health server started", "port", cfg.Health.Port)

	// Define modules in dependency order
	modules := []monolith.Module{
		&pricing.Module{},
		&chain.Module{},
		&routing.Module{},
		&settlement.Module{},
		&execution.Module{},
		&gateway.Module{},
	}

	runErr := func() error {
		if err := mono.RegisterModules(modules...); err != nil {
			return fmt.Errorf("failed to register modules: %w", err)
		}
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		log.Info(ctx, "all modules started")

		select {
		case <-ctx.Done():
			log.Info(context.Background(), "shutdown signal received")
			return nil
		case err := <-mono.Done():
			return fmt.Errorf("background worker failed: %w", err)
		}
	}()

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closeErr := errors.Join(
		mono.Close(shutdownCtx),
		healthServer.Stop(shutdownCtx),
		metricsServer.Stop(shutdownCtx),
		metricProvider.Shutdown(shutdownCtx),
	)
	if closeErr != nil {
		log.Error(shutdownCtx, "shutdown incomplete", "error", closeErr)
	} else {
		log.Info(shutdownCtx, "shutdown complete")
	}
	return errors.Join(runErr, closeErr)
}
