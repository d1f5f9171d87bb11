package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/solgate/service/config"
	"github.com/brojonat/solgate/service/db"
	"github.com/brojonat/solgate/service/gateway"
	"github.com/brojonat/solgate/service/metrics"
	natspkg "github.com/brojonat/solgate/service/nats"
	sol "github.com/brojonat/solgate/service/solana"
	"github.com/brojonat/solgate/service/temporal"
)

func main() {
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("connected to database")

	metricsCollector := metrics.NewMetrics(nil)
	store := db.NewStore(dbPool, metricsCollector)

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	solanaClient := sol.NewClient(
		sol.NewRPCClient(cfg.SolanaRPCURL),
		cfg.SolanaNetwork,
		sol.RetryPolicy{
			MaxAttempts: cfg.RPCMaxAttempts,
			Timeout:     cfg.RPCTimeout,
			BackoffBase: cfg.RPCBackoffBase,
			BackoffMax:  cfg.RPCBackoffMax,
		},
		metricsCollector,
		logger,
	)

	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
	if err != nil {
		logger.Error("failed to create NATS publisher", "error", err)
		os.Exit(1)
	}
	defer natsPublisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// The watch workflow checks status through the same normalizer the HTTP
	// API uses, so both report identical statuses for a signature.
	checker := gateway.NewService(solanaClient, nil, nil, gateway.Options{
		MintLookupConcurrency: cfg.MintLookupConcurrency,
		Endpoint:              cfg.SolanaNetwork,
	}, metricsCollector, logger)

	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Checker:           checker,
		Store:             store,
		Publisher:         natsPublisher,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"network", cfg.SolanaNetwork,
		"temporal_host", cfg.TemporalHost,
		"task_queue", cfg.TemporalTaskQueue,
	)

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- worker.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		worker.Stop()
		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
