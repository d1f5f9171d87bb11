package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solgate/service/config"
	"github.com/brojonat/solgate/service/db"
	"github.com/brojonat/solgate/service/gateway"
	"github.com/brojonat/solgate/service/metrics"
	natspkg "github.com/brojonat/solgate/service/nats"
	"github.com/brojonat/solgate/service/server"
	sol "github.com/brojonat/solgate/service/solana"
	"github.com/brojonat/solgate/service/temporal"
)

// Version is set via ldflags during build.
var version = "dev"

func main() {
	// Fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"network", cfg.SolanaNetwork,
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

	if err := db.Migrate(ctx, dbPool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewMetrics(nil)
	store := db.NewStore(dbPool, metricsCollector)

	// For premium RPC endpoints, include the API key in the URL
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
	logger.Info("initialized solana RPC client", "network", cfg.SolanaNetwork)

	// Events are best effort: the gateway serves reads without NATS.
	var publisher gateway.IntentPublisher
	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
	if err != nil {
		logger.Warn("NATS unavailable, transfer intents will not be published", "url", cfg.NATSURL, "error", err)
	} else {
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	service := gateway.NewService(solanaClient, store, publisher, gateway.Options{
		MintLookupConcurrency: cfg.MintLookupConcurrency,
		Endpoint:              cfg.SolanaNetwork,
	}, metricsCollector, logger)

	// Without Temporal the watch routes answer 501.
	var watcher temporal.Watcher
	temporalClient, err := temporal.NewClient(
		cfg.TemporalHost,
		cfg.TemporalNamespace,
		cfg.TemporalTaskQueue,
		cfg.WatchPollInterval,
		cfg.WatchMaxPolls,
		logger,
	)
	if err != nil {
		logger.Warn("temporal unavailable, transaction watches disabled", "host", cfg.TemporalHost, "error", err)
	} else {
		defer temporalClient.Close()
		watcher = temporalClient
		logger.Info("connected to temporal",
			"host", cfg.TemporalHost,
			"namespace", cfg.TemporalNamespace,
		)
	}

	// No pool provider is configured; the pool routes answer 501.
	httpServer := server.New(cfg.ServerAddr, service, nil, watcher, store, metricsCollector, logger, version)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
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
