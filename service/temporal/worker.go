package temporal

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/brojonat/solgate/service/metrics"
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	Checker   StatusChecker
	Store     StoreInterface     // optional
	Publisher PublisherInterface // optional
	Metrics   *metrics.Metrics   // optional
	Logger    *slog.Logger
}

// Worker wraps a Temporal worker and provides lifecycle management.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker connects to Temporal and registers the watch workflow and its activities.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Checker == nil {
		return nil, fmt.Errorf("worker requires a status checker")
	}

	logger := config.Logger.With("component", "temporal_worker")

	logger.Info("creating temporal worker",
		"host", config.TemporalHost,
		"namespace", config.TemporalNamespace,
		"task_queue", config.TaskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}

	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     10,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(WatchTransactionWorkflow)

	activities := NewActivities(config.Checker, config.Store, config.Publisher, config.Metrics, logger)
	w.RegisterActivity(activities.CheckTransactionStatus)
	w.RegisterActivity(activities.RecordWatchStatus)
	w.RegisterActivity(activities.PublishWatchResult)

	logger.Info("registered workflow and activities",
		"workflow", "WatchTransactionWorkflow",
		"activities", []string{"CheckTransactionStatus", "RecordWatchStatus", "PublishWatchResult"},
	)

	return &Worker{
		client: c,
		worker: w,
		logger: logger,
	}, nil
}

// Start begins processing workflows and activities.
// It blocks until the process is interrupted or Stop is called.
func (w *Worker) Start() error {
	w.logger.Info("starting temporal worker")
	if err := w.worker.Run(worker.InterruptCh()); err != nil {
		w.logger.Error("worker stopped with error", "error", err)
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	w.logger.Info("worker stopped gracefully")
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping temporal worker")
	w.worker.Stop()
	w.client.Close()
	w.logger.Info("temporal worker stopped")
}
