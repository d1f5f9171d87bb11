package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Watcher that talks to Temporal.
type Client struct {
	client       client.Client
	taskQueue    string
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger
}

// NewClient connects to Temporal. pollInterval and maxPolls bound every
// watch started through this client.
func NewClient(host, namespace, taskQueue string, pollInterval time.Duration, maxPolls int, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:       c,
		taskQueue:    taskQueue,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		logger:       logger,
	}, nil
}

// StartWatch starts (or joins) the watch workflow for signature.
func (c *Client) StartWatch(ctx context.Context, signature string) (string, error) {
	id := WatchWorkflowID(signature)

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                c.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		// Generous bound: polling is capped by maxPolls long before this.
		WorkflowExecutionTimeout: time.Duration(c.maxPolls+1)*c.pollInterval + 10*time.Minute,
	}, WatchTransactionWorkflow, WatchTransactionInput{
		Signature:    signature,
		PollInterval: c.pollInterval,
		MaxPolls:     c.maxPolls,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to start watch workflow",
			"signature", signature,
			"workflow_id", id,
			"error", err,
		)
		return "", fmt.Errorf("failed to start watch %q: %w", id, err)
	}

	c.logger.InfoContext(ctx, "watch workflow started",
		"signature", signature,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// SDKClient returns the underlying Temporal SDK client.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}

var _ Watcher = (*Client)(nil)
