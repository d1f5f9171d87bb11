package temporal

import (
	"errors"
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/brojonat/solgate/service/gateway"
)

var a *Activities // for type-safe activity invocation

// Defaults applied when a watch is started without explicit bounds.
const (
	DefaultWatchPollInterval = 2 * time.Second
	DefaultWatchMaxPolls     = 60
)

// WatchTransactionWorkflow polls the status of a signature until it is
// confirmed or failed, or until MaxPolls checks have been made. Every
// observation is written to the watch row, and the final one is published.
//
// A check that fails after its retries counts as a poll; the watch keeps going.
func WatchTransactionWorkflow(ctx workflow.Context, input WatchTransactionInput) (*WatchTransactionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("WatchTransactionWorkflow started", "signature", input.Signature)

	if input.PollInterval <= 0 {
		input.PollInterval = DefaultWatchPollInterval
	}
	if input.MaxPolls <= 0 {
		input.MaxPolls = DefaultWatchMaxPolls
	}

	start := workflow.Now(ctx)
	result := &WatchTransactionResult{
		Signature: input.Signature,
		Status:    gateway.TxUnknown,
	}

	checkCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})
	sideCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})

	for result.Polls < input.MaxPolls {
		result.Polls++

		var st *gateway.TransactionStatus
		err := workflow.ExecuteActivity(checkCtx, a.CheckTransactionStatus, CheckTransactionStatusInput{
			Signature: input.Signature,
		}).Get(ctx, &st)
		if err != nil {
			var appErr *temporalsdk.ApplicationError
			if errors.As(err, &appErr) && appErr.NonRetryable() {
				return nil, fmt.Errorf("watch %s: %w", input.Signature, err)
			}
			msg := err.Error()
			result.LastCheckError = &msg
			logger.Warn("status check failed", "signature", input.Signature, "poll", result.Polls, "error", err)
		} else {
			result.LastCheckError = nil
			result.Status = st.Status
			result.Slot = st.Slot
			result.ConfirmationStatus = st.ConfirmationStatus
			result.Err = st.Err

			err = workflow.ExecuteActivity(sideCtx, a.RecordWatchStatus, RecordWatchStatusInput{
				Signature: input.Signature,
				Status:    st.Status,
				Slot:      st.Slot,
				Err:       st.Err,
				Polls:     result.Polls,
			}).Get(ctx, nil)
			if err != nil {
				logger.Warn("failed to record watch status", "signature", input.Signature, "error", err)
			}

			if st.Status.Terminal() {
				break
			}
		}

		if result.Polls < input.MaxPolls {
			if err := workflow.Sleep(ctx, input.PollInterval); err != nil {
				return nil, err
			}
		}
	}

	result.TimedOut = !result.Status.Terminal()

	err := workflow.ExecuteActivity(sideCtx, a.PublishWatchResult, PublishWatchResultInput{
		WorkflowID:      workflow.GetInfo(ctx).WorkflowExecution.ID,
		Result:          *result,
		DurationSeconds: workflow.Now(ctx).Sub(start).Seconds(),
	}).Get(ctx, nil)
	if err != nil {
		// The outcome is already in the database; a lost event is not fatal.
		logger.Warn("failed to publish watch result", "signature", input.Signature, "error", err)
	}

	logger.Info("WatchTransactionWorkflow finished",
		"signature", input.Signature,
		"status", result.Status,
		"polls", result.Polls,
		"timed_out", result.TimedOut,
	)
	return result, nil
}
