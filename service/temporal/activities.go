package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/brojonat/solgate/service/db"
	"github.com/brojonat/solgate/service/gateway"
	"github.com/brojonat/solgate/service/metrics"
	natspkg "github.com/brojonat/solgate/service/nats"
	sol "github.com/brojonat/solgate/service/solana"
)

// WatchTransactionInput starts a watch on one signature.
type WatchTransactionInput struct {
	Signature    string        `json:"signature"`
	PollInterval time.Duration `json:"poll_interval"`
	MaxPolls     int           `json:"max_polls"`
}

// WatchTransactionResult is the last status the watch observed.
type WatchTransactionResult struct {
	Signature          string           `json:"signature"`
	Status             gateway.TxStatus `json:"status"`
	Slot               *uint64          `json:"slot,omitempty"`
	ConfirmationStatus string           `json:"confirmation_status,omitempty"`
	Err                *string          `json:"err,omitempty"`
	Polls              int              `json:"polls"`
	TimedOut           bool             `json:"timed_out"`
	LastCheckError     *string          `json:"last_check_error,omitempty"`
}

// CheckTransactionStatusInput contains parameters for the CheckTransactionStatus activity.
type CheckTransactionStatusInput struct {
	Signature string `json:"signature"`
}

// RecordWatchStatusInput contains parameters for the RecordWatchStatus activity.
type RecordWatchStatusInput struct {
	Signature string           `json:"signature"`
	Status    gateway.TxStatus `json:"status"`
	Slot      *uint64          `json:"slot,omitempty"`
	Err       *string          `json:"err,omitempty"`
	Polls     int              `json:"polls"`
}

// PublishWatchResultInput contains parameters for the PublishWatchResult activity.
type PublishWatchResultInput struct {
	WorkflowID      string                 `json:"workflow_id"`
	Result          WatchTransactionResult `json:"result"`
	DurationSeconds float64                `json:"duration_seconds"`
}

// StatusChecker reports the normalized status of a signature.
// *gateway.Service implements it.
type StatusChecker interface {
	GetTransactionStatus(ctx context.Context, sig solanago.Signature) (*gateway.TransactionStatus, error)
}

// StoreInterface defines the database operations needed by activities.
type StoreInterface interface {
	UpdateTransactionWatchStatus(ctx context.Context, params db.UpdateWatchStatusParams) (*db.TransactionWatch, error)
}

// PublisherInterface defines the NATS publishing operations needed by activities.
type PublisherInterface interface {
	PublishTransactionStatus(ctx context.Context, event *natspkg.TransactionStatusEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// store and publisher are optional.
type Activities struct {
	checker   StatusChecker
	store     StoreInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
func NewActivities(checker StatusChecker, store StoreInterface, publisher PublisherInterface, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		checker:   checker,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CheckTransactionStatus asks the node where a signature is. Malformed
// signatures fail without retry; upstream failures are retried by Temporal.
func (a *Activities) CheckTransactionStatus(ctx context.Context, input CheckTransactionStatusInput) (*gateway.TransactionStatus, error) {
	sig, err := sol.DecodeSignature(input.Signature)
	if err != nil {
		a.metrics.RecordWatchPoll("invalid")
		return nil, temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid signature %q", input.Signature), "InvalidSignature", err)
	}

	st, err := a.checker.GetTransactionStatus(ctx, sig)
	if err != nil {
		a.metrics.RecordWatchPoll("error")
		a.logger.WarnContext(ctx, "transaction status check failed",
			"signature", input.Signature,
			"kind", gateway.KindOf(err),
			"error", err,
		)
		return nil, fmt.Errorf("check transaction status: %w", err)
	}

	a.metrics.RecordWatchPoll(string(st.Status))
	a.logger.DebugContext(ctx, "checked transaction status",
		"signature", input.Signature,
		"status", st.Status,
	)
	return st, nil
}

// RecordWatchStatus stores the latest observed status. A watch row that
// does not exist is logged and ignored.
func (a *Activities) RecordWatchStatus(ctx context.Context, input RecordWatchStatusInput) error {
	if a.store == nil {
		return nil
	}

	params := db.UpdateWatchStatusParams{
		Signature: input.Signature,
		Status:    string(input.Status),
		Err:       input.Err,
		Polls:     input.Polls,
	}
	if input.Slot != nil {
		slot := int64(*input.Slot)
		params.Slot = &slot
	}

	if _, err := a.store.UpdateTransactionWatchStatus(ctx, params); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			a.logger.WarnContext(ctx, "no watch row for signature", "signature", input.Signature)
			return nil
		}
		return fmt.Errorf("record watch status: %w", err)
	}
	return nil
}

// PublishWatchResult announces the outcome of a watch and records its duration.
func (a *Activities) PublishWatchResult(ctx context.Context, input PublishWatchResultInput) error {
	outcome := string(input.Result.Status)
	if input.Result.TimedOut {
		outcome = "timed_out"
	}
	a.metrics.RecordWatchWorkflow(outcome, input.DurationSeconds)

	if a.publisher == nil {
		return nil
	}

	r := input.Result
	event := natspkg.FromTransactionStatus(&gateway.TransactionStatus{
		Signature:          r.Signature,
		Status:             r.Status,
		Slot:               r.Slot,
		ConfirmationStatus: r.ConfirmationStatus,
		Err:                r.Err,
	}, input.WorkflowID, r.Polls)

	if err := a.publisher.PublishTransactionStatus(ctx, event); err != nil {
		return fmt.Errorf("publish watch result: %w", err)
	}
	return nil
}
