package db

import (
	"context"
	"fmt"
	"time"
)

// TransactionWatch tracks a signature being followed by a watch workflow.
type TransactionWatch struct {
	Signature  string    `json:"signature"`
	WorkflowID string    `json:"workflow_id"`
	Status     string    `json:"status"`
	Slot       *int64    `json:"slot,omitempty"`
	Err        *string   `json:"err,omitempty"`
	Polls      int       `json:"polls"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertWatchParams registers (or re-registers) a watch.
type UpsertWatchParams struct {
	Signature  string
	WorkflowID string
	Status     string
}

// UpdateWatchStatusParams records the latest observed status.
type UpdateWatchStatusParams struct {
	Signature string
	Status    string
	Slot      *int64
	Err       *string
	Polls     int
}

const watchColumns = `signature, workflow_id, status, slot, err, polls, created_at, updated_at`

// UpsertTransactionWatch creates a watch. Re-registering under the same
// workflow ID keeps the observed status and poll count, since the running
// workflow keeps writing them. A different workflow ID resets the record.
func (s *Store) UpsertTransactionWatch(ctx context.Context, params UpsertWatchParams) (w *TransactionWatch, err error) {
	defer func(start time.Time) { s.observe("upsert", "transaction_watches", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `
		INSERT INTO transaction_watches (signature, workflow_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (signature) DO UPDATE
		SET workflow_id = EXCLUDED.workflow_id,
		    status = CASE WHEN transaction_watches.workflow_id = EXCLUDED.workflow_id
		                  THEN transaction_watches.status ELSE EXCLUDED.status END,
		    slot = CASE WHEN transaction_watches.workflow_id = EXCLUDED.workflow_id
		                THEN transaction_watches.slot ELSE NULL END,
		    err = CASE WHEN transaction_watches.workflow_id = EXCLUDED.workflow_id
		               THEN transaction_watches.err ELSE NULL END,
		    polls = CASE WHEN transaction_watches.workflow_id = EXCLUDED.workflow_id
		                 THEN transaction_watches.polls ELSE 0 END,
		    updated_at = now()
		RETURNING `+watchColumns,
		params.Signature, params.WorkflowID, params.Status,
	)
	w, err = scanWatch(row)
	if err != nil {
		return nil, fmt.Errorf("upsert transaction watch: %w", err)
	}
	return w, nil
}

// UpdateTransactionWatchStatus stores the latest status of a watch.
func (s *Store) UpdateTransactionWatchStatus(ctx context.Context, params UpdateWatchStatusParams) (w *TransactionWatch, err error) {
	defer func(start time.Time) { s.observe("update", "transaction_watches", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `
		UPDATE transaction_watches
		SET status = $2, slot = $3, err = $4, polls = $5, updated_at = now()
		WHERE signature = $1
		RETURNING `+watchColumns,
		params.Signature, params.Status, params.Slot, params.Err, params.Polls,
	)
	w, err = scanWatch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update transaction watch: %w", err)
	}
	return w, nil
}

// GetTransactionWatch returns the watch for a signature.
func (s *Store) GetTransactionWatch(ctx context.Context, signature string) (w *TransactionWatch, err error) {
	defer func(start time.Time) { s.observe("select", "transaction_watches", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+watchColumns+` FROM transaction_watches WHERE signature = $1`, signature)
	w, err = scanWatch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transaction watch: %w", err)
	}
	return w, nil
}

func scanWatch(row rowScanner) (*TransactionWatch, error) {
	var w TransactionWatch
	if err := row.Scan(&w.Signature, &w.WorkflowID, &w.Status, &w.Slot, &w.Err, &w.Polls, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return &w, nil
}
