package nats

import (
	"time"

	"github.com/brojonat/solgate/service/gateway"
)

// TransferIntentEvent is published to "intents.{from_address}" when a
// transfer intent is recorded.
type TransferIntentEvent struct {
	IntentID    string    `json:"intent_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      uint64    `json:"amount"`
	Memo        string    `json:"memo,omitempty"`
	Status      string    `json:"status"`
	Broadcast   bool      `json:"broadcast"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}

// TransactionStatusEvent is published to "txstatus.{signature}" when a watched
// transaction reaches a final status or the watch gives up.
type TransactionStatusEvent struct {
	Signature          string    `json:"signature"`
	Status             string    `json:"status"`
	Slot               *uint64   `json:"slot,omitempty"`
	ConfirmationStatus string    `json:"confirmation_status,omitempty"`
	Err                *string   `json:"err,omitempty"`
	WorkflowID         string    `json:"workflow_id,omitempty"`
	Polls              int       `json:"polls"`
	PublishedAt        time.Time `json:"published_at"`
}

// FromTransferIntent converts a recorded intent into its event.
func FromTransferIntent(intent *gateway.TransferIntent) *TransferIntentEvent {
	return &TransferIntentEvent{
		IntentID:    intent.ID,
		From:        intent.From,
		To:          intent.To,
		Amount:      intent.Amount,
		Memo:        intent.Memo,
		Status:      string(intent.Status),
		Broadcast:   false,
		CreatedAt:   intent.CreatedAt,
		PublishedAt: time.Now().UTC(),
	}
}

// FromTransactionStatus converts a normalized status into its event.
func FromTransactionStatus(st *gateway.TransactionStatus, workflowID string, polls int) *TransactionStatusEvent {
	return &TransactionStatusEvent{
		Signature:          st.Signature,
		Status:             string(st.Status),
		Slot:               st.Slot,
		ConfirmationStatus: st.ConfirmationStatus,
		Err:                st.Err,
		WorkflowID:         workflowID,
		Polls:              polls,
		PublishedAt:        time.Now().UTC(),
	}
}
