package gateway

import (
	"context"
	"fmt"
	"unicode/utf8"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	sol "github.com/brojonat/solgate/service/solana"
)

const maxMemoBytes = 566

// GetTransactionStatus reports where sig is in its lifecycle. A signature the
// node has no record of is TxUnknown, not an error.
func (s *Service) GetTransactionStatus(ctx context.Context, sig solanago.Signature) (*TransactionStatus, error) {
	st, err := s.ledger.GetSignatureStatus(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("signature status of %s: %w", sig, err)
	}
	return normalizeStatus(sig, st), nil
}

func normalizeStatus(sig solanago.Signature, st *sol.SignatureStatus) *TransactionStatus {
	out := &TransactionStatus{
		Signature: sol.EncodeSignature(sig),
		Status:    TxUnknown,
	}
	if !st.Found {
		return out
	}

	slot := st.Slot
	out.Slot = &slot
	out.ConfirmationStatus = string(st.ConfirmationStatus)
	switch {
	case st.Err != nil:
		out.Status = TxFailed
		out.Err = st.Err
	case st.ConfirmationStatus == sol.ConfirmationConfirmed,
		st.ConfirmationStatus == sol.ConfirmationFinalized:
		out.Status = TxConfirmed
	default:
		out.Status = TxPending
	}
	return out
}

// SubmitTransferIntent validates and records a transfer request. The gateway
// holds no keys: nothing is signed or broadcast, and the receipt never
// carries a signature.
func (s *Service) SubmitTransferIntent(ctx context.Context, req TransferIntentRequest) (*TransferIntentReceipt, error) {
	from, err := sol.DecodeAddress(req.From)
	if err != nil {
		return nil, invalidInput("from: %v", err)
	}
	to, err := sol.DecodeAddress(req.To)
	if err != nil {
		return nil, invalidInput("to: %v", err)
	}
	if from.Equals(to) {
		return nil, invalidInput("from and to must differ")
	}
	if req.Amount == 0 {
		return nil, invalidInput("amount must be greater than zero")
	}
	if len(req.Memo) > maxMemoBytes || !utf8.ValidString(req.Memo) {
		return nil, invalidInput("memo must be valid UTF-8 of at most %d bytes", maxMemoBytes)
	}

	if s.intents == nil {
		return nil, fmt.Errorf("%w: transfer intent storage is not configured", ErrUnimplemented)
	}

	intent := &TransferIntent{
		ID:        uuid.NewString(),
		From:      sol.EncodeAddress(from),
		To:        sol.EncodeAddress(to),
		Amount:    req.Amount,
		Memo:      req.Memo,
		Status:    IntentPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.intents.RecordTransferIntent(ctx, intent); err != nil {
		s.metrics.RecordIntent("error")
		return nil, fmt.Errorf("record transfer intent: %w", err)
	}
	s.metrics.RecordIntent(string(IntentPending))

	if s.publisher != nil {
		if err := s.publisher.PublishTransferIntent(ctx, intent); err != nil {
			s.logger.WarnContext(ctx, "failed to publish transfer intent",
				"intent_id", intent.ID,
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "transfer intent recorded",
		"intent_id", intent.ID,
		"from", intent.From,
		"to", intent.To,
		"amount", intent.Amount,
	)

	return &TransferIntentReceipt{
		IntentID:  intent.ID,
		Status:    IntentPending,
		Signature: nil,
		Broadcast: false,
		Notice:    NotBroadcastNotice,
	}, nil
}
