package solana

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Well-known Solana program IDs
var (
	// SystemProgramID owns plain wallet accounts. Its own address is all zeros.
	SystemProgramID = solana.SystemProgramID

	// TokenProgramID is the classic SPL Token program. Token-2022 accounts
	// carry extensions past the fixed layouts and are not decoded here.
	TokenProgramID = solana.TokenProgramID
)

// wireAccount is an account object as returned by the node with base64 encoding.
type wireAccount struct {
	Lamports   uint64               `json:"lamports"`
	Owner      solana.PublicKey     `json:"owner"`
	Data       *rpc.DataBytesOrJSON `json:"data"`
	Executable bool                 `json:"executable"`
	RentEpoch  uint64               `json:"rentEpoch"`
	Space      uint64               `json:"space"`
}

type wireKeyedAccount struct {
	Pubkey  solana.PublicKey `json:"pubkey"`
	Account *wireAccount     `json:"account"`
}

type wireSignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// contextEnvelope is the {"context":..., "value":...} envelope used by most
// account methods. Value stays raw so a missing key can be told apart from
// an explicit null.
type contextEnvelope struct {
	Context *struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value json.RawMessage `json:"value"`
}

// parseContextResult decodes the value of a context envelope. A null or
// absent result and a missing value key are errors. An explicit null value
// is accepted only when nullable is set, and yields the zero T.
func parseContextResult[T any](raw json.RawMessage, nullable bool) (T, error) {
	var zero T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return zero, errors.New("result is null")
	}

	var env contextEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return zero, fmt.Errorf("unmarshal result: %w", err)
	}
	if env.Context == nil {
		return zero, errors.New("result has no context")
	}
	if len(env.Value) == 0 {
		return zero, errors.New("result has no value")
	}
	if bytes.Equal(env.Value, []byte("null")) {
		if !nullable {
			return zero, errors.New("result value is null")
		}
		return zero, nil
	}

	var value T
	if err := json.Unmarshal(env.Value, &value); err != nil {
		return zero, fmt.Errorf("unmarshal value: %w", err)
	}
	return value, nil
}

func (w *wireAccount) toDomain(address solana.PublicKey) LedgerAccount {
	acc := LedgerAccount{
		Address:    address,
		Lamports:   w.Lamports,
		Owner:      w.Owner,
		Executable: w.Executable,
		RentEpoch:  w.RentEpoch,
		Space:      w.Space,
	}
	if w.Data != nil {
		acc.Data = w.Data.GetBinary()
	}
	if acc.Space == 0 {
		acc.Space = uint64(len(acc.Data))
	}
	return acc
}

func (w *wireSignatureStatus) toDomain() SignatureStatus {
	st := SignatureStatus{
		Found:              true,
		Slot:               w.Slot,
		Confirmations:      w.Confirmations,
		ConfirmationStatus: ConfirmationStatus(w.ConfirmationStatus),
	}
	if len(w.Err) > 0 && string(w.Err) != "null" {
		msg := string(w.Err)
		st.Err = &msg
	}
	// Older nodes omit confirmationStatus. A null confirmations count means
	// the block is rooted.
	if st.ConfirmationStatus == "" {
		if w.Confirmations == nil {
			st.ConfirmationStatus = ConfirmationFinalized
		} else {
			st.ConfirmationStatus = ConfirmationConfirmed
		}
	}
	return st
}
