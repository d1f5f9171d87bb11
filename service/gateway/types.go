package gateway

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const lamportsPerSOLDecimals = 9

// AccountInfo is the normalized view of an on-chain account.
type AccountInfo struct {
	Address    string  `json:"address"`
	Lamports   uint64  `json:"lamports"`
	SOL        float64 `json:"sol"`
	Owner      string  `json:"owner"`
	Executable bool    `json:"executable"`
	RentEpoch  uint64  `json:"rent_epoch"`
	Space      uint64  `json:"space"`
}

// Balance is the native SOL balance of an address.
type Balance struct {
	Address   string  `json:"address"`
	Lamports  uint64  `json:"lamports"`
	SOL       float64 `json:"sol"`
	SOLString string  `json:"sol_string"`
}

// TokenBalance joins one token account with its mint. Decimals and the
// display amounts are nil when the mint could not be resolved; they are
// never defaulted.
type TokenBalance struct {
	Account             string   `json:"account"`
	Mint                string   `json:"mint"`
	Owner               string   `json:"owner"`
	Amount              uint64   `json:"amount"`
	State               string   `json:"state"`
	Decimals            *uint8   `json:"decimals"`
	DisplayAmount       *float64 `json:"ui_amount"`
	DisplayAmountString *string  `json:"ui_amount_string"`
	Delegate            *string  `json:"delegate,omitempty"`
	DelegatedAmount     uint64   `json:"delegated_amount,omitempty"`
	IsNative            bool     `json:"is_native"`
	Degraded            bool     `json:"degraded"`
	DegradedReason      string   `json:"degraded_reason,omitempty"`
}

// SkippedAccount is a token account whose data could not be decoded.
type SkippedAccount struct {
	Account string `json:"account"`
	Reason  string `json:"reason"`
}

// TokenBalances is the result of GetTokenBalances. Balances keep the order
// in which the node enumerated the accounts.
type TokenBalances struct {
	Owner    string           `json:"owner"`
	Balances []TokenBalance   `json:"balances"`
	Skipped  []SkippedAccount `json:"skipped"`
}

// MintInfo is a decoded token mint.
type MintInfo struct {
	Mint            string  `json:"mint"`
	Supply          uint64  `json:"supply"`
	SupplyString    string  `json:"ui_supply_string"`
	Decimals        uint8   `json:"decimals"`
	IsInitialized   bool    `json:"is_initialized"`
	MintAuthority   *string `json:"mint_authority"`
	FreezeAuthority *string `json:"freeze_authority"`
}

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
	TxUnknown   TxStatus = "unknown"
)

// Terminal reports whether the status can no longer change.
func (s TxStatus) Terminal() bool {
	return s == TxConfirmed || s == TxFailed
}

// TransactionStatus is the normalized status of a signature.
type TransactionStatus struct {
	Signature          string   `json:"signature"`
	Status             TxStatus `json:"status"`
	Slot               *uint64  `json:"slot,omitempty"`
	ConfirmationStatus string   `json:"confirmation_status,omitempty"`
	Err                *string  `json:"err,omitempty"`
}

// IntentStatus is the state of a recorded transfer intent.
type IntentStatus string

const IntentPending IntentStatus = "pending"

// TransferIntentRequest asks the gateway to record a transfer.
type TransferIntentRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"` // lamports
	Memo   string `json:"memo,omitempty"`
}

// TransferIntent is a recorded, never broadcast, transfer request.
type TransferIntent struct {
	ID        string       `json:"id"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	Amount    uint64       `json:"amount"`
	Memo      string       `json:"memo,omitempty"`
	Status    IntentStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// NotBroadcastNotice is returned with every transfer intent receipt.
const NotBroadcastNotice = "transfer intent recorded; the gateway does not sign or broadcast transactions"

// TransferIntentReceipt acknowledges a recorded intent. Signature is always
// nil because nothing is submitted to the network.
type TransferIntentReceipt struct {
	IntentID  string       `json:"intent_id"`
	Status    IntentStatus `json:"status"`
	Signature *string      `json:"signature"`
	Broadcast bool         `json:"broadcast"`
	Notice    string       `json:"notice"`
}

// scaleAmount returns raw / 10^decimals exactly.
func scaleAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

func lamportsToSOL(lamports uint64) (float64, string) {
	d := scaleAmount(lamports, lamportsPerSOLDecimals)
	return d.InexactFloat64(), d.String()
}
