package solana

import (
	"github.com/gagliardetto/solana-go"
)

// LedgerAccount is the normalized view of any on-chain account.
// It is produced fresh for each RPC read.
type LedgerAccount struct {
	Address    solana.PublicKey
	Lamports   uint64
	Owner      solana.PublicKey
	Executable bool
	RentEpoch  uint64
	Space      uint64
	Data       []byte
}

// AccountState is the lifecycle state of a token account.
type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

func (s AccountState) String() string {
	switch s {
	case AccountStateUninitialized:
		return "uninitialized"
	case AccountStateInitialized:
		return "initialized"
	case AccountStateFrozen:
		return "frozen"
	default:
		return "invalid"
	}
}

// TokenAccountRecord is a decoded SPL token account.
// Amount is in base units; it has no meaning without the mint's decimals.
type TokenAccountRecord struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64 // rent-exempt reserve when the account wraps SOL
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

// MintRecord is a decoded SPL mint.
type MintRecord struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// KeyedAccount pairs an account address with its raw account.
// getTokenAccountsByOwner returns a list of these.
type KeyedAccount struct {
	Pubkey  solana.PublicKey
	Account LedgerAccount
}

// ConfirmationStatus is the commitment level a node reports for a signature.
type ConfirmationStatus string

const (
	ConfirmationProcessed ConfirmationStatus = "processed"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationFinalized ConfirmationStatus = "finalized"
)

// SignatureStatus is the node's record of a transaction signature.
// Found is false when the node has no record of it.
type SignatureStatus struct {
	Found              bool
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus ConfirmationStatus
	Err                *string // nil if the transaction succeeded
}
