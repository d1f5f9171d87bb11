// Package gateway normalizes ledger state read over RPC into the stable
// shapes served by the HTTP API.
package gateway

import (
	"context"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solgate/service/metrics"
	sol "github.com/brojonat/solgate/service/solana"
)

// Ledger is the subset of the RPC transport the gateway reads from.
// *solana.Client implements it.
type Ledger interface {
	GetAccountInfo(ctx context.Context, address solanago.PublicKey) (*sol.LedgerAccount, error)
	GetBalance(ctx context.Context, address solanago.PublicKey) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, programID solanago.PublicKey) ([]sol.KeyedAccount, error)
	GetSignatureStatus(ctx context.Context, sig solanago.Signature) (*sol.SignatureStatus, error)
}

// IntentRecorder persists transfer intents.
type IntentRecorder interface {
	RecordTransferIntent(ctx context.Context, intent *TransferIntent) error
}

// IntentPublisher announces recorded transfer intents.
type IntentPublisher interface {
	PublishTransferIntent(ctx context.Context, intent *TransferIntent) error
}

// Options tunes the Service.
type Options struct {
	// MintLookupConcurrency bounds parallel mint lookups per request.
	MintLookupConcurrency int
	// Endpoint labels metrics, e.g. "mainnet".
	Endpoint string
}

// Service is the domain normalizer. It is stateless between requests and
// safe for concurrent use.
type Service struct {
	ledger    Ledger
	intents   IntentRecorder
	publisher IntentPublisher
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the normalizer. intents and publisher may be nil: without
// a recorder SubmitTransferIntent reports ErrUnimplemented, and without a
// publisher no intent events are sent.
func NewService(ledger Ledger, intents IntentRecorder, publisher IntentPublisher, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if opts.MintLookupConcurrency < 1 {
		opts.MintLookupConcurrency = 8
	}
	return &Service{
		ledger:    ledger,
		intents:   intents,
		publisher: publisher,
		opts:      opts,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func optionalKeyString(k *solanago.PublicKey) *string {
	if k == nil {
		return nil
	}
	s := sol.EncodeAddress(*k)
	return &s
}
