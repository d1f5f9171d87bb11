package gateway

import (
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	sol "github.com/brojonat/solgate/service/solana"
)

// GetAccountInfo returns the account at address.
func (s *Service) GetAccountInfo(ctx context.Context, address solanago.PublicKey) (*AccountInfo, error) {
	acc, err := s.ledger.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, notFoundOr(address, err)
	}
	solAmount, _ := lamportsToSOL(acc.Lamports)
	return &AccountInfo{
		Address:    sol.EncodeAddress(acc.Address),
		Lamports:   acc.Lamports,
		SOL:        solAmount,
		Owner:      sol.EncodeAddress(acc.Owner),
		Executable: acc.Executable,
		RentEpoch:  acc.RentEpoch,
		Space:      acc.Space,
	}, nil
}

// GetBalance returns the native balance of address.
func (s *Service) GetBalance(ctx context.Context, address solanago.PublicKey) (*Balance, error) {
	lamports, err := s.ledger.GetBalance(ctx, address)
	if err != nil {
		return nil, notFoundOr(address, err)
	}
	f, str := lamportsToSOL(lamports)
	return &Balance{
		Address:   sol.EncodeAddress(address),
		Lamports:  lamports,
		SOL:       f,
		SOLString: str,
	}, nil
}

// GetMintInfo returns the decoded mint at address. Accounts that are not
// owned by the token program, token accounts and uninitialized mints yield
// ErrInvalidMint. A token program account that fails to decode as a mint is
// a decode failure.
func (s *Service) GetMintInfo(ctx context.Context, address solanago.PublicKey) (*MintInfo, error) {
	rec, err := s.lookupMint(ctx, address)
	if err != nil {
		return nil, notFoundOr(address, err)
	}
	return &MintInfo{
		Mint:            sol.EncodeAddress(address),
		Supply:          rec.Supply,
		SupplyString:    scaleAmount(rec.Supply, rec.Decimals).String(),
		Decimals:        rec.Decimals,
		IsInitialized:   rec.IsInitialized,
		MintAuthority:   optionalKeyString(rec.MintAuthority),
		FreezeAuthority: optionalKeyString(rec.FreezeAuthority),
	}, nil
}

// lookupMint fetches and decodes a mint account.
func (s *Service) lookupMint(ctx context.Context, mint solanago.PublicKey) (*sol.MintRecord, error) {
	acc, err := s.ledger.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(sol.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrInvalidMint, mint, acc.Owner)
	}
	if len(acc.Data) == sol.TokenAccountSize {
		return nil, fmt.Errorf("%w: %s is a token account", ErrInvalidMint, mint)
	}
	rec, err := sol.DecodeMint(acc.Data)
	if err != nil {
		s.metrics.RecordDecodeFailure("mint", decodeKind(err))
		return nil, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	if !rec.IsInitialized {
		return nil, fmt.Errorf("%w: %s is not initialized", ErrInvalidMint, mint)
	}
	return rec, nil
}

// notFoundOr converts a transport NotFound into ErrAccountNotFound and
// passes every other error through.
func notFoundOr(address solanago.PublicKey, err error) error {
	if errors.Is(err, sol.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return err
}

func decodeKind(err error) string {
	var decErr *sol.DecodeError
	if errors.As(err, &decErr) {
		return string(decErr.Kind)
	}
	return "unknown"
}
