package gateway

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	sol "github.com/brojonat/solgate/service/solana"
)

type mintLookup struct {
	rec *sol.MintRecord
	err error
}

type decodedTokenAccount struct {
	address solanago.PublicKey
	rec     *sol.TokenAccountRecord
}

// GetTokenBalances lists every classic SPL token account owned by owner,
// joined with its mint's decimals. Only a failure to enumerate the accounts
// fails the call: undecodable accounts are reported in Skipped, and a
// failed mint lookup degrades only the balances of that mint.
func (s *Service) GetTokenBalances(ctx context.Context, owner solanago.PublicKey) (*TokenBalances, error) {
	accounts, err := s.ledger.GetTokenAccountsByOwner(ctx, owner, sol.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("enumerate token accounts of %s: %w", owner, err)
	}

	result := &TokenBalances{
		Owner:    sol.EncodeAddress(owner),
		Balances: make([]TokenBalance, 0, len(accounts)),
		Skipped:  make([]SkippedAccount, 0),
	}

	decoded := make([]decodedTokenAccount, 0, len(accounts))
	mintSlot := make(map[solanago.PublicKey]int)
	var mints []solanago.PublicKey
	for _, ka := range accounts {
		rec, err := sol.DecodeTokenAccount(ka.Account.Data)
		if err != nil {
			s.metrics.RecordDecodeFailure("token_account", decodeKind(err))
			s.logger.WarnContext(ctx, "skipping undecodable token account",
				"owner", owner.String(),
				"account", ka.Pubkey.String(),
				"error", err,
			)
			result.Skipped = append(result.Skipped, SkippedAccount{
				Account: sol.EncodeAddress(ka.Pubkey),
				Reason:  err.Error(),
			})
			continue
		}
		if _, seen := mintSlot[rec.Mint]; !seen {
			mintSlot[rec.Mint] = len(mints)
			mints = append(mints, rec.Mint)
		}
		decoded = append(decoded, decodedTokenAccount{address: ka.Pubkey, rec: rec})
	}

	lookups := s.lookupMints(ctx, mints)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.metrics.RecordMintLookups(s.opts.Endpoint, len(mints))

	degraded := 0
	for _, d := range decoded {
		tb := newTokenBalance(d.address, d.rec, lookups[mintSlot[d.rec.Mint]])
		if tb.Degraded {
			degraded++
		}
		result.Balances = append(result.Balances, tb)
	}
	s.metrics.RecordTokenBalances("complete", len(result.Balances)-degraded)
	s.metrics.RecordTokenBalances("degraded", degraded)
	s.metrics.RecordTokenBalances("skipped", len(result.Skipped))

	return result, nil
}

// lookupMints resolves each mint once, concurrently. Results are indexed
// like mints. A failed lookup is recorded in its slot and does not cancel
// the others.
func (s *Service) lookupMints(ctx context.Context, mints []solanago.PublicKey) []mintLookup {
	results := make([]mintLookup, len(mints))
	var g errgroup.Group
	g.SetLimit(s.opts.MintLookupConcurrency)
	for i, mint := range mints {
		g.Go(func() error {
			rec, err := s.lookupMint(ctx, mint)
			if err != nil {
				s.logger.WarnContext(ctx, "mint lookup failed",
					"mint", mint.String(),
					"kind", KindOf(err),
					"error", err,
				)
			}
			results[i] = mintLookup{rec: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func newTokenBalance(address solanago.PublicKey, rec *sol.TokenAccountRecord, mint mintLookup) TokenBalance {
	tb := TokenBalance{
		Account:         sol.EncodeAddress(address),
		Mint:            sol.EncodeAddress(rec.Mint),
		Owner:           sol.EncodeAddress(rec.Owner),
		Amount:          rec.Amount,
		State:           rec.State.String(),
		Delegate:        optionalKeyString(rec.Delegate),
		DelegatedAmount: rec.DelegatedAmount,
		IsNative:        rec.IsNative != nil,
	}
	if mint.err != nil {
		tb.Degraded = true
		tb.DegradedReason = fmt.Sprintf("mint lookup failed: %s", KindOf(mint.err))
		return tb
	}

	decimals := mint.rec.Decimals
	amount := scaleAmount(rec.Amount, decimals)
	f := amount.InexactFloat64()
	str := amount.String()
	tb.Decimals = &decimals
	tb.DisplayAmount = &f
	tb.DisplayAmountString = &str
	return tb
}
