package gateway

import (
	"context"

	sol "github.com/brojonat/solgate/service/solana"
)

// Pagination bounds for ListPools.
const (
	DefaultPoolLimit = 50
	MaxPoolLimit     = 500
)

// PoolSummary describes one liquidity pool.
type PoolSummary struct {
	ID           string   `json:"id"`
	DEX          string   `json:"dex"`
	MintA        string   `json:"mint_a"`
	MintB        string   `json:"mint_b"`
	ReserveA     uint64   `json:"reserve_a"`
	ReserveB     uint64   `json:"reserve_b"`
	FeeBps       uint16   `json:"fee_bps"`
	LiquidityUSD *float64 `json:"liquidity_usd,omitempty"`
}

// SwapRequest asks for a quote to swap Amount base units of InputMint.
type SwapRequest struct {
	InputMint   string `json:"input_mint"`
	OutputMint  string `json:"output_mint"`
	Amount      uint64 `json:"amount"`
	SlippageBps uint16 `json:"slippage_bps"`
}

// SwapQuote is a provider's answer to a SwapRequest.
type SwapQuote struct {
	InputMint      string   `json:"input_mint"`
	OutputMint     string   `json:"output_mint"`
	InAmount       uint64   `json:"in_amount"`
	OutAmount      uint64   `json:"out_amount"`
	MinOutAmount   uint64   `json:"min_out_amount"`
	PriceImpactPct float64  `json:"price_impact_pct"`
	Route          []string `json:"route"`
}

// PoolProvider is an injectable source of pool data and swap quotes.
// No implementation ships with the gateway; the pool routes answer
// unimplemented until one is configured. GetPool returns ErrPoolNotFound
// for unknown ids.
type PoolProvider interface {
	ListPools(ctx context.Context, limit, offset int) ([]PoolSummary, error)
	GetPool(ctx context.Context, id string) (*PoolSummary, error)
	QuoteSwap(ctx context.Context, req SwapRequest) (*SwapQuote, error)
}

// NormalizePage clamps pagination parameters for ListPools.
func NormalizePage(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = DefaultPoolLimit
	}
	if limit < 0 || limit > MaxPoolLimit {
		return 0, 0, invalidInput("limit must be between 1 and %d", MaxPoolLimit)
	}
	if offset < 0 {
		return 0, 0, invalidInput("offset must not be negative")
	}
	return limit, offset, nil
}

// ValidateSwapRequest checks a quote request before it reaches a provider.
func ValidateSwapRequest(req SwapRequest) error {
	in, err := sol.DecodeAddress(req.InputMint)
	if err != nil {
		return invalidInput("input_mint: %v", err)
	}
	out, err := sol.DecodeAddress(req.OutputMint)
	if err != nil {
		return invalidInput("output_mint: %v", err)
	}
	if in.Equals(out) {
		return invalidInput("input_mint and output_mint must differ")
	}
	if req.Amount == 0 {
		return invalidInput("amount must be greater than zero")
	}
	if req.SlippageBps > 10_000 {
		return invalidInput("slippage_bps must be at most 10000")
	}
	return nil
}
