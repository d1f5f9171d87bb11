package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// All reads use confirmed commitment.
const readCommitment = "confirmed"

func accountConfig() map[string]interface{} {
	return map[string]interface{}{
		"encoding":   "base64",
		"commitment": readCommitment,
	}
}

// GetAccountInfo fetches a single account. Only an explicit null value
// means the account is missing and is reported as KindNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*LedgerAccount, error) {
	const method = "getAccountInfo"
	raw, err := c.Call(ctx, method, []interface{}{address.String(), accountConfig()})
	if err != nil {
		return nil, err
	}
	value, err := parseContextResult[*wireAccount](raw, true)
	if err != nil {
		return nil, malformed(method, err)
	}
	if value == nil {
		return nil, &RPCError{Kind: KindNotFound, Method: method, Err: fmt.Errorf("account %s not found", address)}
	}
	acc := value.toDomain(address)
	return &acc, nil
}

// GetBalance returns the lamport balance of an address. The node reports
// zero for addresses it has never seen.
func (c *Client) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	const method = "getBalance"
	raw, err := c.Call(ctx, method, []interface{}{
		address.String(),
		map[string]interface{}{"commitment": readCommitment},
	})
	if err != nil {
		return 0, err
	}
	value, err := parseContextResult[uint64](raw, false)
	if err != nil {
		return 0, malformed(method, err)
	}
	return value, nil
}

// GetTokenAccountsByOwner lists the accounts owned by owner under programID.
// An owner with no token accounts yields an empty slice.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, programID solana.PublicKey) ([]KeyedAccount, error) {
	const method = "getTokenAccountsByOwner"
	raw, err := c.Call(ctx, method, []interface{}{
		owner.String(),
		map[string]interface{}{"programId": programID.String()},
		accountConfig(),
	})
	if err != nil {
		return nil, err
	}
	value, err := parseContextResult[[]wireKeyedAccount](raw, false)
	if err != nil {
		return nil, malformed(method, err)
	}

	out := make([]KeyedAccount, 0, len(value))
	for i, ka := range value {
		if ka.Account == nil {
			return nil, malformed(method, fmt.Errorf("entry %d (%s) has no account", i, ka.Pubkey))
		}
		out = append(out, KeyedAccount{Pubkey: ka.Pubkey, Account: ka.Account.toDomain(ka.Pubkey)})
	}
	return out, nil
}

// GetSignatureStatus looks up one signature, searching the node's full
// transaction history. A signature the node has never seen is returned
// with Found=false and no error.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	const method = "getSignatureStatuses"
	raw, err := c.Call(ctx, method, []interface{}{
		[]string{sig.String()},
		map[string]interface{}{"searchTransactionHistory": true},
	})
	if err != nil {
		return nil, err
	}
	value, err := parseContextResult[[]*wireSignatureStatus](raw, false)
	if err != nil {
		return nil, malformed(method, err)
	}
	if len(value) != 1 {
		return nil, malformed(method, fmt.Errorf("expected 1 status, got %d", len(value)))
	}
	if value[0] == nil {
		return &SignatureStatus{Found: false}, nil
	}
	st := value[0].toDomain()
	return &st, nil
}

// GetHealth returns nil when the node reports itself healthy.
func (c *Client) GetHealth(ctx context.Context) error {
	const method = "getHealth"
	raw, err := c.Call(ctx, method, nil)
	if err != nil {
		return err
	}
	if string(raw) != `"ok"` {
		return malformed(method, fmt.Errorf("unexpected health result %s", raw))
	}
	return nil
}
