package gateway

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solgate/service/metrics"
	sol "github.com/brojonat/solgate/service/solana"
)

// fakeLedger serves accounts from memory. It is safe for concurrent use.
type fakeLedger struct {
	mu            sync.Mutex
	accounts      map[solanago.PublicKey]*sol.LedgerAccount
	accountErrs   map[solanago.PublicKey]error
	balances      map[solanago.PublicKey]uint64
	tokenAccounts []sol.KeyedAccount
	enumerateErr  error
	statuses      map[solanago.Signature]*sol.SignatureStatus
	statusErr     error
	accountCalls  map[solanago.PublicKey]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:     make(map[solanago.PublicKey]*sol.LedgerAccount),
		accountErrs:  make(map[solanago.PublicKey]error),
		balances:     make(map[solanago.PublicKey]uint64),
		statuses:     make(map[solanago.Signature]*sol.SignatureStatus),
		accountCalls: make(map[solanago.PublicKey]int),
	}
}

func (f *fakeLedger) GetAccountInfo(ctx context.Context, address solanago.PublicKey) (*sol.LedgerAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls[address]++
	if err, ok := f.accountErrs[address]; ok {
		return nil, err
	}
	acc, ok := f.accounts[address]
	if !ok {
		return nil, &sol.RPCError{Kind: sol.KindNotFound, Method: "getAccountInfo", Err: errors.New("missing")}
	}
	return acc, nil
}

func (f *fakeLedger) GetBalance(ctx context.Context, address solanago.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeLedger) GetTokenAccountsByOwner(ctx context.Context, owner, programID solanago.PublicKey) ([]sol.KeyedAccount, error) {
	if f.enumerateErr != nil {
		return nil, f.enumerateErr
	}
	return f.tokenAccounts, nil
}

func (f *fakeLedger) GetSignatureStatus(ctx context.Context, sig solanago.Signature) (*sol.SignatureStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if st, ok := f.statuses[sig]; ok {
		return st, nil
	}
	return &sol.SignatureStatus{Found: false}, nil
}

func (f *fakeLedger) callsFor(address solanago.PublicKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountCalls[address]
}

func (f *fakeLedger) addMint(mint solanago.PublicKey, decimals uint8, supply uint64) {
	data := make([]byte, sol.MintSize)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	f.accounts[mint] = &sol.LedgerAccount{Address: mint, Owner: sol.TokenProgramID, Lamports: 1_461_600, Data: data}
}

func (f *fakeLedger) addTokenAccount(address, mint, owner solanago.PublicKey, amount uint64) {
	data := make([]byte, sol.TokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	f.tokenAccounts = append(f.tokenAccounts, sol.KeyedAccount{
		Pubkey:  address,
		Account: sol.LedgerAccount{Address: address, Owner: sol.TokenProgramID, Data: data},
	})
}

// fakeIntents records intents in memory.
type fakeIntents struct {
	mu      sync.Mutex
	intents []*TransferIntent
	err     error
}

func (f *fakeIntents) RecordTransferIntent(ctx context.Context, intent *TransferIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.intents = append(f.intents, intent)
	return nil
}

type fakePublisher struct {
	published []*TransferIntent
	err       error
}

func (f *fakePublisher) PublishTransferIntent(ctx context.Context, intent *TransferIntent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, intent)
	return nil
}

func newTestService(ledger Ledger, intents IntentRecorder, pub IntentPublisher) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(ledger, intents, pub, Options{MintLookupConcurrency: 4, Endpoint: "test"},
		metrics.NewMetrics(prometheus.NewRegistry()), logger)
}

// key derives a deterministic non-zero address from n.
func key(n byte) solanago.PublicKey {
	var k solanago.PublicKey
	k[0] = n
	k[31] = 0xAA
	return k
}

func TestGetTokenBalances_JoinsMintDecimals(t *testing.T) {
	ledger := newFakeLedger()
	owner, usdc := key(1), key(2)
	ledger.addMint(usdc, 6, 1_000_000_000)
	ledger.addTokenAccount(key(10), usdc, owner, 1_500_000)

	svc := newTestService(ledger, nil, nil)
	res, err := svc.GetTokenBalances(context.Background(), owner)
	require.NoError(t, err)

	require.Len(t, res.Balances, 1)
	b := res.Balances[0]
	assert.Equal(t, usdc.String(), b.Mint)
	assert.Equal(t, uint64(1_500_000), b.Amount)
	require.NotNil(t, b.Decimals)
	assert.Equal(t, uint8(6), *b.Decimals)
	require.NotNil(t, b.DisplayAmount)
	assert.InDelta(t, 1.5, *b.DisplayAmount, 1e-12)
	require.NotNil(t, b.DisplayAmountString)
	assert.Equal(t, "1.5", *b.DisplayAmountString)
	assert.False(t, b.Degraded)
	assert.Equal(t, "initialized", b.State)
	assert.Empty(t, res.Skipped)
}

func TestGetTokenBalances_NoAccounts(t *testing.T) {
	svc := newTestService(newFakeLedger(), nil, nil)

	res, err := svc.GetTokenBalances(context.Background(), key(1))
	require.NoError(t, err)
	assert.NotNil(t, res.Balances)
	assert.Empty(t, res.Balances)
	assert.Empty(t, res.Skipped)
}

func TestGetTokenBalances_DegradesFailedMint(t *testing.T) {
	ledger := newFakeLedger()
	owner, good, missing := key(1), key(2), key(3)
	ledger.addMint(good, 9, 0)
	ledger.addTokenAccount(key(10), good, owner, 2_000_000_000)
	ledger.addTokenAccount(key(11), missing, owner, 42)

	svc := newTestService(ledger, nil, nil)
	res, err := svc.GetTokenBalances(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, res.Balances, 2)

	assert.False(t, res.Balances[0].Degraded)
	require.NotNil(t, res.Balances[0].DisplayAmount)
	assert.InDelta(t, 2.0, *res.Balances[0].DisplayAmount, 1e-12)

	degraded := res.Balances[1]
	assert.True(t, degraded.Degraded)
	assert.Nil(t, degraded.Decimals, "decimals must not default to zero")
	assert.Nil(t, degraded.DisplayAmount)
	assert.Nil(t, degraded.DisplayAmountString)
	assert.Equal(t, uint64(42), degraded.Amount)
	assert.Contains(t, degraded.DegradedReason, string(KindNotFound))
}

func TestGetTokenBalances_TransientMintFailure(t *testing.T) {
	ledger := newFakeLedger()
	owner, mint := key(1), key(2)
	ledger.accountErrs[mint] = &sol.RPCError{Kind: sol.KindTimeout, Method: "getAccountInfo", Err: context.DeadlineExceeded}
	ledger.addTokenAccount(key(10), mint, owner, 5)

	svc := newTestService(ledger, nil, nil)
	res, err := svc.GetTokenBalances(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, res.Balances, 1)
	assert.True(t, res.Balances[0].Degraded)
	assert.Contains(t, res.Balances[0].DegradedReason, string(KindUpstreamTimeout))
}

func TestGetTokenBalances_DeduplicatesMintLookups(t *testing.T) {
	ledger := newFakeLedger()
	owner := key(1)
	mints := []solanago.PublicKey{key(2), key(3), key(4)}
	for i, m := range mints {
		ledger.addMint(m, uint8(i+1), 0)
	}
	// 30 accounts across 3 mints, interleaved.
	for i := 0; i < 30; i++ {
		ledger.addTokenAccount(key(byte(100+i)), mints[i%3], owner, uint64(i))
	}

	svc := newTestService(ledger, nil, nil)
	res, err := svc.GetTokenBalances(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, res.Balances, 30)

	for _, m := range mints {
		assert.Equal(t, 1, ledger.callsFor(m), "mint %s looked up more than once", m)
	}
	// Enumeration order is preserved.
	for i, b := range res.Balances {
		assert.Equal(t, key(byte(100+i)).String(), b.Account)
		assert.Equal(t, uint64(i), b.Amount)
		require.NotNil(t, b.Decimals)
		assert.Equal(t, uint8(i%3+1), *b.Decimals)
	}
}

func TestGetTokenBalances_SkipsUndecodableAccounts(t *testing.T) {
	ledger := newFakeLedger()
	owner, mint := key(1), key(2)
	ledger.addMint(mint, 0, 0)
	ledger.addTokenAccount(key(10), mint, owner, 1)
	ledger.tokenAccounts = append(ledger.tokenAccounts, sol.KeyedAccount{
		Pubkey:  key(11),
		Account: sol.LedgerAccount{Address: key(11), Owner: sol.TokenProgramID, Data: make([]byte, 10)},
	})

	svc := newTestService(ledger, nil, nil)
	res, err := svc.GetTokenBalances(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, res.Balances, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, key(11).String(), res.Skipped[0].Account)
	assert.Contains(t, res.Skipped[0].Reason, "wrong_size")
}

func TestGetTokenBalances_EnumerationFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.enumerateErr = &sol.RPCError{Kind: sol.KindUnreachable, Method: "getTokenAccountsByOwner", Err: io.EOF}

	svc := newTestService(ledger, nil, nil)
	_, err := svc.GetTokenBalances(context.Background(), key(1))
	require.Error(t, err)
	assert.Equal(t, KindUpstreamUnavailable, KindOf(err))
}

func TestGetTokenBalances_LargeAmountIsExact(t *testing.T) {
	ledger := newFakeLedger()
	owner, mint := key(1), key(2)
	ledger.addMint(mint, 9, 0)
	ledger.addTokenAccount(key(10), mint, owner, ^uint64(0))

	svc := newTestService(ledger, nil, nil)
	res, err := svc.GetTokenBalances(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "18446744073.709551615", *res.Balances[0].DisplayAmountString)
}

func TestGetAccountInfo_SystemAddress(t *testing.T) {
	ledger := newFakeLedger()
	system, err := sol.DecodeAddress("11111111111111111111111111111111")
	require.NoError(t, err)
	nativeLoader := solanago.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")
	ledger.accounts[system] = &sol.LedgerAccount{Address: system, Lamports: 1, Owner: nativeLoader, Executable: true}

	svc := newTestService(ledger, nil, nil)
	info, err := svc.GetAccountInfo(context.Background(), system)
	require.NoError(t, err)
	assert.Equal(t, "11111111111111111111111111111111", info.Address)
	assert.True(t, info.Executable)
	assert.Equal(t, nativeLoader.String(), info.Owner)
}

func TestGetAccountInfo_NotFound(t *testing.T) {
	svc := newTestService(newFakeLedger(), nil, nil)
	_, err := svc.GetAccountInfo(context.Background(), key(9))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestGetBalance(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balances[key(1)] = 1_250_000_000

	svc := newTestService(ledger, nil, nil)
	bal, err := svc.GetBalance(context.Background(), key(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_250_000_000), bal.Lamports)
	assert.InDelta(t, 1.25, bal.SOL, 1e-12)
	assert.Equal(t, "1.25", bal.SOLString)
}

func TestGetMintInfo(t *testing.T) {
	ledger := newFakeLedger()
	mint := key(2)
	ledger.addMint(mint, 6, 123_456_789)

	svc := newTestService(ledger, nil, nil)
	info, err := svc.GetMintInfo(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, uint64(123_456_789), info.Supply)
	assert.Equal(t, "123.456789", info.SupplyString)
	assert.Nil(t, info.MintAuthority)
}

func TestGetMintInfo_NotAMint(t *testing.T) {
	ledger := newFakeLedger()
	wallet := key(5)
	ledger.accounts[wallet] = &sol.LedgerAccount{Address: wallet, Owner: sol.SystemProgramID}
	tokenAcct := key(6)
	ledger.accounts[tokenAcct] = &sol.LedgerAccount{Address: tokenAcct, Owner: sol.TokenProgramID, Data: make([]byte, sol.TokenAccountSize)}

	svc := newTestService(ledger, nil, nil)
	for _, addr := range []solanago.PublicKey{wallet, tokenAcct} {
		_, err := svc.GetMintInfo(context.Background(), addr)
		assert.ErrorIs(t, err, ErrInvalidMint)
		assert.Equal(t, KindInvalidInput, KindOf(err))
	}
}

func TestGetMintInfo_UndecodableMintIsDecodeFailure(t *testing.T) {
	ledger := newFakeLedger()
	mint := key(7)
	data := make([]byte, sol.MintSize)
	data[45] = 2 // is_initialized must be 0 or 1
	ledger.accounts[mint] = &sol.LedgerAccount{Address: mint, Owner: sol.TokenProgramID, Data: data}

	svc := newTestService(ledger, nil, nil)
	_, err := svc.GetMintInfo(context.Background(), mint)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidMint)
	assert.ErrorIs(t, err, sol.ErrInvalidState)
	assert.Equal(t, KindDecodeFailure, KindOf(err))
}

func TestGetTransactionStatus(t *testing.T) {
	errMsg := `{"InstructionError":[0,"InvalidAccountData"]}`
	tests := []struct {
		name   string
		status *sol.SignatureStatus
		want   TxStatus
	}{
		{"unknown", nil, TxUnknown},
		{"processed is pending", &sol.SignatureStatus{Found: true, Slot: 1, ConfirmationStatus: sol.ConfirmationProcessed}, TxPending},
		{"confirmed", &sol.SignatureStatus{Found: true, Slot: 2, ConfirmationStatus: sol.ConfirmationConfirmed}, TxConfirmed},
		{"finalized", &sol.SignatureStatus{Found: true, Slot: 3, ConfirmationStatus: sol.ConfirmationFinalized}, TxConfirmed},
		{"failed", &sol.SignatureStatus{Found: true, Slot: 4, ConfirmationStatus: sol.ConfirmationFinalized, Err: &errMsg}, TxFailed},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			var sig solanago.Signature
			sig[0] = byte(i + 1)
			if tt.status != nil {
				ledger.statuses[sig] = tt.status
			}

			svc := newTestService(ledger, nil, nil)
			st, err := svc.GetTransactionStatus(context.Background(), sig)
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Status)
			assert.Equal(t, sig.String(), st.Signature)
			if tt.status == nil {
				assert.Nil(t, st.Slot)
			} else {
				require.NotNil(t, st.Slot)
				assert.Equal(t, tt.status.Slot, *st.Slot)
			}
			if tt.want == TxFailed {
				require.NotNil(t, st.Err)
				assert.Equal(t, errMsg, *st.Err)
			}
		})
	}
}

func TestGetTransactionStatus_UpstreamError(t *testing.T) {
	ledger := newFakeLedger()
	ledger.statusErr = &sol.RPCError{Kind: sol.KindMalformed, Method: "getSignatureStatuses", Err: errors.New("bad json")}

	svc := newTestService(ledger, nil, nil)
	_, err := svc.GetTransactionStatus(context.Background(), solanago.Signature{})
	assert.Equal(t, KindUpstreamMalformed, KindOf(err))
}

func TestSubmitTransferIntent(t *testing.T) {
	intents := &fakeIntents{}
	pub := &fakePublisher{}
	svc := newTestService(newFakeLedger(), intents, pub)

	receipt, err := svc.SubmitTransferIntent(context.Background(), TransferIntentRequest{
		From:   key(1).String(),
		To:     key(2).String(),
		Amount: 1_000,
		Memo:   "invoice 42",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.IntentID)
	assert.Equal(t, IntentPending, receipt.Status)
	assert.Nil(t, receipt.Signature, "no signature is ever fabricated")
	assert.False(t, receipt.Broadcast)
	assert.Equal(t, NotBroadcastNotice, receipt.Notice)

	require.Len(t, intents.intents, 1)
	assert.Equal(t, receipt.IntentID, intents.intents[0].ID)
	assert.Equal(t, uint64(1_000), intents.intents[0].Amount)
	require.Len(t, pub.published, 1)
}

func TestSubmitTransferIntent_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	svc := newTestService(newFakeLedger(), &fakeIntents{}, pub)

	_, err := svc.SubmitTransferIntent(context.Background(), TransferIntentRequest{
		From: key(1).String(), To: key(2).String(), Amount: 1,
	})
	assert.NoError(t, err)
}

func TestSubmitTransferIntent_Validation(t *testing.T) {
	valid := TransferIntentRequest{From: key(1).String(), To: key(2).String(), Amount: 1}
	tests := []struct {
		name   string
		mutate func(*TransferIntentRequest)
	}{
		{"bad from", func(r *TransferIntentRequest) { r.From = "nope" }},
		{"bad to", func(r *TransferIntentRequest) { r.To = "" }},
		{"same account", func(r *TransferIntentRequest) { r.To = r.From }},
		{"zero amount", func(r *TransferIntentRequest) { r.Amount = 0 }},
		{"memo too long", func(r *TransferIntentRequest) { r.Memo = string(make([]byte, maxMemoBytes+1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := &fakeIntents{}
			svc := newTestService(newFakeLedger(), intents, nil)
			req := valid
			tt.mutate(&req)

			_, err := svc.SubmitTransferIntent(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Empty(t, intents.intents)
		})
	}
}

func TestSubmitTransferIntent_NoRecorder(t *testing.T) {
	svc := newTestService(newFakeLedger(), nil, nil)
	_, err := svc.SubmitTransferIntent(context.Background(), TransferIntentRequest{
		From: key(1).String(), To: key(2).String(), Amount: 1,
	})
	assert.Equal(t, KindUnimplemented, KindOf(err))
}

func TestSubmitTransferIntent_RecorderFailure(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakeIntents{err: errors.New("db down")}, nil)
	_, err := svc.SubmitTransferIntent(context.Background(), TransferIntentRequest{
		From: key(1).String(), To: key(2).String(), Amount: 1,
	})
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{fmt.Errorf("wrap: %w", sol.ErrInvalidAddress), KindInvalidInput},
		{ErrPoolNotFound, KindNotFound},
		{&sol.RPCError{Kind: sol.KindNotFound}, KindNotFound},
		{&sol.RPCError{Kind: sol.KindNodeRejected}, KindUpstreamRejected},
		{&sol.DecodeError{Kind: sol.DecodeWrongSize}, KindDecodeFailure},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}
