package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solgate/service/db"
	"github.com/brojonat/solgate/service/gateway"
	sol "github.com/brojonat/solgate/service/solana"
	"github.com/brojonat/solgate/service/solana/soltest"
	"github.com/brojonat/solgate/service/temporal"
)

type testDeps struct {
	intents gateway.IntentRecorder
	pools   gateway.PoolProvider
	watcher temporal.Watcher
	watches WatchStore
}

// newTestServer serves the real handler stack against a fake RPC node.
func newTestServer(t *testing.T, deps testDeps) (*httptest.Server, *soltest.Node) {
	t.Helper()
	node := soltest.NewNode(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := sol.NewClient(sol.NewRPCClient(node.URL), "test", sol.RetryPolicy{
		MaxAttempts: 2,
		Timeout:     2 * time.Second,
		BackoffBase: time.Millisecond,
		BackoffMax:  time.Millisecond,
	}, nil, logger)
	svc := gateway.NewService(client, deps.intents, nil, gateway.Options{MintLookupConcurrency: 4, Endpoint: "test"}, nil, logger)

	srv := New(":0", svc, deps.pools, deps.watcher, deps.watches, nil, logger, "test-version")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, node
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func key(n byte) solanago.PublicKey {
	var k solanago.PublicKey
	k[0] = n
	k[31] = 0xEE
	return k
}

func testSig(n byte) string {
	var s solanago.Signature
	for i := range s {
		s[i] = n
	}
	return sol.EncodeSignature(s)
}

// accountsByAddress answers getAccountInfo from a map keyed by base58 address.
func accountsByAddress(accounts map[string]soltest.Account) soltest.HandlerFunc {
	return func(params []json.RawMessage) (interface{}, *soltest.Error) {
		acc, ok := accounts[soltest.ParamString(params, 0)]
		if !ok {
			return soltest.WithContext(1, nil), nil
		}
		return soltest.WithContext(1, acc), nil
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	intents []*gateway.TransferIntent
}

func (f *fakeRecorder) RecordTransferIntent(ctx context.Context, intent *gateway.TransferIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return nil
}

type fakeWatchStore struct {
	mu      sync.Mutex
	watches map[string]*db.TransactionWatch
}

func newFakeWatchStore() *fakeWatchStore {
	return &fakeWatchStore{watches: make(map[string]*db.TransactionWatch)}
}

func (f *fakeWatchStore) UpsertTransactionWatch(ctx context.Context, params db.UpsertWatchParams) (*db.TransactionWatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	if w, ok := f.watches[params.Signature]; ok && w.WorkflowID == params.WorkflowID {
		w.UpdatedAt = now
		return w, nil
	}
	w := &db.TransactionWatch{
		Signature:  params.Signature,
		WorkflowID: params.WorkflowID,
		Status:     params.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.watches[params.Signature] = w
	return w, nil
}

func (f *fakeWatchStore) GetTransactionWatch(ctx context.Context, signature string) (*db.TransactionWatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.watches[signature]
	if !ok {
		return nil, db.ErrNotFound
	}
	return w, nil
}

type fakePools struct {
	pools     []gateway.PoolSummary
	lastLimit int
}

func (f *fakePools) ListPools(ctx context.Context, limit, offset int) ([]gateway.PoolSummary, error) {
	f.lastLimit = limit
	if offset >= len(f.pools) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.pools) {
		end = len(f.pools)
	}
	return f.pools[offset:end], nil
}

func (f *fakePools) GetPool(ctx context.Context, id string) (*gateway.PoolSummary, error) {
	for i := range f.pools {
		if f.pools[i].ID == id {
			return &f.pools[i], nil
		}
	}
	return nil, gateway.ErrPoolNotFound
}

func (f *fakePools) QuoteSwap(ctx context.Context, req gateway.SwapRequest) (*gateway.SwapQuote, error) {
	out := req.Amount * 2
	return &gateway.SwapQuote{
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		InAmount:     req.Amount,
		OutAmount:    out,
		MinOutAmount: out - out*uint64(req.SlippageBps)/10_000,
		Route:        []string{"fake"},
	}, nil
}
