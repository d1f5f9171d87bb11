// Package client is a Go client for the solgate HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/solgate/service/gateway"
)

// Health is the body of GET /health.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Watch is the stored state of a transaction watch.
type Watch struct {
	Signature  string    `json:"signature"`
	WorkflowID string    `json:"workflow_id"`
	Status     string    `json:"status"`
	Slot       *int64    `json:"slot,omitempty"`
	Err        *string   `json:"err,omitempty"`
	Polls      int       `json:"polls"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WatchStarted acknowledges a started watch.
type WatchStarted struct {
	Signature  string `json:"signature"`
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// PoolPage is one page of ListPools.
type PoolPage struct {
	Pools  []gateway.PoolSummary `json:"pools"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// APIError is a non-success response from the gateway.
type APIError struct {
	StatusCode int
	Kind       gateway.Kind
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
}

// Client is the HTTP client for the gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new gateway client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccount returns the account at address.
func (c *Client) GetAccount(ctx context.Context, address string) (*gateway.AccountInfo, error) {
	var out gateway.AccountInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(address), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns the native balance of address.
func (c *Client) GetBalance(ctx context.Context, address string) (*gateway.Balance, error) {
	var out gateway.Balance
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(address)+"/balance", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTokenBalances returns the token balances owned by address.
func (c *Client) GetTokenBalances(ctx context.Context, address string) (*gateway.TokenBalances, error) {
	var out gateway.TokenBalances
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(address)+"/tokens", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMint returns a decoded token mint.
func (c *Client) GetMint(ctx context.Context, mint string) (*gateway.MintInfo, error) {
	var out gateway.MintInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/tokens/"+url.PathEscape(mint), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionStatus returns the status of a signature.
func (c *Client) GetTransactionStatus(ctx context.Context, signature string) (*gateway.TransactionStatus, error) {
	var out gateway.TransactionStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/transactions/"+url.PathEscape(signature), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTransferIntent records a transfer intent. The gateway never
// broadcasts it.
func (c *Client) SubmitTransferIntent(ctx context.Context, req gateway.TransferIntentRequest) (*gateway.TransferIntentReceipt, error) {
	var out gateway.TransferIntentReceipt
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", req, http.StatusAccepted, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("transfer intent recorded", "intent_id", out.IntentID)
	return &out, nil
}

// WatchTransaction starts a server-side watch on a signature.
func (c *Client) WatchTransaction(ctx context.Context, signature string) (*WatchStarted, error) {
	var out WatchStarted
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions/"+url.PathEscape(signature)+"/watch", nil, http.StatusAccepted, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("watch started", "signature", signature, "workflow_id", out.WorkflowID)
	return &out, nil
}

// GetWatch returns the stored state of a watch.
func (c *Client) GetWatch(ctx context.Context, signature string) (*Watch, error) {
	var out Watch
	if err := c.do(ctx, http.MethodGet, "/api/v1/transactions/"+url.PathEscape(signature)+"/watch", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPools lists pools. Zero limit and offset use the server defaults.
func (c *Client) ListPools(ctx context.Context, limit, offset int) (*PoolPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	path := "/api/v1/pools"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out PoolPage
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPool returns one pool.
func (c *Client) GetPool(ctx context.Context, id string) (*gateway.PoolSummary, error) {
	var out gateway.PoolSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/pools/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuoteSwap asks for a swap quote.
func (c *Client) QuoteSwap(ctx context.Context, req gateway.SwapRequest) (*gateway.SwapQuote, error) {
	var out gateway.SwapQuote
	if err := c.do(ctx, http.MethodPost, "/api/v1/swap", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Kind    gateway.Kind `json:"kind"`
		Message string       `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Kind: errResp.Kind, Message: errResp.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
