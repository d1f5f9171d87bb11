package solana

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/brojonat/solgate/service/metrics"
)

// RPCClient is the raw JSON-RPC surface the transport needs.
// *rpc.Client from solana-go satisfies it; tests substitute a fake.
type RPCClient interface {
	RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
}

// RetryPolicy controls per-attempt timeouts and backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration // per attempt
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryPolicy is three attempts with a 10s per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Timeout:     10 * time.Second,
		BackoffBase: 250 * time.Millisecond,
		BackoffMax:  2 * time.Second,
	}
}

// Client is the RPC transport. It classifies failures and retries the
// transient ones. It holds no per-call state and is safe for concurrent use.
type Client struct {
	rpc      RPCClient
	policy   RetryPolicy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // label for metrics, e.g. "mainnet"
}

// NewClient creates a new transport.
// If m is nil, no metrics are recorded.
func NewClient(rpcClient RPCClient, endpoint string, policy RetryPolicy, m *metrics.Metrics, logger *slog.Logger) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Client{
		rpc:      rpcClient,
		policy:   policy,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// Call invokes a JSON-RPC method and returns its raw result. A JSON null
// result is returned as the literal "null". Errors are always *RPCError.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	var lastErr *RPCError
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.metrics.RecordRPCRetry(method, string(lastErr.Kind))
			c.logger.WarnContext(ctx, "retrying rpc call",
				"method", method,
				"attempt", attempt+1,
				"reason", lastErr.Kind,
				"backoff", backoff,
			)
			if err := sleep(ctx, backoff); err != nil {
				lastErr = &RPCError{Kind: KindTimeout, Method: method, Err: err}
				break
			}
		}

		raw, err := c.attempt(ctx, method, params)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !err.Retryable() || ctx.Err() != nil {
			break
		}
	}

	c.metrics.RecordRPCError(method, string(lastErr.Kind))
	c.logger.DebugContext(ctx, "rpc call failed",
		"method", method,
		"kind", lastErr.Kind,
		"error", lastErr.Err,
	)
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method string, params []interface{}) (json.RawMessage, *RPCError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	var raw json.RawMessage
	start := time.Now()
	err := c.rpc.RPCCallForInto(attemptCtx, &raw, method, params)
	duration := time.Since(start).Seconds()

	if err != nil {
		classified, rateLimited := classify(ctx, attemptCtx, method, err)
		c.metrics.RecordRPCCall(method, string(classified.Kind), c.endpoint, duration)
		if rateLimited {
			c.metrics.RecordRateLimitHit(c.endpoint)
		}
		return nil, classified
	}

	c.metrics.RecordRPCCall(method, "success", c.endpoint, duration)
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return raw, nil
}

// backoff returns BackoffBase doubled per retry, capped at BackoffMax.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.policy.BackoffBase << uint(attempt-1)
	if d <= 0 || (c.policy.BackoffMax > 0 && d > c.policy.BackoffMax) {
		return c.policy.BackoffMax
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
