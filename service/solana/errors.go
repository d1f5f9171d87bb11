package solana

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// ErrorKind classifies a failed RPC call.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindTimeout      ErrorKind = "timeout"
	KindUnreachable  ErrorKind = "unreachable"
	KindMalformed    ErrorKind = "malformed"
	KindNodeRejected ErrorKind = "node_rejected"
)

// Sentinels for errors.Is matching against *RPCError.
var (
	ErrNotFound     = errors.New("rpc: not found")
	ErrTimeout      = errors.New("rpc: timeout")
	ErrUnreachable  = errors.New("rpc: node unreachable")
	ErrMalformed    = errors.New("rpc: malformed response")
	ErrNodeRejected = errors.New("rpc: request rejected by node")
)

// RPCError is the only error type returned by Client calls.
type RPCError struct {
	Kind   ErrorKind
	Method string
	Code   int // JSON-RPC or HTTP status code when the node answered, else 0
	Err    error
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d): %v", e.Method, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Method, e.Kind, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }

func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrNodeRejected:
		return e.Kind == KindNodeRejected
	}
	return false
}

// Retryable reports whether another attempt might succeed.
func (e *RPCError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnreachable
}

// KindOf returns the classification of err, or "" if err is not an *RPCError.
func KindOf(err error) ErrorKind {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	return ""
}

func malformed(method string, err error) *RPCError {
	return &RPCError{Kind: KindMalformed, Method: method, Err: err}
}

// classify maps a raw client error into an *RPCError. parent is the
// caller's context; attempt is the per-attempt context derived from it.
// rateLimited reports whether the node answered with 429.
func classify(parent, attempt context.Context, method string, err error) (classified *RPCError, rateLimited bool) {
	newErr := func(kind ErrorKind, code int) *RPCError {
		return &RPCError{Kind: kind, Method: method, Code: code, Err: err}
	}

	if parent.Err() != nil {
		return newErr(KindTimeout, 0), false
	}

	var nodeErr *jsonrpc.RPCError
	if errors.As(err, &nodeErr) {
		if nodeErr.Code == http.StatusTooManyRequests {
			return newErr(KindUnreachable, nodeErr.Code), true
		}
		return newErr(KindNodeRejected, nodeErr.Code), false
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Code == http.StatusTooManyRequests:
			return newErr(KindUnreachable, httpErr.Code), true
		case httpErr.Code >= 500:
			return newErr(KindUnreachable, httpErr.Code), false
		default:
			return newErr(KindNodeRejected, httpErr.Code), false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return newErr(KindTimeout, 0), false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newErr(KindTimeout, 0), false
	}

	// The node answered below 400 but the body was not a JSON-RPC response.
	// Responses of 400 and above arrive as *jsonrpc.HTTPError above.
	if msg := err.Error(); strings.Contains(msg, "could not decode body") || strings.Contains(msg, "rpc response missing") {
		return newErr(KindMalformed, 0), false
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newErr(KindUnreachable, 0), false
	}

	// The JSON-RPC client does not always wrap the underlying error, so fall
	// back to the message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return newErr(KindUnreachable, http.StatusTooManyRequests), true
	case strings.Contains(msg, "decode"), strings.Contains(msg, "unmarshal"), strings.Contains(msg, "invalid character"):
		return newErr(KindMalformed, 0), false
	}
	return newErr(KindUnreachable, 0), false
}
