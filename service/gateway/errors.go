package gateway

import (
	"context"
	"errors"
	"fmt"

	sol "github.com/brojonat/solgate/service/solana"
)

// Kind is the client-facing classification of a gateway failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamMalformed   Kind = "upstream_malformed"
	KindUpstreamRejected    Kind = "upstream_rejected"
	KindDecodeFailure       Kind = "decode_failure"
	KindUnimplemented       Kind = "unimplemented"
	KindInternal            Kind = "internal"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidMint     = errors.New("account is not a token mint")
	ErrPoolNotFound    = errors.New("pool not found")
	ErrUnimplemented   = errors.New("not implemented")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// KindOf classifies any error returned by the gateway.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidMint),
		errors.Is(err, sol.ErrInvalidAddress),
		errors.Is(err, sol.ErrInvalidSignature):
		return KindInvalidInput
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrPoolNotFound),
		errors.Is(err, sol.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnimplemented):
		return KindUnimplemented
	case errors.Is(err, sol.ErrWrongSize), errors.Is(err, sol.ErrInvalidState):
		return KindDecodeFailure
	}

	switch sol.KindOf(err) {
	case sol.KindTimeout:
		return KindUpstreamTimeout
	case sol.KindUnreachable:
		return KindUpstreamUnavailable
	case sol.KindMalformed:
		return KindUpstreamMalformed
	case sol.KindNodeRejected:
		return KindUpstreamRejected
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstreamTimeout
	}
	return KindInternal
}
