package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solgate/service/gateway"
	sol "github.com/brojonat/solgate/service/solana"
)

const maxRequestBodySize = 1 << 20 // 1MB

// handleHealth reports liveness. It does not touch the RPC node.
// GET /health
func handleHealth(version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"version":   version,
		}, http.StatusOK)
	})
}

// handleGetAccount returns the account at an address.
// GET /api/v1/accounts/{address}
func handleGetAccount(svc *gateway.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := sol.DecodeAddress(r.PathValue("address"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		info, err := svc.GetAccountInfo(r.Context(), address)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, info, http.StatusOK)
	})
}

// handleGetBalance returns the native balance of an address.
// GET /api/v1/accounts/{address}/balance
func handleGetBalance(svc *gateway.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := sol.DecodeAddress(r.PathValue("address"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), address)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, balance, http.StatusOK)
	})
}

// handleGetTokenBalances returns every classic token balance of an owner.
// Balances whose mint could not be resolved are returned degraded with 200.
// GET /api/v1/accounts/{address}/tokens
func handleGetTokenBalances(svc *gateway.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := sol.DecodeAddress(r.PathValue("address"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		balances, err := svc.GetTokenBalances(r.Context(), owner)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		logger.DebugContext(r.Context(), "token balances retrieved",
			"owner", balances.Owner,
			"count", len(balances.Balances),
			"skipped", len(balances.Skipped),
		)
		writeJSON(w, balances, http.StatusOK)
	})
}

// handleGetMint returns a decoded token mint.
// GET /api/v1/tokens/{mint}
func handleGetMint(svc *gateway.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint, err := sol.DecodeAddress(r.PathValue("mint"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		info, err := svc.GetMintInfo(r.Context(), mint)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, info, http.StatusOK)
	})
}

// handleGetTransactionStatus reports the status of a signature.
// GET /api/v1/transactions/{signature}
func handleGetTransactionStatus(svc *gateway.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig, err := sol.DecodeSignature(r.PathValue("signature"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		status, err := svc.GetTransactionStatus(r.Context(), sig)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, status, http.StatusOK)
	})
}

// handleSubmitTransferIntent records a transfer intent. Nothing is broadcast.
// POST /api/v1/transactions
func handleSubmitTransferIntent(svc *gateway.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gateway.TransferIntentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		receipt, err := svc.SubmitTransferIntent(r.Context(), req)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, receipt, http.StatusAccepted)
	})
}

// decodeBody reads a size-limited JSON body into v, writing a 400 and
// returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, gateway.KindInvalidInput, "request body too large", http.StatusBadRequest)
			return false
		}
		writeError(w, gateway.KindInvalidInput, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, kind gateway.Kind, message string, statusCode int) {
	writeJSON(w, map[string]string{
		"kind":    string(kind),
		"message": message,
	}, statusCode)
}

// writeGatewayError classifies err and writes the matching response. Only
// client errors echo their message; upstream and internal failures get a
// fixed message and are logged instead.
func writeGatewayError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := gateway.KindOf(err)
	status := statusForKind(kind)

	switch kind {
	case gateway.KindInvalidInput, gateway.KindNotFound, gateway.KindUnimplemented:
		logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "kind", kind, "error", err)
		writeError(w, kind, err.Error(), status)
		return
	case gateway.KindInternal:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "kind", kind, "error", err)
	default:
		logger.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeError(w, kind, messageForKind(kind), status)
}

func statusForKind(kind gateway.Kind) int {
	switch kind {
	case gateway.KindInvalidInput:
		return http.StatusBadRequest
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindUpstreamTimeout,
		gateway.KindUpstreamUnavailable,
		gateway.KindUpstreamMalformed,
		gateway.KindUpstreamRejected,
		gateway.KindDecodeFailure:
		return http.StatusBadGateway
	case gateway.KindUnimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func messageForKind(kind gateway.Kind) string {
	switch kind {
	case gateway.KindUpstreamTimeout:
		return "ledger node did not respond in time"
	case gateway.KindUpstreamUnavailable:
		return "ledger node is unavailable"
	case gateway.KindUpstreamMalformed:
		return "ledger node returned a malformed response"
	case gateway.KindUpstreamRejected:
		return "ledger node rejected the request"
	case gateway.KindDecodeFailure:
		return "account data could not be decoded"
	default:
		return "internal server error"
	}
}
