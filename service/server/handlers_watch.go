package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/brojonat/solgate/service/db"
	"github.com/brojonat/solgate/service/gateway"
	sol "github.com/brojonat/solgate/service/solana"
	"github.com/brojonat/solgate/service/temporal"
)

type watchResponse struct {
	Signature  string `json:"signature"`
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// handleStartWatch starts a workflow that follows a signature until it is
// final. The watch row is written before the workflow starts so the
// workflow always has a row to update.
// POST /api/v1/transactions/{signature}/watch
func handleStartWatch(watcher temporal.Watcher, watches WatchStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if watcher == nil {
			writeGatewayError(w, r, logger, fmt.Errorf("%w: transaction watches are not configured", gateway.ErrUnimplemented))
			return
		}

		sig, err := sol.DecodeSignature(r.PathValue("signature"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		signature := sol.EncodeSignature(sig)

		if watches != nil {
			_, err := watches.UpsertTransactionWatch(r.Context(), db.UpsertWatchParams{
				Signature:  signature,
				WorkflowID: temporal.WatchWorkflowID(signature),
				Status:     string(gateway.TxPending),
			})
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to store watch", "signature", signature, "error", err)
				writeError(w, gateway.KindInternal, "failed to store watch", http.StatusInternalServerError)
				return
			}
		}

		workflowID, err := watcher.StartWatch(r.Context(), signature)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to start watch", "signature", signature, "error", err)
			writeError(w, gateway.KindInternal, "failed to start watch", http.StatusInternalServerError)
			return
		}

		logger.InfoContext(r.Context(), "watch started", "signature", signature, "workflow_id", workflowID)
		writeJSON(w, watchResponse{
			Signature:  signature,
			WorkflowID: workflowID,
			Status:     "watching",
		}, http.StatusAccepted)
	})
}

// handleGetWatch returns the stored state of a watch.
// GET /api/v1/transactions/{signature}/watch
func handleGetWatch(watches WatchStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if watches == nil {
			writeGatewayError(w, r, logger, fmt.Errorf("%w: transaction watches are not configured", gateway.ErrUnimplemented))
			return
		}

		sig, err := sol.DecodeSignature(r.PathValue("signature"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		watch, err := watches.GetTransactionWatch(r.Context(), sol.EncodeSignature(sig))
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, gateway.KindNotFound, "watch not found", http.StatusNotFound)
				return
			}
			logger.ErrorContext(r.Context(), "failed to get watch", "signature", sig, "error", err)
			writeError(w, gateway.KindInternal, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, watch, http.StatusOK)
	})
}
