package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brojonat/solgate/service/gateway"
)

var errNoPoolProvider = fmt.Errorf("%w: no pool provider is configured", gateway.ErrUnimplemented)

// handleListPools lists pools from the configured provider.
// GET /api/v1/pools?limit={limit}&offset={offset}
func handleListPools(pools gateway.PoolProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pools == nil {
			writeGatewayError(w, r, logger, errNoPoolProvider)
			return
		}

		limit, err := queryInt(r, "limit")
		if err != nil {
			writeError(w, gateway.KindInvalidInput, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := queryInt(r, "offset")
		if err != nil {
			writeError(w, gateway.KindInvalidInput, err.Error(), http.StatusBadRequest)
			return
		}
		limit, offset, err = gateway.NormalizePage(limit, offset)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		list, err := pools.ListPools(r.Context(), limit, offset)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		if list == nil {
			list = []gateway.PoolSummary{}
		}
		writeJSON(w, map[string]interface{}{
			"pools":  list,
			"limit":  limit,
			"offset": offset,
		}, http.StatusOK)
	})
}

// handleGetPool returns one pool.
// GET /api/v1/pools/{id}
func handleGetPool(pools gateway.PoolProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pools == nil {
			writeGatewayError(w, r, logger, errNoPoolProvider)
			return
		}

		pool, err := pools.GetPool(r.Context(), r.PathValue("id"))
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, pool, http.StatusOK)
	})
}

// handleQuoteSwap asks the provider for a swap quote.
// POST /api/v1/swap
func handleQuoteSwap(pools gateway.PoolProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pools == nil {
			writeGatewayError(w, r, logger, errNoPoolProvider)
			return
		}

		var req gateway.SwapRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := gateway.ValidateSwapRequest(req); err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}

		quote, err := pools.QuoteSwap(r.Context(), req)
		if err != nil {
			writeGatewayError(w, r, logger, err)
			return
		}
		writeJSON(w, quote, http.StatusOK)
	})
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
