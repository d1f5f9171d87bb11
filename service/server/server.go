package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/solgate/service/db"
	"github.com/brojonat/solgate/service/gateway"
	"github.com/brojonat/solgate/service/metrics"
	"github.com/brojonat/solgate/service/temporal"
)

// WatchStore persists transaction watches. *db.Store implements it.
type WatchStore interface {
	UpsertTransactionWatch(ctx context.Context, params db.UpsertWatchParams) (*db.TransactionWatch, error)
	GetTransactionWatch(ctx context.Context, signature string) (*db.TransactionWatch, error)
}

// Server represents the HTTP server for the gateway.
type Server struct {
	addr    string
	service *gateway.Service
	pools   gateway.PoolProvider
	watcher temporal.Watcher
	watches WatchStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	version string
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// pools, watcher and watches are optional: routes that need a missing
// dependency answer 501. If metrics is nil, /metrics is not served.
func New(addr string, svc *gateway.Service, pools gateway.PoolProvider, watcher temporal.Watcher, watches WatchStore, m *metrics.Metrics, logger *slog.Logger, version string) *Server {
	return &Server{
		addr:    addr,
		service: svc,
		pools:   pools,
		watcher: watcher,
		watches: watches,
		metrics: m,
		logger:  logger,
		version: version,
	}
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Ledger reads
	s.handle(mux, "GET /api/v1/accounts/{address}", handleGetAccount(s.service, s.logger))
	s.handle(mux, "GET /api/v1/accounts/{address}/balance", handleGetBalance(s.service, s.logger))
	s.handle(mux, "GET /api/v1/accounts/{address}/tokens", handleGetTokenBalances(s.service, s.logger))
	s.handle(mux, "GET /api/v1/tokens/{mint}", handleGetMint(s.service, s.logger))

	// Transactions
	s.handle(mux, "POST /api/v1/transactions", handleSubmitTransferIntent(s.service, s.logger))
	s.handle(mux, "GET /api/v1/transactions/{signature}", handleGetTransactionStatus(s.service, s.logger))
	s.handle(mux, "POST /api/v1/transactions/{signature}/watch", handleStartWatch(s.watcher, s.watches, s.logger))
	s.handle(mux, "GET /api/v1/transactions/{signature}/watch", handleGetWatch(s.watches, s.logger))

	// Pools and swaps
	s.handle(mux, "GET /api/v1/pools", handleListPools(s.pools, s.logger))
	s.handle(mux, "GET /api/v1/pools/{id}", handleGetPool(s.pools, s.logger))
	s.handle(mux, "POST /api/v1/swap", handleQuoteSwap(s.pools, s.logger))

	mux.Handle("GET /health", handleHealth(s.version))

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// handle registers h under pattern, labelling its metrics with the pattern
// so path parameters do not become label values.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, pattern)(h))
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
