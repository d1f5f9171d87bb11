package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the gateway.
// It is passed explicitly to every component that records metrics;
// a nil *Metrics is valid and records nothing.
type Metrics struct {
	// Solana RPC
	rpcCallsTotal     *prometheus.CounterVec
	rpcCallDuration   *prometheus.HistogramVec
	rpcRateLimitHits  *prometheus.CounterVec
	rpcRetries        *prometheus.CounterVec
	rpcErrorsByKind   *prometheus.CounterVec
	mintLookupsPerReq *prometheus.HistogramVec

	// Normalization
	tokenBalancesTotal *prometheus.CounterVec
	decodeFailures     *prometheus.CounterVec
	intentsRecorded    *prometheus.CounterVec

	// Watch workflow
	watchWorkflowDuration *prometheus.HistogramVec
	watchPollsTotal       *prometheus.CounterVec

	// Database
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC call attempts by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC call attempts in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		rpcRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		rpcRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),
		rpcErrorsByKind: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_errors_total",
				Help: "Total number of classified Solana RPC failures returned to callers",
			},
			[]string{"method", "kind"},
		),
		mintLookupsPerReq: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_mint_lookups_per_request",
				Help:    "Number of distinct mint lookups performed per token balance request",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"endpoint"},
		),

		tokenBalancesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_token_balances_total",
				Help: "Total number of token balances returned, by outcome",
			},
			[]string{"outcome"},
		),
		decodeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_decode_failures_total",
				Help: "Total number of account payloads that failed to decode",
			},
			[]string{"layout", "kind"},
		),
		intentsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_transfer_intents_total",
				Help: "Total number of transfer intents recorded",
			},
			[]string{"status"},
		),

		watchWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watch_workflow_duration_seconds",
				Help:    "Duration of transaction watch workflows in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		watchPollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watch_status_checks_total",
				Help: "Total number of transaction status checks performed by watch workflows",
			},
			[]string{"status"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// RecordRPCCall records a single Solana RPC attempt with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.rpcCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.rpcRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	if m == nil {
		return
	}
	m.rpcRetries.WithLabelValues(method, reason).Inc()
}

// RecordRPCError records the final classified failure of a call.
func (m *Metrics) RecordRPCError(method, kind string) {
	if m == nil {
		return
	}
	m.rpcErrorsByKind.WithLabelValues(method, kind).Inc()
}

// RecordMintLookups records how many distinct mints one request resolved.
func (m *Metrics) RecordMintLookups(endpoint string, count int) {
	if m == nil {
		return
	}
	m.mintLookupsPerReq.WithLabelValues(endpoint).Observe(float64(count))
}

// RecordTokenBalances records normalized token balances by outcome
// ("complete", "degraded", "skipped").
func (m *Metrics) RecordTokenBalances(outcome string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.tokenBalancesTotal.WithLabelValues(outcome).Add(float64(count))
}

// RecordDecodeFailure records an account payload that failed to decode.
func (m *Metrics) RecordDecodeFailure(layout, kind string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(layout, kind).Inc()
}

// RecordIntent records a transfer intent outcome.
func (m *Metrics) RecordIntent(status string) {
	if m == nil {
		return
	}
	m.intentsRecorded.WithLabelValues(status).Inc()
}

// RecordWatchWorkflow records a finished watch workflow.
func (m *Metrics) RecordWatchWorkflow(status string, duration float64) {
	if m == nil {
		return
	}
	m.watchWorkflowDuration.WithLabelValues(status).Observe(duration)
}

// RecordWatchPoll records one status check made on behalf of a watch.
func (m *Metrics) RecordWatchPoll(status string) {
	if m == nil {
		return
	}
	m.watchPollsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
