package metrics

import (
	"net/http"
	"time"
)

// HTTPMetricsMiddleware records request count and latency under a fixed
// route name (e.g. "/api/v1/accounts/{address}") so label cardinality
// does not grow with path parameters.
func HTTPMetricsMiddleware(m *Metrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			m.RecordHTTPRequest(route, r.Method, sw.statusCode, time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}
