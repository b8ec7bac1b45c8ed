package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector counts requests and service-fault responses.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
}

func NewMetricsCollector(requestCount, errorCount *atomic.Int64) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
	}
}

// Middleware counts every request, and counts an error only for 5xx
// responses. 4xx responses are expected outcomes of input validation and
// lookups (invalid input, not found, rate-limited), not service faults,
// so they never inflate the error rate.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 500 {
			mc.errorCount.Add(1)
		}
	})
}
