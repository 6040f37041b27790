package middleware

import (
	"net/http"
	"strconv"
	"time"

	"runclub-sync/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Metrics wraps an HTTP handler with Prometheus request metrics
func Metrics(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(wrapped.statusCode)
		metrics.HTTPRequestsTotal.WithLabelValues(endpoint, statusStr).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(endpoint, statusStr).Observe(duration)
	})
}

// WrapHandler is a convenience function to wrap a HandlerFunc with metrics
func WrapHandler(endpoint string, handler http.HandlerFunc) http.Handler {
	return Metrics(endpoint, handler)
}
