// Package trace logs every dashboard request and binds a request-scoped
// logger into the context.
package trace

import (
	"net/http"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	applog "kitchenledger/internal/log"
)

// Middleware handles request tracing and logging
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string

	totalRequests int64
	failed        int64
	totalMicros   int64
}

// Metrics is a point-in-time view of the traced traffic.
type Metrics struct {
	TotalRequests       int64
	FailedRequests      int64
	AverageResponseTime time.Duration
}

// NewMiddleware creates a new trace middleware. extractIP may be nil.
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		logger:    logger,
		extractIP: extractIP,
	}
}

// Handler must run after chi's RequestID middleware.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	bind := applog.Middleware(m.logger)(applog.RequestIDMiddleware(RequestID)(next))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		ctx := r.Context()
		structured := applog.NewStructuredLogger(m.logger.With(applog.FieldRequestID, RequestID(r)))

		structured.LogHTTPStart(ctx, r, clientIP)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		bind.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		atomic.AddInt64(&m.totalRequests, 1)
		atomic.AddInt64(&m.totalMicros, elapsed.Microseconds())
		if status >= 500 {
			atomic.AddInt64(&m.failed, 1)
		}

		structured.LogHTTPEnd(ctx, r, status, elapsed.Milliseconds(), clientIP)
	})
}

// RequestID returns the chi request id of r, or "" outside the chain.
func RequestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	total := atomic.LoadInt64(&m.totalRequests)
	out := Metrics{
		TotalRequests:  total,
		FailedRequests: atomic.LoadInt64(&m.failed),
	}
	if total > 0 {
		out.AverageResponseTime = time.Duration(atomic.LoadInt64(&m.totalMicros)/total) * time.Microsecond
	}
	return out
}
