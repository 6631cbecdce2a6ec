// Package trace logs every request and feeds the HTTP Prometheus metrics.
package trace

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	base      *applog.Logger
}

// NewMiddleware creates a trace middleware. Requests get a logger tagged with
// chi's request id, reachable through applog.FromContext.
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		base:      logger,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		reqLogger := m.base.With(applog.FieldRequestID, middleware.GetReqID(r.Context()))
		r = r.WithContext(applog.WithLogger(r.Context(), reqLogger))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := RoutePattern(r)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		applog.NewStructuredLogger(reqLogger).LogHTTPEnd(r.Context(), r, status, duration.Milliseconds(), clientIP)
	})
}

// RoutePattern is the matched chi route, e.g. /budgets/{id}, so metric
// labels stay bounded. Unmatched requests share one label.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
