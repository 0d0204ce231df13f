package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cherrryana/temperature-monitor/internal/observability"
)

// CorrelationIDMiddleware tags every request with a correlation ID, taken from
// the X-Correlation-ID header when the caller supplies one. The ID and a
// request-scoped logger travel in the request context; the ID is echoed in the
// response header and in error envelopes.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Correlation-ID")
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set("X-Correlation-ID", id)

			ctx := context.WithValue(r.Context(), "correlation_id", id)
			ctx = context.WithValue(ctx, "logger", logger.With(zap.String("correlation_id", id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request count and latency per method and route
// template.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := routeTemplate(r.URL.Path)
		class := fmt.Sprintf("%dxx", rec.statusCode/100)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, class).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
	})
}

// routeTemplate collapses city paths to their route template so metrics
// cardinality stays bounded by the route table, not the dataset.
func routeTemplate(path string) string {
	if rest, ok := strings.CutPrefix(path, "/cities/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/cities/{city}/" + rest[i+1:]
		}
		return "/cities/{city}"
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// TimeoutMiddleware sets a deadline on the request context. When exceeded,
// downstream handlers receive context.DeadlineExceeded; the live-check handler
// maps that to 504.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware rejects requests with 429 once the shared token bucket is
// exhausted. A nil limiter disables limiting entirely.
func RateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			observability.RateLimitDeniedTotal.Inc()
			writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		})
	}
}
