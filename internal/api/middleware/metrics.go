package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
)

// Instrument records request count and latency per route pattern. It must
// be mounted on the root router so the pattern is complete when it reads it.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			m.ObserveRequest(r.Method, RoutePattern(r), strconv.Itoa(rec.status), time.Since(start))
		})
	}
}

// RoutePattern returns the matched chi pattern, or "unmatched" so unknown
// paths do not create a label per URL.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
