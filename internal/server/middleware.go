package server

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware enforces a single process-wide token bucket
// across every route. A dedicated per-team or per-route limiter is a
// natural follow-up but isn't needed at this scale.
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
