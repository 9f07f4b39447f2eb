package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimit applies a server-wide token bucket. Uploads are large and
// infrequent; per-client buckets are not worth the bookkeeping here.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
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
