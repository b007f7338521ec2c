package middleware

import (
	"log/slog"
	"net/http"
)

// Allower decides whether a request from the client identified by key may
// proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit creates a middleware that enforces rate limiting per client key.
//
// Parameters:
//   - limiter: the rate limiter instance
//   - clientKey: function deriving the client key from the request
//   - onReject: called for every rejected request, may be nil
//   - logger: structured logger instance
//
// Returns a middleware function that wraps an http.Handler.
func RateLimit(limiter Allower, clientKey func(*http.Request) string, onReject func(), logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Allow(key) {
				if onReject != nil {
					onReject()
				}
				logger.Debug("Rate limit exceeded",
					"client", key,
					"request_id", RequestIDFromContext(r.Context()))
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
