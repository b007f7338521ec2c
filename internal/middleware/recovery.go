// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"log/slog"
	"net/http"
)

// RecoverPanic creates a middleware that recovers from panics in HTTP handlers.
//
// When a panic occurs, it logs the error together with the request ID and
// returns a 500 Internal Server Error to the client instead of crashing the
// entire server. http.ErrAbortHandler is re-raised so net/http can abort the
// connection as intended.
//
// Parameters:
//   - logger: structured logger instance for logging panic details
//
// Returns a middleware function that wraps an http.Handler.
func RecoverPanic(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.Error("Panic recovered",
					"error", err,
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so that the first one listed runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
