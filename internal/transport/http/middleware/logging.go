package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
)

// RequestLogger returns a middleware that logs HTTP request completion.
// It captures method, route, status, duration, and response size.
// The requestId field is populated from the context (set by RequestID middleware).
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := NewResponseWrapper(w)
			next.ServeHTTP(ww, r)

			routePattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				routePattern = rctx.RoutePattern()
			}
			if routePattern == "" {
				routePattern = r.URL.Path
			}

			logger.InfoContext(r.Context(), "request completed",
				"method", r.Method,
				"route", routePattern,
				observability.LogKeyStatus, ww.Status(),
				observability.LogKeyDuration, time.Since(start).Milliseconds(),
				"bytes", ww.BytesWritten(),
				observability.LogKeyRequestID, gateway.RequestIDFromContext(r.Context()),
			)
		})
	}
}
