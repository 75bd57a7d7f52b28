package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
)

// Recoverer returns a middleware that recovers from panics, logs them with
// the full stack trace, increments the panic counter, and returns a safe
// SERVICE_ERROR envelope. Panic details are never exposed to the client.
//
// Handler panics are already trapped inside the dispatcher; this middleware
// is the last defense against bugs in the transport layer itself.
func Recoverer(logger *slog.Logger, metrics *observability.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestID := gateway.RequestIDFromContext(r.Context())

					logger.ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
						observability.LogKeyRequestID, requestID,
					)
					metrics.IncPanicRecovered()

					resp := gateway.Failure(requestID,
						domainerrors.New(domainerrors.CodeServiceError, "Internal error"))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(resp)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
