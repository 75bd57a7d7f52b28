// Package middleware provides HTTP middleware for the transport layer.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/primevalsoup/workspace-gateway/internal/gateway"
)

// headerXRequestID is the HTTP header name for request ID.
const headerXRequestID = "X-Request-ID"

// RequestID returns a middleware that generates or passes through a request ID.
// If the incoming request has an X-Request-ID header, it uses that value
// (passthrough). Otherwise it generates a new UUIDv4. The ID is injected
// into the request context and set in the response header.
//
// The request ID has uniqueness-within-log-window semantics only; it is not
// a security identifier.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(headerXRequestID, requestID)
		ctx := gateway.WithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
