package gateway

import "context"

// contextKey is a custom type to avoid context key collisions.
type contextKey string

const requestIDKey contextKey = "requestId"

// WithRequestID returns a context carrying the per-request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from the context.
// Returns an empty string if none is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
