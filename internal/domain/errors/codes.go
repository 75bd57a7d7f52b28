// Package errors provides the central error code registry and gateway error types.
//
// # Error Code Naming Convention
//
// All public error codes follow UPPER_SNAKE_CASE format without prefix:
//   - ✅ NOT_FOUND (correct)
//   - ❌ ERR_NOT_FOUND (incorrect - no ERR_ prefix)
//   - ❌ NotFound (incorrect - use UPPER_SNAKE_CASE)
//
// These codes form a closed set: every failure envelope the gateway emits
// carries exactly one of them, and the client companion maps them to stable
// exit codes. Each code has a default retryability; individual occurrences
// may override it.
//
// # Usage
//
//	err := errors.New(errors.CodeNotFound, "unknown service \"widgets\"")
//	// or with explicit retryability
//	err := errors.New(errors.CodeServiceError, "mail.list failed: upstream 503").AsRetryable()
package errors

// Central error code constants for the gateway.
// Format: UPPER_SNAKE_CASE without ERR_ prefix.
const (
	// CodeInvalidRequest indicates a malformed or incomplete request envelope
	// or missing/empty required parameters.
	CodeInvalidRequest = "INVALID_REQUEST"

	// CodeAuthFailed indicates token verification failed (signature, temporal
	// checks, replay, or missing configuration).
	CodeAuthFailed = "AUTH_FAILED"

	// CodeIPBlocked indicates the reported client IP was rejected by the
	// allow-list or the reputation check.
	CodeIPBlocked = "IP_BLOCKED"

	// CodeForbidden indicates access to a security-sensitive item was refused.
	CodeForbidden = "FORBIDDEN"

	// CodeNotFound indicates an unknown service or missing resource.
	CodeNotFound = "NOT_FOUND"

	// CodeQuotaExceeded indicates an upstream quota was exhausted.
	CodeQuotaExceeded = "QUOTA_EXCEEDED"

	// CodeTimeout indicates the request exceeded the gateway's soft deadline.
	CodeTimeout = "TIMEOUT"

	// CodeServiceError indicates an unexpected handler or upstream failure.
	CodeServiceError = "SERVICE_ERROR"

	// CodeInitRejected indicates a bootstrap secret-set attempt was refused
	// (already configured, or the supplied secret was unacceptable).
	CodeInitRejected = "INIT_REJECTED"

	// CodeInitExpired indicates the bootstrap window has elapsed.
	CodeInitExpired = "INIT_EXPIRED"
)

// allCodes is a registry of all valid error codes with their default
// retryability. Retryability is a property of each occurrence; these are the
// defaults applied when a code is raised without an explicit override.
var allCodes = map[string]bool{
	CodeInvalidRequest: false,
	CodeAuthFailed:     false,
	CodeIPBlocked:      false,
	CodeForbidden:      false,
	CodeNotFound:       false,
	CodeQuotaExceeded:  true,
	CodeTimeout:        true,
	CodeServiceError:   true,
	CodeInitRejected:   false,
	CodeInitExpired:    false,
}

// IsValidCode checks if the provided code is a valid registered error code.
func IsValidCode(code string) bool {
	_, ok := allCodes[code]
	return ok
}

// DefaultRetryable reports the default retryability for a code.
// Unknown codes are non-retryable.
func DefaultRetryable(code string) bool {
	return allCodes[code]
}

// AllCodes returns a slice of all registered error codes.
// Useful for testing to ensure all codes have mappings.
func AllCodes() []string {
	codes := make([]string, 0, len(allCodes))
	for code := range allCodes {
		codes = append(codes, code)
	}
	return codes
}
