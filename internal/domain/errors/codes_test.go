package errors

import (
	"regexp"
	"testing"
)

// TestAllCodesAreUpperSnake verifies all code constants follow UPPER_SNAKE_CASE format.
func TestAllCodesAreUpperSnake(t *testing.T) {
	upperSnakePattern := regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)*$`)

	for code := range allCodes {
		t.Run(code, func(t *testing.T) {
			if !upperSnakePattern.MatchString(code) {
				t.Errorf("Code %q does not match UPPER_SNAKE_CASE pattern", code)
			}
		})
	}
}

// TestDefaultRetryability pins the retryability defaults of the closed set.
func TestDefaultRetryability(t *testing.T) {
	tests := []struct {
		code      string
		retryable bool
	}{
		{CodeInvalidRequest, false},
		{CodeAuthFailed, false},
		{CodeIPBlocked, false},
		{CodeForbidden, false},
		{CodeNotFound, false},
		{CodeQuotaExceeded, true},
		{CodeTimeout, true},
		{CodeServiceError, true},
		{CodeInitRejected, false},
		{CodeInitExpired, false},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			if !IsValidCode(tc.code) {
				t.Fatalf("Code %q is not in the registry", tc.code)
			}
			if got := DefaultRetryable(tc.code); got != tc.retryable {
				t.Errorf("DefaultRetryable(%q) = %v, want %v", tc.code, got, tc.retryable)
			}
		})
	}

	if len(tests) != len(allCodes) {
		t.Errorf("registry has %d codes, test covers %d", len(allCodes), len(tests))
	}
}

func TestNew_InvalidCode(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("The code did not panic")
		}
	}()

	// Should panic
	New("INVALID_CODE_XYZ", "message")
}
