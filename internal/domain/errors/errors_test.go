package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AppliesDefaultRetryability(t *testing.T) {
	assert.False(t, New(CodeAuthFailed, "bad token").Retryable)
	assert.True(t, New(CodeServiceError, "boom").Retryable)
}

func TestAsRetryable_DoesNotMutateOriginal(t *testing.T) {
	orig := New(CodeNotFound, "missing")
	mod := orig.AsRetryable()

	assert.False(t, orig.Retryable)
	assert.True(t, mod.Retryable)
	assert.Equal(t, orig.Code, mod.Code)
}

func TestWrap_PreservesChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeServiceError, "mail.list failed: connection refused", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "mail.list failed: connection refused", err.Error())
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"taxonomy error passes through", New(CodeForbidden, "no"), CodeForbidden},
		{"wrapped taxonomy error passes through", fmt.Errorf("outer: %w", New(CodeIPBlocked, "no")), CodeIPBlocked},
		{"quota message maps to QUOTA_EXCEEDED", stderrors.New("User Quota exceeded for gmail"), CodeQuotaExceeded},
		{"anything else maps to SERVICE_ERROR", stderrors.New("dial tcp: timeout"), CodeServiceError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromError("mail.list", tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.wantCode, got.Code)
		})
	}
}

func TestFromError_WrapsMessageWithOp(t *testing.T) {
	got := FromError("mail.list", stderrors.New("upstream returned status 502"))
	assert.Equal(t, "mail.list failed: upstream returned status 502", got.Message)
	assert.True(t, got.Retryable)
}

func TestFromError_Nil(t *testing.T) {
	assert.Nil(t, FromError("x.y", nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "", CodeOf(nil))
	assert.Equal(t, CodeTimeout, CodeOf(New(CodeTimeout, "deadline")))
	assert.Equal(t, CodeServiceError, CodeOf(stderrors.New("plain")))
}
