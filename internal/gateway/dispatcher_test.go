package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
)

// stubHandler is a configurable test handler.
type stubHandler struct {
	service string
	fn      func(ctx context.Context, action string, params Params) (any, error)
}

func (h *stubHandler) Service() string { return h.service }

func (h *stubHandler) Handle(ctx context.Context, action string, params Params) (any, error) {
	return h.fn(ctx, action, params)
}

func newTestDispatcher(t *testing.T, handlers ...Handler) *Dispatcher {
	t.Helper()
	reg := NewRegistry()
	for _, h := range handlers {
		reg.Register(h)
	}
	reg.Freeze()
	_, metrics := observability.NewMetricsRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(reg, metrics, nil, logger)
}

func requireCode(t *testing.T, err error, code string) *domainerrors.Error {
	t.Helper()
	require.Error(t, err)
	var ge *domainerrors.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, code, ge.Code)
	return ge
}

func TestDispatch_HappyPath(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "echo",
		fn: func(_ context.Context, action string, params Params) (any, error) {
			return map[string]any{"action": action, "params": params}, nil
		},
	})

	data, err := d.Dispatch(context.Background(), "echo", "say", Params{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"action": "say", "params": Params{"text": "hi"}}, data)
}

func TestDispatch_ServiceNameIsCaseInsensitive(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "Echo",
		fn: func(context.Context, string, Params) (any, error) {
			return "ok", nil
		},
	})

	_, err := d.Dispatch(context.Background(), "ECHO", "say", nil)
	assert.NoError(t, err)
}

func TestDispatch_MissingServiceOrAction(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "", "list", nil)
	requireCode(t, err, domainerrors.CodeInvalidRequest)

	_, err = d.Dispatch(context.Background(), "mail", "  ", nil)
	requireCode(t, err, domainerrors.CodeInvalidRequest)
}

func TestDispatch_UnknownServiceNamesIt(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "widgets", "list", nil)
	ge := requireCode(t, err, domainerrors.CodeNotFound)
	assert.Contains(t, ge.Message, "widgets")
	assert.False(t, ge.Retryable)
}

func TestDispatch_PanicWithQuotaMessage(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "mail",
		fn: func(context.Context, string, Params) (any, error) {
			panic("Gmail API Quota exceeded for today")
		},
	})

	data, err := d.Dispatch(context.Background(), "mail", "list", nil)
	assert.Nil(t, data)
	ge := requireCode(t, err, domainerrors.CodeQuotaExceeded)
	assert.True(t, ge.Retryable)
}

func TestDispatch_PanicMapsToServiceError(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "mail",
		fn: func(context.Context, string, Params) (any, error) {
			panic("index out of range")
		},
	})

	data, err := d.Dispatch(context.Background(), "mail", "list", nil)
	assert.Nil(t, data)
	ge := requireCode(t, err, domainerrors.CodeServiceError)
	assert.True(t, ge.Retryable)
	assert.Contains(t, ge.Message, "mail.list failed:")
}

func TestDispatch_PlainErrorWrappedWithOp(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "files",
		fn: func(context.Context, string, Params) (any, error) {
			return nil, errors.New("upstream returned status 502")
		},
	})

	_, err := d.Dispatch(context.Background(), "files", "download", nil)
	ge := requireCode(t, err, domainerrors.CodeServiceError)
	assert.Equal(t, "files.download failed: upstream returned status 502", ge.Message)
}

func TestDispatch_QuotaErrorFromHandler(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "files",
		fn: func(context.Context, string, Params) (any, error) {
			return nil, errors.New("storage quota reached")
		},
	})

	_, err := d.Dispatch(context.Background(), "files", "upload", nil)
	requireCode(t, err, domainerrors.CodeQuotaExceeded)
}

func TestDispatch_TaxonomyErrorPassesThrough(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "mail",
		fn: func(context.Context, string, Params) (any, error) {
			return nil, domainerrors.New(domainerrors.CodeForbidden, "Access to this message is not permitted")
		},
	})

	_, err := d.Dispatch(context.Background(), "mail", "get", nil)
	ge := requireCode(t, err, domainerrors.CodeForbidden)
	assert.Equal(t, "Access to this message is not permitted", ge.Message)
}

func TestDispatch_Totality(t *testing.T) {
	d := newTestDispatcher(t, &stubHandler{
		service: "chaos",
		fn: func(_ context.Context, action string, _ Params) (any, error) {
			switch action {
			case "panic":
				panic(errors.New("wrapped panic value"))
			case "nilmap":
				var m map[string]int
				m["boom"] = 1
				return nil, nil
			default:
				return "ok", nil
			}
		},
	})

	for _, action := range []string{"panic", "nilmap", "fine"} {
		assert.NotPanics(t, func() {
			_, _ = d.Dispatch(context.Background(), "chaos", action, nil)
		}, "action %s", action)
	}
}

func TestRegistry_FreezePreventsLateRegistration(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubHandler{service: "a", fn: func(context.Context, string, Params) (any, error) { return nil, nil }})
	reg.Freeze()

	assert.Panics(t, func() {
		reg.Register(&stubHandler{service: "b"})
	})
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubHandler{service: "a"})
	assert.Panics(t, func() {
		reg.Register(&stubHandler{service: "A"})
	})
}

func TestRegistry_ServicesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"mail", "admin", "files"} {
		reg.Register(&stubHandler{service: name})
	}
	assert.Equal(t, []string{"admin", "files", "mail"}, reg.Services())
}
