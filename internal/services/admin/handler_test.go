package admin_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primevalsoup/workspace-gateway/internal/audit"
	"github.com/primevalsoup/workspace-gateway/internal/config"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
	"github.com/primevalsoup/workspace-gateway/internal/services/admin"
	"github.com/primevalsoup/workspace-gateway/internal/version"
)

type fixture struct {
	handler  *admin.Handler
	cfg      *config.Store
	sink     *audit.MemorySink
	recorder *audit.Recorder
	registry *gateway.Registry
}

type noopHandler struct{ name string }

func (h noopHandler) Service() string { return h.name }
func (h noopHandler) Handle(context.Context, string, gateway.Params) (any, error) {
	return nil, nil
}

func newFixture(t *testing.T, seed map[string]string) *fixture {
	t.Helper()
	cfg := config.New(seed)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, metrics := observability.NewMetricsRegistry()
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(cfg, sink, logger, metrics)

	registry := gateway.NewRegistry()
	h := admin.NewHandler(cfg, recorder, registry)
	registry.Register(h)
	registry.Register(noopHandler{name: "mail"})
	registry.Freeze()

	return &fixture{handler: h, cfg: cfg, sink: sink, recorder: recorder, registry: registry}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, map[string]string{config.KeyJWTSecret: "topsecret-abcdefghijklmnopqrstu"})

	data, err := f.handler.Handle(context.Background(), "health", gateway.Params{})
	require.NoError(t, err)

	m := data.(map[string]any)
	assert.Equal(t, "healthy", m["status"])
	assert.Equal(t, version.Version, m["version"])
	assert.Equal(t, true, m["configured"])
	assert.Equal(t, []string{"admin", "mail"}, m["services"])
}

func TestHealth_Unconfigured(t *testing.T) {
	f := newFixture(t, nil)

	data, err := f.handler.Handle(context.Background(), "health", gateway.Params{})
	require.NoError(t, err)
	assert.Equal(t, false, data.(map[string]any)["configured"])
}

func TestConfigGet_SnapshotRedactsSecrets(t *testing.T) {
	f := newFixture(t, map[string]string{
		config.KeyJWTSecret:     "topsecret-abcdefghijklmnopqrstu",
		config.KeyIPCheckAPIKey: "abuse-key-12345",
	})

	data, err := f.handler.Handle(context.Background(), "config.get", gateway.Params{})
	require.NoError(t, err)

	snap := data.(map[string]any)["config"].(map[string]string)
	assert.Equal(t, config.Mask+"rstu", snap[config.KeyJWTSecret])
	assert.Equal(t, config.Mask+"2345", snap[config.KeyIPCheckAPIKey])
	assert.NotContains(t, snap[config.KeyJWTSecret], "topsecret")
}

func TestConfigGet_SingleKey(t *testing.T) {
	f := newFixture(t, map[string]string{config.KeyJWTSecret: "topsecret-abcdefghijklmnopqrstu"})

	data, err := f.handler.Handle(context.Background(), "config.get",
		gateway.Params{"key": config.KeyJWTSecret})
	require.NoError(t, err)

	m := data.(map[string]any)
	assert.Equal(t, config.Mask+"rstu", m["value"])
}

func TestConfigSet(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.handler.Handle(context.Background(), "config.set",
		gateway.Params{"key": config.KeyLogMaxRows, "value": "100"})
	require.NoError(t, err)
	assert.Equal(t, "100", f.cfg.Get(config.KeyLogMaxRows))
}

func TestConfigSet_RequiresKey(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.handler.Handle(context.Background(), "config.set",
		gateway.Params{"value": "100"})
	var ge *domainerrors.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, domainerrors.CodeInvalidRequest, ge.Code)
}

func TestConfigSet_EchoMasksSensitiveValue(t *testing.T) {
	f := newFixture(t, nil)

	data, err := f.handler.Handle(context.Background(), "config.set",
		gateway.Params{"key": config.KeyJWTSecret, "value": "topsecret-abcdefghijklmnopqrstu"})
	require.NoError(t, err)
	assert.Equal(t, config.Mask+"rstu", data.(map[string]any)["value"])
}

func TestLogStatusAndClear(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.recorder.Record(ctx, audit.Entry{RequestID: "r", Status: audit.StatusOK})
	}

	data, err := f.handler.Handle(ctx, "log.status", gateway.Params{})
	require.NoError(t, err)
	m := data.(map[string]any)
	assert.Equal(t, true, m["enabled"])
	assert.Equal(t, 3, m["rows"])
	assert.Equal(t, 5000, m["maxRows"])

	_, err = f.handler.Handle(ctx, "log.clear", gateway.Params{})
	require.NoError(t, err)

	data, err = f.handler.Handle(ctx, "log.status", gateway.Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, data.(map[string]any)["rows"])
}

func TestLogTail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.recorder.Record(ctx, audit.Entry{RequestID: "r", Status: audit.StatusOK})
	}

	data, err := f.handler.Handle(ctx, "log.tail", gateway.Params{"limit": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, data.(map[string]any)["count"])
}

func TestIPLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	data, err := f.handler.Handle(ctx, "ip.list", gateway.Params{})
	require.NoError(t, err)
	assert.Empty(t, data.(map[string]any)["allowlist"])

	_, err = f.handler.Handle(ctx, "ip.add", gateway.Params{"entry": "203.0.113.0/24"})
	require.NoError(t, err)
	_, err = f.handler.Handle(ctx, "ip.add", gateway.Params{"entry": "198.51.100.7"})
	require.NoError(t, err)

	// Duplicate adds are idempotent.
	_, err = f.handler.Handle(ctx, "ip.add", gateway.Params{"entry": "198.51.100.7"})
	require.NoError(t, err)

	data, err = f.handler.Handle(ctx, "ip.list", gateway.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.0/24", "198.51.100.7"},
		data.(map[string]any)["allowlist"])

	_, err = f.handler.Handle(ctx, "ip.remove", gateway.Params{"entry": "198.51.100.7"})
	require.NoError(t, err)

	data, err = f.handler.Handle(ctx, "ip.list", gateway.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.0/24"}, data.(map[string]any)["allowlist"])
}

func TestIPAdd_RejectsMalformedEntry(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.handler.Handle(context.Background(), "ip.add", gateway.Params{"entry": "not-an-ip"})
	var ge *domainerrors.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, domainerrors.CodeInvalidRequest, ge.Code)
}

func TestHandle_UnknownAction(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.handler.Handle(context.Background(), "reboot", gateway.Params{})
	var ge *domainerrors.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, domainerrors.CodeNotFound, ge.Code)
}
