package policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primevalsoup/workspace-gateway/internal/config"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
)

func requireIPBlocked(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var ge *domainerrors.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, domainerrors.CodeIPBlocked, ge.Code)
	assert.False(t, ge.Retryable)
}

func TestCheck_AbsentIPPasses(t *testing.T) {
	cfg := config.New(map[string]string{config.KeyIPAllowlist: "203.0.113.0/24"})
	p := New(cfg, nil, discardLogger())

	assert.NoError(t, p.Check(context.Background(), ""))
	assert.NoError(t, p.Check(context.Background(), "unknown"))
}

func TestCheck_AllowlistDeny(t *testing.T) {
	cfg := config.New(map[string]string{config.KeyIPAllowlist: "203.0.113.0/24"})
	p := New(cfg, nil, discardLogger())

	assert.NoError(t, p.Check(context.Background(), "203.0.113.7"))
	requireIPBlocked(t, p.Check(context.Background(), "198.51.100.7"))
}

func TestCheck_EmptyAllowlistPassesEveryone(t *testing.T) {
	p := New(config.New(nil), nil, discardLogger())
	assert.NoError(t, p.Check(context.Background(), "198.51.100.7"))
}

func TestCheck_RuntimeAllowlistChangeTakesEffect(t *testing.T) {
	cfg := config.New(map[string]string{config.KeyIPAllowlist: "203.0.113.0/24"})
	p := New(cfg, nil, discardLogger())

	requireIPBlocked(t, p.Check(context.Background(), "198.51.100.7"))
	cfg.Set(config.KeyIPAllowlist, "203.0.113.0/24,198.51.100.7")
	assert.NoError(t, p.Check(context.Background(), "198.51.100.7"))
}

func TestCheck_ReputationDeniesAtThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"abuseConfidenceScore":50}}`))
	}))
	defer srv.Close()

	cfg := config.New(map[string]string{
		config.KeyIPCheckEnabled: "true",
		config.KeyIPCheckAPIKey:  "k",
	})
	p := New(cfg, newTestChecker(t, srv.URL, time.Second), discardLogger())

	// Score equal to the default threshold (50) denies.
	requireIPBlocked(t, p.Check(context.Background(), "198.51.100.7"))
}

func TestCheck_ReputationBelowThresholdPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"abuseConfidenceScore":49}}`))
	}))
	defer srv.Close()

	cfg := config.New(map[string]string{
		config.KeyIPCheckEnabled: "true",
		config.KeyIPCheckAPIKey:  "k",
	})
	p := New(cfg, newTestChecker(t, srv.URL, time.Second), discardLogger())

	assert.NoError(t, p.Check(context.Background(), "198.51.100.7"))
}

func TestCheck_ReputationFailureFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	cfg := config.New(map[string]string{
		config.KeyIPCheckEnabled: "true",
		config.KeyIPCheckAPIKey:  "k",
	})
	p := New(cfg, newTestChecker(t, srv.URL, time.Second), discardLogger())

	assert.NoError(t, p.Check(context.Background(), "198.51.100.7"))
}

func TestCheck_ReputationSkippedWithoutAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := config.New(map[string]string{config.KeyIPCheckEnabled: "true"})
	p := New(cfg, newTestChecker(t, srv.URL, time.Second), discardLogger())

	assert.NoError(t, p.Check(context.Background(), "198.51.100.7"))
	assert.False(t, called)
}

func TestCheck_ReputationDisabledByDefault(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := config.New(map[string]string{config.KeyIPCheckAPIKey: "k"})
	p := New(cfg, newTestChecker(t, srv.URL, time.Second), discardLogger())

	assert.NoError(t, p.Check(context.Background(), "198.51.100.7"))
	assert.False(t, called)
}
