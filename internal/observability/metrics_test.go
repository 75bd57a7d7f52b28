package observability

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg interface{ Gather() ([]*dto.MetricFamily, error) }) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestNewMetricsRegistry_RegistersCollectors(t *testing.T) {
	reg, m := NewMetricsRegistry()

	m.IncRequest("mail", "list", "OK")
	m.ObserveDuration("mail", "list", 0.25)
	m.IncAuditDropped()
	m.IncReputationFailure()
	m.IncPanicRecovered()

	families := gather(t, reg)

	for _, name := range []string{
		"gateway_requests_total",
		"gateway_request_duration_seconds",
		"gateway_audit_entries_dropped_total",
		"gateway_reputation_failures_total",
		"gateway_panics_recovered_total",
		"go_goroutines",
	} {
		assert.Contains(t, families, name, "collector %s", name)
	}
}

func TestIncRequest_Labels(t *testing.T) {
	reg, m := NewMetricsRegistry()

	m.IncRequest("mail", "list", "OK")
	m.IncRequest("mail", "list", "OK")
	m.IncRequest("admin", "health", "AUTH_FAILED")

	mf := gather(t, reg)["gateway_requests_total"]
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 2)

	byLabels := make(map[string]float64)
	for _, metric := range mf.GetMetric() {
		key := ""
		for _, lp := range metric.GetLabel() {
			key += lp.GetName() + "=" + lp.GetValue() + ";"
		}
		byLabels[key] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), byLabels["action=list;service=mail;status=OK;"])
	assert.Equal(t, float64(1), byLabels["action=health;service=admin;status=AUTH_FAILED;"])
}

func TestObserveDuration_Histogram(t *testing.T) {
	reg, m := NewMetricsRegistry()

	m.ObserveDuration("mail", "list", 0.1)
	m.ObserveDuration("mail", "list", 0.2)

	mf := gather(t, reg)["gateway_request_duration_seconds"]
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	h := mf.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 0.3, h.GetSampleSum(), 1e-9)
}

func TestReset_ClearsVectors(t *testing.T) {
	reg, m := NewMetricsRegistry()
	m.IncRequest("mail", "list", "OK")
	m.Reset()

	mf := gather(t, reg)["gateway_requests_total"]
	if mf != nil {
		assert.Empty(t, mf.GetMetric())
	}
}
