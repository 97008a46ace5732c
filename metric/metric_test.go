package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_RegistersPipelineMetrics(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg.Metrics)

	reg.Metrics.ImportsTotal.WithLabelValues("text", "success").Inc()
	reg.Metrics.AssetsProduced.Add(3)
	reg.Metrics.CacheHits.Inc()
	reg.Metrics.StateMismatches.Inc()
	reg.Metrics.InFlight.Set(2)

	families, err := reg.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["atelier_import_runs_total"])
	assert.True(t, names["atelier_import_duration_seconds"])
	assert.True(t, names["atelier_import_assets_produced_total"])
	assert.True(t, names["atelier_import_cache_hits_total"])
	assert.True(t, names["atelier_import_state_mismatches_total"])
	assert.True(t, names["atelier_import_in_flight"])
}

func TestMetrics_CounterValues(t *testing.T) {
	m := NewMetrics()

	m.ImportsTotal.WithLabelValues("text", "success").Inc()
	m.ImportsTotal.WithLabelValues("text", "success").Inc()
	m.ImportsTotal.WithLabelValues("text", "failed").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("text", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("text", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheHits))
}

func TestRegistry_AcceptsExtraCollectors(t *testing.T) {
	reg := NewRegistry()
	assert.NotNil(t, reg.Registerer())
	assert.NotPanics(t, func() {
		reg.Metrics.ImportDuration.WithLabelValues("document").Observe(0.02)
	})
}
