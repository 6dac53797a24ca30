package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/metrics"
	"github.com/aretw0/espalier/pkg/registry"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metric:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorder_CountsEngineActivity(t *testing.T) {
	promReg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(promReg)
	require.NoError(t, err)

	def := chart.Definition{
		ID:      "toggle",
		Initial: "off",
		States: []chart.State{
			{ID: "off", Transitions: []chart.Transition{{Event: "flip", Target: "on"}}},
			{ID: "on", Transitions: []chart.Transition{{Event: "flip", Target: "off"}}},
		},
	}

	interp, err := espalier.New(def, registry.New(), espalier.WithHooks(rec.Hooks()))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, interp.Start(ctx))
	require.NoError(t, interp.Send(ctx, "flip"))
	require.NoError(t, interp.Send(ctx, "flip"))
	require.NoError(t, interp.Send(ctx, "unknown"))

	assert.Equal(t, float64(1),
		counterValue(t, promReg, "espalier_transitions_total", map[string]string{"source": "off", "target": "on"}))
	assert.Equal(t, float64(1),
		counterValue(t, promReg, "espalier_transitions_total", map[string]string{"source": "on", "target": "off"}))
	assert.Equal(t, float64(1),
		counterValue(t, promReg, "espalier_events_discarded_total", map[string]string{"event": "unknown"}))
	// off entered twice (initial entry plus the flip back), on entered once.
	assert.Equal(t, float64(2),
		counterValue(t, promReg, "espalier_state_entries_total", map[string]string{"state": "off"}))
	assert.Equal(t, float64(1),
		counterValue(t, promReg, "espalier_state_entries_total", map[string]string{"state": "on"}))
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	promReg := prometheus.NewRegistry()
	_, err := metrics.NewRecorder(promReg)
	require.NoError(t, err)

	_, err = metrics.NewRecorder(promReg)
	assert.Error(t, err)
}
