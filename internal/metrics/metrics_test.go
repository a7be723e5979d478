package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustNew_RecordsTaskOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveTaskDuration("market_data_agent", "success", 50*time.Millisecond)
	m.IncTaskCompleted("market_data_agent", "success")
	m.IncTaskFailure("polymarket_agent", "tool_error")
	m.IncActiveRuns()
	m.IncActiveRuns()
	m.DecActiveRuns()

	families, err := reg.Gather()
	require.NoError(t, err)

	var runsActive float64
	var sawFailure, sawCompleted bool
	for _, fam := range families {
		switch fam.GetName() {
		case "depgraph_engine_runs_active":
			runsActive = fam.Metric[0].GetGauge().GetValue()
		case "depgraph_executor_task_failures_total":
			sawFailure = true
		case "depgraph_executor_tasks_total":
			sawCompleted = true
		}
	}
	assert.Equal(t, 1.0, runsActive)
	assert.True(t, sawFailure)
	assert.True(t, sawCompleted)
}

func TestMustNew_ReusesAlreadyRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	second.IncActiveRuns()
	families, err := reg.Gather()
	require.NoError(t, err)

	var gauge *dto.Gauge
	for _, fam := range families {
		if fam.GetName() == "depgraph_engine_runs_active" {
			gauge = fam.Metric[0].GetGauge()
		}
	}
	require.NotNil(t, gauge)
	assert.Equal(t, 1.0, gauge.GetValue())
	assert.NotNil(t, first)
}

func TestNilMetrics_MethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTaskDuration("a", "success", time.Second)
		m.IncTaskFailure("a", "reason")
		m.IncTaskCompleted("a", "success")
		m.IncActiveRuns()
		m.DecActiveRuns()
	})
}
