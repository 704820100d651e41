package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering the same collectors twice should fail")
}

func TestObserveRun(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRun("completed", 1.5, 3)
	m.ObserveRun("completed", 0.5, 1)
	m.ObserveRun("failed", 0.1, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RunPolls))
}

func TestObserveRun_NilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveRun("completed", 1, 1) })
}
