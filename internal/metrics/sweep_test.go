package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSweepMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSweepMetrics(registry)

	started := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	m.ObserveRun(started, started.Add(2*time.Second))
	m.ObserveOutcome("generated", "HOURLY")
	m.ObserveOutcome("generated", "HOURLY")
	m.ObserveOutcome("failed", "RETAINER")
	m.AddInvoiced("USD", 1155)
	m.AddInvoiced("USD", 0)
	m.IncStoreRetry()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs))
	assert.Equal(t, float64(started.Add(2*time.Second).Unix()), testutil.ToFloat64(m.lastRun))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues("generated", "HOURLY")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("failed", "RETAINER")))
	assert.Equal(t, float64(1155), testutil.ToFloat64(m.invoicedTotal.WithLabelValues("USD")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeRetries))
}

func TestNilSweepMetricsIsNoop(t *testing.T) {
	var m *SweepMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun(time.Now(), time.Now())
		m.ObserveOutcome("generated", "HOURLY")
		m.AddInvoiced("USD", 1)
		m.IncStoreRetry()
	})
}
