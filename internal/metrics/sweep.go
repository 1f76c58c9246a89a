package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics records auto-invoice sweep health. A nil *SweepMetrics is a
// no-op so callers never need to guard.
type SweepMetrics struct {
	runs          prometheus.Counter
	runDuration   prometheus.Histogram
	lastRun       prometheus.Gauge
	outcomes      *prometheus.CounterVec
	invoicedTotal *prometheus.CounterVec
	storeRetries  prometheus.Counter
}

func NewSweepMetrics(registerer prometheus.Registerer) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &SweepMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_sweep_runs_total",
			Help: "Auto-invoice sweeps started.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "billing_sweep_duration_seconds",
			Help:    "Wall time of a full auto-invoice sweep.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billing_sweep_last_run_timestamp_seconds",
			Help: "Unix time the last sweep finished.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_sweep_outcomes_total",
			Help: "Per-contract sweep outcomes.",
		}, []string{"outcome", "contract_type"}),
		invoicedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_sweep_invoiced_amount_total",
			Help: "Sum of invoice totals raised by the sweep, by currency.",
		}, []string{"currency"}),
		storeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_store_retries_total",
			Help: "Store calls retried after a transient lock error.",
		}),
	}

	registerer.MustRegister(m.runs, m.runDuration, m.lastRun, m.outcomes, m.invoicedTotal, m.storeRetries)
	return m
}

func (m *SweepMetrics) ObserveRun(started, finished time.Time) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(finished.Sub(started).Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}

func (m *SweepMetrics) ObserveOutcome(outcome, contractType string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome, contractType).Inc()
}

func (m *SweepMetrics) AddInvoiced(currency string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.invoicedTotal.WithLabelValues(currency).Add(amount)
}

func (m *SweepMetrics) IncStoreRetry() {
	if m == nil {
		return
	}
	m.storeRetries.Inc()
}
