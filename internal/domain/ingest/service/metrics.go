package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stageExtract = "extract"
	stageStore   = "store"
)

// Metrics holds the ingestion collectors. A nil *Metrics records nothing.
type Metrics struct {
	ingestions  *prometheus.CounterVec
	rows        *prometheus.CounterVec
	corrections *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics registers the ingestion collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ingestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "ingestions_total",
			Help:      "Completed ingestions by extraction source.",
		}, []string{"source"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "rows_total",
			Help:      "Ledger rows by outcome.",
		}, []string{"outcome"}),
		corrections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "field_corrections_total",
			Help:      "Fields replaced by a default during normalization.",
		}, []string{"field"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "ingestion_failures_total",
			Help:      "Failed ingestions by stage.",
		}, []string{"stage"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "ingestion_duration_seconds",
			Help:      "Time spent ingesting one document.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) recorded(r *IngestResult) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(string(r.Source)).Inc()
	m.rows.WithLabelValues("imported").Add(float64(r.Imported))
	m.rows.WithLabelValues("updated").Add(float64(r.Updated))
	m.rows.WithLabelValues("dropped").Add(float64(r.RowsDropped))
	for field, n := range r.Corrections.Fields() {
		m.corrections.WithLabelValues(field).Add(float64(n))
	}
}

func (m *Metrics) failed(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) observe(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
