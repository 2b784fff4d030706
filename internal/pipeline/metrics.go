package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for the mapping pipeline. Registration is
// the caller's concern; the engine itself exposes no HTTP surface. A nil
// *Metrics disables collection.
type Metrics struct {
	// Documents processed by status ("ok", "error")
	Documents *prometheus.CounterVec

	// Mapping decisions by outcome
	Decisions *prometheus.CounterVec

	// Documents that needed the recognition fallback path
	Fallbacks prometheus.Counter

	// Full pipeline latency per document
	Duration prometheus.Histogram
}

// NewMetrics creates pipeline metrics registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stickermap_documents_total",
			Help: "Documents processed by status",
		}, []string{"status"}),

		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stickermap_decisions_total",
			Help: "Mapping decisions by outcome",
		}, []string{"outcome"}),

		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stickermap_extraction_fallbacks_total",
			Help: "Documents routed through the recognition fallback path",
		}),

		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stickermap_process_duration_seconds",
			Help:    "Duration of full document processing",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Documents, m.Decisions, m.Fallbacks, m.Duration)
	}
	return m
}

func (m *Metrics) IncDocument(status string) {
	if m != nil {
		m.Documents.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncDecision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncFallback() {
	if m != nil {
		m.Fallbacks.Inc()
	}
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Observe(d.Seconds())
	}
}
