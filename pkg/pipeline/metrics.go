package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of argfeat_sentences_total.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metrics holds the Prometheus metrics of extraction runs.
//
// Metrics:
//   - argfeat_sentences_total{outcome} - sentences extracted, by outcome
//   - argfeat_extract_duration_seconds - histogram of per-sentence extraction time
//   - argfeat_runs_in_progress - number of runs currently executing
type Metrics struct {
	Sentences  *prometheus.CounterVec
	Duration   prometheus.Histogram
	InProgress prometheus.Gauge
}

// NewMetrics registers the metrics on reg. A nil reg creates unregistered
// metrics, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sentences: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argfeat_sentences_total",
				Help: "Total number of sentences extracted, by outcome",
			},
			[]string{"outcome"}, // "valid", "invalid" or "failed"
		),
		Duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "argfeat_extract_duration_seconds",
				Help:    "Duration of a single sentence extraction in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
		),
		InProgress: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "argfeat_runs_in_progress",
				Help: "Number of extraction runs currently executing",
			},
		),
	}
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Sentences.WithLabelValues(outcome).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) runStarted() {
	if m != nil {
		m.InProgress.Inc()
	}
}

func (m *Metrics) runFinished() {
	if m != nil {
		m.InProgress.Dec()
	}
}
