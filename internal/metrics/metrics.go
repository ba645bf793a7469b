// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds the pipeline collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	accessions *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	runs       *prometheus.CounterVec
	inFlight   prometheus.Gauge
}

// New registers the pipeline collectors and the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		accessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enaimport",
			Name:      "accessions_total",
			Help:      "Accessions processed, by pipeline and final outcome.",
		}, []string{"pipeline", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enaimport",
			Name:      "submission_attempts_total",
			Help:      "Submission attempts, by pipeline and result.",
		}, []string{"pipeline", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "enaimport",
			Name:      "accession_duration_seconds",
			Help:      "Wall time spent on one accession including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"pipeline"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enaimport",
			Name:      "runs_total",
			Help:      "Pipeline runs, by pipeline and status.",
		}, []string{"pipeline", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "enaimport",
			Name:      "accessions_in_flight",
			Help:      "Accessions currently being processed.",
		}),
	}
	m.registry.MustRegister(
		m.accessions, m.attempts, m.duration, m.runs, m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Nil receivers are no-ops so callers can run without metrics.

func (m *Metrics) AccessionDone(pipeline, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.accessions.WithLabelValues(pipeline, outcome).Inc()
	m.duration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
}

func (m *Metrics) Attempt(pipeline string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.attempts.WithLabelValues(pipeline, result).Inc()
}

func (m *Metrics) RunDone(pipeline, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(pipeline, status).Inc()
}

func (m *Metrics) Started() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) Finished() {
	if m != nil {
		m.inFlight.Dec()
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
