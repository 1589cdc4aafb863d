// Package metrics exposes Prometheus collectors for the feedback pipeline
// and HTTP surface on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for PipelineRuns.
const (
	OutcomeCreated    = "created"
	OutcomeReinforced = "reinforced"
	OutcomeFailed     = "failed"
)

// Metrics holds the collectors shared by the pipeline, index, and handlers.
//
// Exposed series:
//   - feedback_pipeline_runs_total{outcome}
//   - feedback_pipeline_step_duration_seconds{step}
//   - feedback_pipeline_step_retries_total{step}
//   - feedback_extraction_failures_total
//   - feedback_index_failopen_total{operation}
//   - feedback_http_request_duration_seconds{route,status}
type Metrics struct {
	registry *prometheus.Registry

	PipelineRuns       *prometheus.CounterVec
	StepDuration       *prometheus.HistogramVec
	StepRetries        *prometheus.CounterVec
	ExtractionFailures prometheus.Counter
	IndexFailOpen      *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates a Metrics set registered on its own registry, alongside the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_pipeline_runs_total",
				Help: "Pipeline runs by terminal outcome",
			},
			[]string{"outcome"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedback_pipeline_step_duration_seconds",
				Help:    "Duration of individual pipeline steps in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"step"},
		),
		StepRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_pipeline_step_retries_total",
				Help: "Retried pipeline step attempts",
			},
			[]string{"step"},
		),
		ExtractionFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feedback_extraction_failures_total",
				Help: "Model responses that did not parse as an extracted claim",
			},
		),
		IndexFailOpen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_index_failopen_total",
				Help: "Similarity index failures treated as empty results",
			},
			[]string{"operation"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prometheus.BuildFQName("feedback", "http", "request_duration_seconds"),
				Help:    "HTTP request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStep records the duration of a completed step attempt.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// Instrument wraps h so each request records its latency under the route
// pattern, which keeps label cardinality bounded.
func (m *Metrics) Instrument(pattern string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		m.HTTPDuration.
			WithLabelValues(pattern, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
