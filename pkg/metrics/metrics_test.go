package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

func TestCountersIncrement(t *testing.T) {
	m := metrics.New()

	m.PipelineRuns.WithLabelValues(metrics.OutcomeCreated).Inc()
	m.PipelineRuns.WithLabelValues(metrics.OutcomeReinforced).Add(2)
	m.IndexFailOpen.WithLabelValues("search").Inc()
	m.ExtractionFailures.Inc()

	if got := testutil.ToFloat64(m.PipelineRuns.WithLabelValues(metrics.OutcomeReinforced)); got != 2 {
		t.Errorf("reinforced runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.IndexFailOpen.WithLabelValues("search")); got != 1 {
		t.Errorf("index fail-open = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ExtractionFailures); got != 1 {
		t.Errorf("extraction failures = %v, want 1", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.ExtractionFailures.Inc()

	if got := testutil.ToFloat64(b.ExtractionFailures); got != 0 {
		t.Errorf("second registry saw %v failures, want 0", got)
	}
}

func TestInstrumentAndHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveStep("extract", time.Now())

	h := m.Instrument("POST /api/claims", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/claims", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`feedback_http_request_duration_seconds_count{route="POST /api/claims",status="201"} 1`,
		`feedback_pipeline_step_duration_seconds_count{step="extract"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
