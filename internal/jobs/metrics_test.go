package jobmetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestTrackerRecordsOutcomesOnSharedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if err := metrics.Track("ledger_integrity").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failure := errors.New("drift detected")
	if err := metrics.Track("ledger_integrity").End(failure); !errors.Is(err, failure) {
		t.Fatalf("expected tracker to return the job error, got: %v", err)
	}

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		`stockroom_jobs_total{job="ledger_integrity",status="success"} 1`,
		`stockroom_jobs_total{job="ledger_integrity",status="failure"} 1`,
		`stockroom_jobs_failures_total{job="ledger_integrity"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected scrape to contain %q, got: %s", want, body)
		}
	}
}

func TestNilTrackerIsPassthrough(t *testing.T) {
	var metrics *Metrics
	failure := errors.New("boom")
	if err := metrics.Track("anything").End(failure); !errors.Is(err, failure) {
		t.Fatalf("expected passthrough error, got: %v", err)
	}
}
