package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkwell/inkwell/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncGeneration(metrics.StatusSuccess)
	recorder.IncGeneration(metrics.StatusSuccess)
	recorder.IncGeneration(metrics.StatusRejected)
	recorder.ObserveGenerationDuration(1500 * time.Millisecond)
	recorder.AddCreditsDebited(42)
	recorder.IncPaymentVerified(metrics.StatusRejected)
	recorder.IncAuthFailure()

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, line := range []string{
		`inkwell_generations_total{status="rejected"} 1`,
		`inkwell_generations_total{status="success"} 2`,
		`inkwell_generation_duration_seconds_count 1`,
		`inkwell_generation_duration_seconds_sum 1.500000`,
		`inkwell_credits_debited_total 42`,
		`inkwell_payments_verified_total{status="rejected"} 1`,
		`inkwell_auth_failures_total 1`,
	} {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("missing line %q in:\n%s", line, body)
		}
	}

	if strings.Index(body, `status="rejected"} 1`) > strings.Index(body, `status="success"} 2`) {
		t.Error("labels should be sorted")
	}
}

func TestMetricsHandler_Unavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
