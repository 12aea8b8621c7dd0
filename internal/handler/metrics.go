package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/inkwell/inkwell/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeled(w, "inkwell_generations_total", snap.Generations)
	writeMetric(w, "inkwell_generation_duration_seconds_count %d\n", snap.GenerationDurationCount)
	writeMetric(w, "inkwell_generation_duration_seconds_sum %.6f\n", float64(snap.GenerationDurationTotalNs)/1e9)
	writeMetric(w, "inkwell_credits_debited_total %d\n", snap.CreditsDebited)

	writeLabeled(w, "inkwell_orders_created_total", snap.OrdersCreated)
	writeLabeled(w, "inkwell_payments_verified_total", snap.PaymentsVerified)

	writeMetric(w, "inkwell_auth_failures_total %d\n", snap.AuthFailures)
}

// writeLabeled writes one line per status label, sorted for stable output.
func writeLabeled(w http.ResponseWriter, name string, counts map[string]uint64) {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		writeMetric(w, "%s{status=%q} %d\n", name, status, counts[status])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
