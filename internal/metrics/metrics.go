// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by the counters below.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Generation metrics
	IncGeneration(status string) // success, rejected (quota), failed (upstream)
	ObserveGenerationDuration(duration time.Duration)
	AddCreditsDebited(n int64)

	// Billing metrics
	IncOrderCreated(status string)
	IncPaymentVerified(status string) // success, rejected (signature/order), failed

	// Auth metrics
	IncAuthFailure()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
