package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncGeneration(string) {}
func (n *NoopRecorder) ObserveGenerationDuration(time.Duration) {}
func (n *NoopRecorder) AddCreditsDebited(int64) {}
func (n *NoopRecorder) IncOrderCreated(string) {}
func (n *NoopRecorder) IncPaymentVerified(string) {}
func (n *NoopRecorder) IncAuthFailure() {}
