package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Generations               map[string]uint64 `json:"generations"`
	GenerationDurationCount   uint64            `json:"generation_duration_count"`
	GenerationDurationTotalNs int64             `json:"generation_duration_total_ns"`
	CreditsDebited            int64             `json:"credits_debited"`
	OrdersCreated             map[string]uint64 `json:"orders_created"`
	PaymentsVerified          map[string]uint64 `json:"payments_verified"`
	AuthFailures              uint64            `json:"auth_failures"`
}

// InMemoryRecorder stores metrics in memory. Safe for concurrent use.
type InMemoryRecorder struct {
	generationDurationCount   uint64
	generationDurationTotalNs int64
	creditsDebited            int64
	authFailures              uint64

	mu               sync.Mutex
	generations      map[string]uint64
	ordersCreated    map[string]uint64
	paymentsVerified map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		generations:      make(map[string]uint64),
		ordersCreated:    make(map[string]uint64),
		paymentsVerified: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Generations:               copyCounts(m.generations),
		GenerationDurationCount:   atomic.LoadUint64(&m.generationDurationCount),
		GenerationDurationTotalNs: atomic.LoadInt64(&m.generationDurationTotalNs),
		CreditsDebited:            atomic.LoadInt64(&m.creditsDebited),
		OrdersCreated:             copyCounts(m.ordersCreated),
		PaymentsVerified:          copyCounts(m.paymentsVerified),
		AuthFailures:              atomic.LoadUint64(&m.authFailures),
	}
}

// IncGeneration counts a generation attempt by outcome.
func (m *InMemoryRecorder) IncGeneration(status string) {
	m.inc(m.generations, status)
}

// ObserveGenerationDuration records upstream generation latency.
func (m *InMemoryRecorder) ObserveGenerationDuration(duration time.Duration) {
	atomic.AddUint64(&m.generationDurationCount, 1)
	atomic.AddInt64(&m.generationDurationTotalNs, duration.Nanoseconds())
}

// AddCreditsDebited accumulates debited credits.
func (m *InMemoryRecorder) AddCreditsDebited(n int64) {
	atomic.AddInt64(&m.creditsDebited, n)
}

// IncOrderCreated counts order creation by outcome.
func (m *InMemoryRecorder) IncOrderCreated(status string) {
	m.inc(m.ordersCreated, status)
}

// IncPaymentVerified counts payment verification by outcome.
func (m *InMemoryRecorder) IncPaymentVerified(status string) {
	m.inc(m.paymentsVerified, status)
}

// IncAuthFailure counts rejected credentials.
func (m *InMemoryRecorder) IncAuthFailure() {
	atomic.AddUint64(&m.authFailures, 1)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, status string) {
	m.mu.Lock()
	counts[status]++
	m.mu.Unlock()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
