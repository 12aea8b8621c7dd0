package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counts(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncGeneration(StatusSuccess)
			m.AddCreditsDebited(5)
			m.ObserveGenerationDuration(time.Millisecond)
		}()
	}
	wg.Wait()
	m.IncGeneration(StatusRejected)
	m.IncOrderCreated(StatusFailed)
	m.IncPaymentVerified(StatusRejected)
	m.IncAuthFailure()

	s := m.Snapshot()
	if s.Generations[StatusSuccess] != 10 || s.Generations[StatusRejected] != 1 {
		t.Errorf("generations = %v", s.Generations)
	}
	if s.CreditsDebited != 50 || s.GenerationDurationCount != 10 {
		t.Errorf("credits=%d durations=%d", s.CreditsDebited, s.GenerationDurationCount)
	}
	if s.OrdersCreated[StatusFailed] != 1 || s.PaymentsVerified[StatusRejected] != 1 || s.AuthFailures != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}

	s.Generations[StatusSuccess] = 0
	if m.Snapshot().Generations[StatusSuccess] != 10 {
		t.Error("snapshot must be a copy")
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncGeneration(StatusSuccess)
	r.AddCreditsDebited(1)
	r.IncAuthFailure()
}
