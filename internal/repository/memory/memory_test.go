package memory

import (
	"testing"

	"github.com/inkwell/inkwell/internal/repository"
	"github.com/inkwell/inkwell/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return New()
	})
}

func TestGenerationCount(t *testing.T) {
	s := New()
	if got := s.GenerationCount("nobody"); got != 0 {
		t.Errorf("GenerationCount() = %d, want 0", got)
	}
}
