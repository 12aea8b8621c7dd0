package cache

import (
	"testing"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	if hashIP("192.168.1.100") != hashIP("192.168.1.100") {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 localhost", "::1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if hash := hashIP(tt.ip); len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	if hashIP("10.0.0.1") == hashIP("10.0.0.2") {
		t.Error("Different IPs should produce different hashes")
	}
}

func TestUnlimited(t *testing.T) {
	t.Parallel()

	res := unlimited(7)
	if !res.Allowed || res.Remaining != 7 {
		t.Errorf("unlimited(7) = %+v", res)
	}
}

func TestLockToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := lockToken()
	if err != nil {
		t.Fatalf("lockToken failed: %v", err)
	}
	b, _ := lockToken()
	if a == b || len(a) != 32 {
		t.Errorf("lock tokens should be unique 32-char hex: %s %s", a, b)
	}
}
