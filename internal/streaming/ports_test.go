package streaming

import "testing"

func TestNewSSRCFitsSignedOptionRange(t *testing.T) {
	// ffmpeg's -ssrc option is a signed 32-bit int; values above its max
	// abort output open, so every draw must stay in the low 24 bits.
	for i := 0; i < 1000; i++ {
		if ssrc := newSSRC(); ssrc > 0x00FFFFFF {
			t.Fatalf("ssrc = %d, exceeds 24-bit range", ssrc)
		}
	}
}

func TestAllocateUDPPortsDistinct(t *testing.T) {
	ports, err := allocateUDPPorts(4, defaultPortTimeout)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int]bool)
	for _, p := range ports {
		if p <= 0 || p > 65535 {
			t.Errorf("port %d out of range", p)
		}
		if seen[p] {
			t.Errorf("port %d allocated twice", p)
		}
		seen[p] = true
	}
}
