package memstat

import (
	"runtime"
	"testing"
)

func TestHeadroomWithTinyLimit(t *testing.T) {
	// The runtime always holds more than one byte, so headroom must be zero.
	h, err := Headroom(1)
	if err != nil {
		t.Fatalf("Headroom(1) error = %v", err)
	}
	if h != 0 {
		t.Errorf("Headroom(1) = %d, want 0", h)
	}
}

func TestHeadroomWithLargeLimit(t *testing.T) {
	h, err := Headroom(1 << 62)
	if err != nil {
		t.Fatalf("Headroom() error = %v", err)
	}
	if h == 0 {
		t.Error("expected positive headroom under a huge limit")
	}
}

func TestHeadroomUnbounded(t *testing.T) {
	_, err := Headroom(0)
	if runtime.GOOS == "linux" && err != nil {
		t.Errorf("Headroom(0) on linux error = %v", err)
	}
}
