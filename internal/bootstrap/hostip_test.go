package bootstrap

import (
	"errors"
	"testing"
	"time"
)

func TestDetectHostIP_Loopback(t *testing.T) {
	ip, err := DetectHostIP("127.0.0.1:1", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip != "127.0.0.1" {
		t.Errorf("expected 127.0.0.1, got %q", ip)
	}
}

func TestDetectHostIP_BadProbe(t *testing.T) {
	_, err := DetectHostIP("not an address", time.Second)
	if !errors.Is(err, ErrHostIPUnknown) {
		t.Errorf("expected ErrHostIPUnknown, got %v", err)
	}
}
