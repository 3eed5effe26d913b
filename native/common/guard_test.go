package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	pauses := NewStaticPauses(" Bounty ", "")
	if !pauses.IsPaused("bounty") {
		t.Fatalf("expected bounty to be paused")
	}
	if err := Guard(pauses, "bounty"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "bank"); err != nil {
		t.Fatalf("unexpected error for unpaused module: %v", err)
	}
	if err := Guard(nil, "bounty"); err != nil {
		t.Fatalf("nil pause view must not block: %v", err)
	}
	if len(pauses) != 1 {
		t.Fatalf("empty module names must be ignored, got %d entries", len(pauses))
	}
}
