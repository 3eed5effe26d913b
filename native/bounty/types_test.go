package bounty

import (
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	if got := Code(fmt.Errorf("dispatch: %w", ErrWrongSolution)); got != "wrong_solution" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := Code(ErrNoSuchEquation); got != "no_such_equation" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := Code(fmt.Errorf("disk full")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
	if got := Code(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %q", got)
	}
}
