package app

import (
	"errors"
	"testing"
)

func TestOperation(t *testing.T) {
	op := NewOperation("Commit", "asset=a1")
	if op.Persisted() {
		t.Error("new operation reports Persisted() = true")
	}
	if op.Status != "success" {
		t.Errorf("Status = %q, want success", op.Status)
	}

	op.Fail(nil)
	if op.Status != "success" {
		t.Errorf("Fail(nil) changed Status to %q", op.Status)
	}
	op.Fail(errors.New("boom"))
	if op.Status != "error" {
		t.Errorf("Status = %q after Fail, want error", op.Status)
	}

	op.ID = 7
	if !op.Persisted() {
		t.Error("Persisted() = false with ID set")
	}
}
