package ingest

import (
	"errors"
	"testing"
	"time"
)

func TestCheckpointMapAcceptEqualOrAbsent(t *testing.T) {
	cm := NewCheckpointMap()

	existing, ok := cm.Accept(100, "H1")
	if !ok || existing != "H1" {
		t.Fatalf("expected first accept to succeed with H1, got %q ok=%v", existing, ok)
	}

	existing, ok = cm.Accept(100, "H1")
	if !ok || existing != "H1" {
		t.Fatalf("expected re-accepting the same hash to succeed, got %q ok=%v", existing, ok)
	}

	existing, ok = cm.Accept(100, "H2")
	if ok || existing != "H1" {
		t.Fatalf("expected conflicting accept to fail and return H1, got %q ok=%v", existing, ok)
	}
}

func TestCheckpointMapLatestConfirmedBelow(t *testing.T) {
	cm := NewCheckpointMap()
	cm.Accept(100, "H1")
	cm.Accept(200, "H2")

	h, ok := cm.LatestConfirmedBelow(250)
	if !ok || h != 200 {
		t.Fatalf("expected 200, got %d ok=%v", h, ok)
	}

	h, ok = cm.LatestConfirmedBelow(150)
	if !ok || h != 100 {
		t.Fatalf("expected 100, got %d ok=%v", h, ok)
	}

	_, ok = cm.LatestConfirmedBelow(50)
	if ok {
		t.Fatal("expected no confirmed checkpoint below 50")
	}
}

func TestCheckpointMapForget(t *testing.T) {
	cm := NewCheckpointMap()
	cm.Accept(100, "H1")
	cm.Accept(200, "H2")
	cm.Accept(300, "H3")

	cm.Forget(200)

	if _, ok := cm.Get(100); !ok {
		t.Fatal("expected 100 to survive Forget(200)")
	}
	if _, ok := cm.Get(200); ok {
		t.Fatal("expected 200 to be forgotten")
	}
	if _, ok := cm.Get(300); ok {
		t.Fatal("expected 300 to be forgotten")
	}
}

func TestValidatorAcceptsWellFormedBoundary(t *testing.T) {
	tr := NewTracker(10, nil)
	now := time.Now()
	tr.GetOrCreate("H1", 99, now)
	tr.Append("H1", Operation{Type: OpPut, BlockNum: 99, Index: 1}, now)
	tr.Append("H1", Operation{Type: OpWriteMarker, BlockNum: 99, Index: 2}, now)

	if err := tr.ValidateCheckpoint(Validator{}, "H1", 100); err != nil {
		t.Fatalf("expected well-formed boundary to validate, got %v", err)
	}
}

func TestValidatorRejectsEmptyBuffer(t *testing.T) {
	tr := NewTracker(10, nil)
	tr.GetOrCreate("H1", 99, time.Now())

	err := tr.ValidateCheckpoint(Validator{}, "H1", 100)
	if !errors.Is(err, ErrInvalidBoundary) {
		t.Fatalf("expected ErrInvalidBoundary, got %v", err)
	}
}

func TestValidatorRejectsMissingTerminalMarker(t *testing.T) {
	tr := NewTracker(10, nil)
	now := time.Now()
	tr.GetOrCreate("H1", 99, now)
	tr.Append("H1", Operation{Type: OpPut, BlockNum: 99, Index: 1}, now)

	err := tr.ValidateCheckpoint(Validator{}, "H1", 100)
	if !errors.Is(err, ErrInvalidBoundary) {
		t.Fatalf("expected ErrInvalidBoundary, got %v", err)
	}
}

func TestValidatorRejectsOperationAtOrBeyondHeight(t *testing.T) {
	tr := NewTracker(10, nil)
	now := time.Now()
	tr.GetOrCreate("H1", 99, now)
	tr.Append("H1", Operation{Type: OpPut, BlockNum: 100, Index: 1}, now)
	tr.Append("H1", Operation{Type: OpWriteMarker, BlockNum: 99, Index: 2}, now)

	err := tr.ValidateCheckpoint(Validator{}, "H1", 100)
	if !errors.Is(err, ErrInvalidBoundary) {
		t.Fatalf("expected ErrInvalidBoundary, got %v", err)
	}
}

func TestValidateCheckpointUnknownFork(t *testing.T) {
	tr := NewTracker(10, nil)
	err := tr.ValidateCheckpoint(Validator{}, "missing", 100)
	if !errors.Is(err, ErrForkNotFound) {
		t.Fatalf("expected ErrForkNotFound, got %v", err)
	}
}
