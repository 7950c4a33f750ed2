package ingest

import (
	"testing"
	"time"
)

func TestForkLifecycleOpenCloseConfirm(t *testing.T) {
	tr := NewTracker(10, nil)
	now := time.Now()
	f := tr.GetOrCreate("H1", 100, now)
	if f.State != ForkOpen {
		t.Fatalf("expected new fork OPEN, got %s", f.State)
	}

	if err := tr.Append("H1", Operation{Type: OpPut, BlockNum: 100, Index: 1}, now); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := tr.Append("H1", Operation{Type: OpWriteMarker, BlockNum: 100, Index: 2}, now); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := tr.Close("H1"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	f, _ = tr.Get("H1")
	if f.State != ForkClosed {
		t.Fatalf("expected CLOSED, got %s", f.State)
	}
	if err := tr.Append("H1", Operation{Type: OpPut, BlockNum: 101}, now); err == nil {
		t.Fatal("expected append to a closed fork to fail")
	}

	if err := tr.Confirm("H1"); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	f, _ = tr.Get("H1")
	if f.State != ForkConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", f.State)
	}
}

func TestForkBufferCapEvictsOldestAndDisablesMarker(t *testing.T) {
	tr := NewTracker(2, nil)
	now := time.Now()
	tr.GetOrCreate("H1", 100, now)

	tr.Append("H1", Operation{Type: OpWriteMarker, BlockNum: 99, Index: 1}, now)
	tr.Append("H1", Operation{Type: OpPut, BlockNum: 100, Index: 2}, now)

	f, _ := tr.Get("H1")
	if f.LastWriteMarker() == nil {
		t.Fatal("expected last write marker to be set")
	}

	// Third append at cap 2 evicts index 1 (the write marker).
	if err := tr.Append("H1", Operation{Type: OpPut, BlockNum: 100, Index: 3}, now); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	f, _ = tr.Get("H1")
	if len(f.Buffer()) != 2 {
		t.Fatalf("expected buffer capped at 2, got %d", len(f.Buffer()))
	}
	if f.LastWriteMarker() != nil {
		t.Fatal("expected eviction of the write marker to clear LastWriteMarker")
	}
}

func TestOrphanDropsBuffer(t *testing.T) {
	tr := NewTracker(10, nil)
	now := time.Now()
	tr.GetOrCreate("H1", 100, now)
	tr.Append("H1", Operation{Type: OpPut, BlockNum: 100}, now)

	if err := tr.Orphan("H1"); err != nil {
		t.Fatalf("Orphan failed: %v", err)
	}
	f, _ := tr.Get("H1")
	if f.State != ForkOrphaned {
		t.Fatalf("expected ORPHANED, got %s", f.State)
	}
	if len(f.Buffer()) != 0 {
		t.Fatal("expected buffer to be dropped on orphan")
	}
}

func TestCleanupEvictsStaleForks(t *testing.T) {
	tr := NewTracker(10, nil)
	old := time.Now().Add(-2 * time.Hour)
	tr.GetOrCreate("H1", 100, old)

	evicted := tr.Cleanup(time.Hour, time.Now())
	if len(evicted) != 1 || evicted[0] != "H1" {
		t.Fatalf("expected H1 evicted, got %v", evicted)
	}
	if _, ok := tr.Get("H1"); ok {
		t.Fatal("expected H1 to be removed from the tracker")
	}
}

func TestCleanupNeverEvictsPending(t *testing.T) {
	tr := NewTracker(10, nil)
	old := time.Now().Add(-2 * time.Hour)
	tr.GetOrCreate(PendingForkHash, 0, old)

	evicted := tr.Cleanup(time.Hour, time.Now())
	if len(evicted) != 0 {
		t.Fatalf("expected pending fork to survive cleanup, evicted=%v", evicted)
	}
}

func TestAtHeightFindsSiblings(t *testing.T) {
	tr := NewTracker(10, nil)
	now := time.Now()
	tr.GetOrCreate("H1a", 100, now)
	tr.GetOrCreate("H1b", 100, now)
	tr.GetOrCreate("H2", 105, now)

	siblings := tr.AtHeight(101)
	if len(siblings) != 2 {
		t.Fatalf("expected 2 siblings at height 101, got %d", len(siblings))
	}
}
