package snapshot

import (
	"context"
	"testing"

	"combgraph/internal/testutil"
)

func TestFileFacilitySnapshotThenRollback(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Cleanup()

	f, err := NewFileFacility(sb.Root)
	if err != nil {
		t.Fatalf("NewFileFacility failed: %v", err)
	}

	name := NameFor("spkccT_", 100)
	if err := f.Snapshot(context.Background(), name); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if err := f.Rollback(context.Background(), name); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
}

func TestFileFacilityRollbackWithoutSnapshotFails(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Cleanup()

	f, err := NewFileFacility(sb.Root)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Rollback(context.Background(), NameFor("spkccT_", 999)); err == nil {
		t.Fatal("expected error rolling back to a snapshot that was never taken")
	}
}

func TestFileFacilityDestroyRemovesOnlyMatchingPrefix(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Cleanup()

	f, err := NewFileFacility(sb.Root)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Snapshot(context.Background(), NameFor("spkccT_", 100)); err != nil {
		t.Fatal(err)
	}
	if err := f.Snapshot(context.Background(), NameFor("dlux_", 100)); err != nil {
		t.Fatal(err)
	}
	if err := f.Destroy(context.Background(), "spkccT_"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if err := f.Rollback(context.Background(), NameFor("dlux_", 100)); err != nil {
		t.Fatal("expected dlux_ snapshot to survive spkccT_'s destroy")
	}
	if err := f.Rollback(context.Background(), NameFor("spkccT_", 100)); err == nil {
		t.Fatal("expected spkccT_ snapshot to be gone")
	}
}
