package transform

import "testing"

func TestUpsertMergesRepeatedIdentity(t *testing.T) {
	acc := NewAccumulator()
	id1 := acc.Upsert("Account", "alice", nil)
	id2 := acc.Upsert("Account", "alice", nil)
	if id1 != id2 {
		t.Fatalf("expected repeated identity to resolve to the same temp id, got %s and %s", id1, id2)
	}

	acc.Upsert("Account", "alice", map[string]any{"balance": int64(5)})
	muts, _ := acc.Drain()
	if len(muts) != 1 {
		t.Fatalf("expected 1 merged mutation, got %d", len(muts))
	}
	if muts[0]["balance"] != int64(5) {
		t.Fatalf("expected merged balance field, got %v", muts[0]["balance"])
	}
}

func TestUpsertDistinctIdentitiesGetDistinctIDs(t *testing.T) {
	acc := NewAccumulator()
	id1 := acc.Upsert("Account", "alice", nil)
	id2 := acc.Upsert("Account", "bob", nil)
	if id1 == id2 {
		t.Fatal("expected distinct identities to get distinct temp ids")
	}
}

func TestDrainEmptiesAccumulator(t *testing.T) {
	acc := NewAccumulator()
	acc.Upsert("Account", "alice", nil)
	muts, _ := acc.Drain()
	if len(muts) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(muts))
	}
	muts2, _ := acc.Drain()
	if len(muts2) != 0 {
		t.Fatalf("expected accumulator to be empty after Drain, got %d", len(muts2))
	}
}

func TestRecordPathFileFeedsStatsAndItemCount(t *testing.T) {
	acc := NewAccumulator()
	acc.Upsert("Path", "docs", map[string]any{"fullPath": "docs"})
	acc.RecordPathFile("docs")
	acc.RecordPathFile("docs")
	acc.Upsert("Path", "photos", map[string]any{"fullPath": "photos"})
	acc.RecordPathFile("photos")

	muts, stats := acc.Drain()
	if stats.TotalPaths != 2 {
		t.Fatalf("expected 2 paths, got %d", stats.TotalPaths)
	}
	if stats.TotalFiles != 3 {
		t.Fatalf("expected 3 files, got %d", stats.TotalFiles)
	}
	if stats.PathsWithMultipleFiles != 1 {
		t.Fatalf("expected 1 path with multiple files, got %d", stats.PathsWithMultipleFiles)
	}
	if stats.LargestPath != "docs" || stats.LargestPathFileCount != 2 {
		t.Fatalf("expected docs to be the largest path with 2 files, got %s/%d", stats.LargestPath, stats.LargestPathFileCount)
	}

	var docsItemCount any
	for _, m := range muts {
		if m["fullPath"] == "docs" {
			docsItemCount = m["itemCount"]
		}
	}
	if docsItemCount != 2 {
		t.Fatalf("expected docs Path mutation to carry itemCount=2, got %v", docsItemCount)
	}
}

func TestUpsertMaxUint64KeepsLargerValue(t *testing.T) {
	acc := NewAccumulator()
	acc.UpsertMaxUint64("ContractFile", "c1\x00cid1", "membershipBlockNum", 100, nil)
	acc.UpsertMaxUint64("ContractFile", "c1\x00cid1", "membershipBlockNum", 50, nil)

	muts, _ := acc.Drain()
	if len(muts) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(muts))
	}
	if muts[0]["membershipBlockNum"] != uint64(100) {
		t.Fatalf("expected membershipBlockNum to stay at the larger value 100, got %v", muts[0]["membershipBlockNum"])
	}
}
