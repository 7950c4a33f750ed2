package transform

import (
	"encoding/json"
	"testing"

	"combgraph/internal/ingest"
)

func contractOp(t *testing.T, cv ContractValue) ingest.OperationMsg {
	t.Helper()
	data, err := json.Marshal(cv)
	if err != nil {
		t.Fatalf("marshal contract value: %v", err)
	}
	return ingest.OperationMsg{
		Type:     ingest.OpPut,
		Path:     []string{"contracts", cv.ContractID},
		BlockNum: 100,
		Data:     data,
	}
}

func TestTransformContractUpsertsAccountsAndContract(t *testing.T) {
	tr := New(nil)
	acc := NewAccumulator()

	cv := ContractValue{
		ContractID:     "c1",
		Purchaser:      "alice",
		StorageAccount: "node1",
		DataSize:       1024,
		Df:             map[string]int64{"cidA": 10},
		Metadata:       "1||Documents#report.pdf.1.0",
	}
	op := contractOp(t, cv)

	if err := tr.transformContract(acc, op, BlockInfo{BlockNum: 100}); err != nil {
		t.Fatalf("transformContract failed: %v", err)
	}

	muts, _ := acc.Drain()
	var sawAccount, sawContract, sawFile, sawPath bool
	for _, m := range muts {
		switch m["_kind"] {
		case "Account":
			sawAccount = true
		case "Contract":
			sawContract = true
			if m["contractId"] != "c1" {
				t.Fatalf("expected contractId c1, got %v", m["contractId"])
			}
		case "ContractFile":
			sawFile = true
			if m["cid"] != "cidA" {
				t.Fatalf("expected cid cidA, got %v", m["cid"])
			}
		case "Path":
			sawPath = true
			if m["fullPath"] != "Documents" {
				t.Fatalf("expected Path Documents, got %v", m["fullPath"])
			}
			if m["itemCount"] != 1 {
				t.Fatalf("expected itemCount 1, got %v", m["itemCount"])
			}
		}
	}
	if !sawAccount || !sawContract || !sawFile || !sawPath {
		t.Fatalf("expected Account, Contract, ContractFile, and Path mutations; got %d mutations", len(muts))
	}
}

func TestTransformContractSuppressesPathForThumbnails(t *testing.T) {
	tr := New(nil)
	acc := NewAccumulator()

	cv := ContractValue{
		ContractID:     "c2",
		Purchaser:      "bob",
		StorageAccount: "node1",
		Df:             map[string]int64{"cidT": 5},
		Metadata:       "1||Photos#thumb.jpg.1.4",
	}
	op := contractOp(t, cv)
	if err := tr.transformContract(acc, op, BlockInfo{BlockNum: 50}); err != nil {
		t.Fatalf("transformContract failed: %v", err)
	}

	muts, _ := acc.Drain()
	for _, m := range muts {
		if m["_kind"] == "Path" {
			t.Fatal("expected no Path mutation for a thumbnail-only contract")
		}
		if m["_kind"] == "ContractFile" && m["thumbnail"] != true {
			t.Fatalf("expected thumbnail flag set, got %v", m["thumbnail"])
		}
	}
}

func TestTransformContractSharedCIDKeepsNewestBlock(t *testing.T) {
	tr := New(nil)
	acc := NewAccumulator()

	cv1 := ContractValue{ContractID: "c1", Purchaser: "alice", StorageAccount: "node1", Df: map[string]int64{"shared": 1}, Metadata: "1||Docs#f.txt.1.0"}
	cv2 := ContractValue{ContractID: "c2", Purchaser: "alice", StorageAccount: "node1", Df: map[string]int64{"shared": 1}, Metadata: "1||Docs#f.txt.1.0"}

	if err := tr.transformContract(acc, contractOp(t, cv1), BlockInfo{BlockNum: 10}); err != nil {
		t.Fatalf("transformContract c1 failed: %v", err)
	}
	if err := tr.transformContract(acc, contractOp(t, cv2), BlockInfo{BlockNum: 20}); err != nil {
		t.Fatalf("transformContract c2 failed: %v", err)
	}

	muts, _ := acc.Drain()
	fileCount := 0
	for _, m := range muts {
		if m["_kind"] == "ContractFile" {
			fileCount++
			if m["membershipBlockNum"] != uint64(20) {
				t.Fatalf("expected membershipBlockNum updated by the later contract, got %v", m["membershipBlockNum"])
			}
		}
	}
	if fileCount != 2 {
		t.Fatalf("expected 2 distinct ContractFile mutations (not deduplicated across contracts), got %d", fileCount)
	}
}

func TestTransformContractDeleteMarksDeleted(t *testing.T) {
	tr := New(nil)
	acc := NewAccumulator()
	op := ingest.OperationMsg{Type: ingest.OpDel, Path: []string{"contracts", "c1"}, BlockNum: 5}

	if err := tr.transformContract(acc, op, BlockInfo{BlockNum: 5}); err != nil {
		t.Fatalf("transformContract delete failed: %v", err)
	}
	muts, _ := acc.Drain()
	if len(muts) != 1 || muts[0]["deleted"] != true {
		t.Fatalf("expected a single deleted Contract mutation, got %v", muts)
	}
}
