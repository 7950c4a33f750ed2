package graph

import "testing"

func TestNamespaceLeavesAccountGlobal(t *testing.T) {
	m := Mutation{"_kind": "Account", "uid": "_:alice", "username": "alice", "balance": 1000}
	out := Namespace("spkccT_", m)
	if out["username"] != "alice" {
		t.Fatalf("expected username untouched, got %v", out["username"])
	}
	if out["uid"] != "_:alice" {
		t.Fatalf("expected uid untouched for global entity, got %v", out["uid"])
	}
}

func TestNamespacePrefixesNonGlobalUID(t *testing.T) {
	m := Mutation{"_kind": "Contract", "uid": "_:c1", "contractId": "c1"}
	out := Namespace("spkccT_", m)
	if out["uid"] != "_:spkccT_c1" {
		t.Fatalf("expected prefixed uid, got %v", out["uid"])
	}
}

func TestNamespaceLeavesRealUIDsUntouched(t *testing.T) {
	m := Mutation{"_kind": "Contract", "uid": "0x123", "contractId": "c1"}
	out := Namespace("spkccT_", m)
	if out["uid"] != "0x123" {
		t.Fatalf("expected real uid untouched, got %v", out["uid"])
	}
}

func TestNamespaceLeavesPathGlobal(t *testing.T) {
	m := Mutation{"_kind": "Path", "uid": "_:path_root_docs", "fullPath": "/docs"}
	out := Namespace("dlux_", m)
	if out["fullPath"] != "/docs" {
		t.Fatalf("expected fullPath untouched, got %v", out["fullPath"])
	}
	if out["uid"] != "_:path_root_docs" {
		t.Fatalf("expected Path uid untouched (global entity), got %v", out["uid"])
	}
}

func TestIsGlobalEntity(t *testing.T) {
	if !IsGlobalEntity("Account") || !IsGlobalEntity("Path") {
		t.Fatal("Account and Path must be global")
	}
	if IsGlobalEntity("Contract") {
		t.Fatal("Contract must not be global")
	}
}
