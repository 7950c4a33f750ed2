package contentstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"combgraph/internal/testutil"
)

func TestFetchHitsGatewayThenCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[{"type":"put","path":["balances","alice"],"data":1000}]`))
	}))
	defer srv.Close()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Cleanup()

	c, err := New(Config{GatewayURL: srv.URL, CacheDir: sb.Root}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hash := "abc123deadbeef"
	b1, err := c.Fetch(context.Background(), hash)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(b1) == 0 {
		t.Fatal("expected non-empty payload")
	}

	b2, err := c.Fetch(context.Background(), hash)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatal("expected identical payload from cache")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly 1 gateway hit, got %d", hits)
	}
}

func TestFetchPropagatesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Cleanup()

	c, err := New(Config{GatewayURL: srv.URL, CacheDir: sb.Root}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Fetch(context.Background(), "somehash"); err == nil {
		t.Fatal("expected error for 404 gateway response")
	}
}

func TestNormalizeHashAcceptsRawHex(t *testing.T) {
	got, err := NormalizeHash("deadbeef")
	if err != nil {
		t.Fatalf("NormalizeHash failed: %v", err)
	}
	if got != "deadbeef" {
		t.Fatalf("expected unchanged hex hash, got %s", got)
	}
}

func TestNormalizeHashRejectsEmpty(t *testing.T) {
	if _, err := NormalizeHash(""); err == nil {
		t.Fatal("expected error for empty hash")
	}
}
