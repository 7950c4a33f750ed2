package readapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"combgraph/internal/graph"
	"combgraph/internal/registry"
	"combgraph/internal/testutil"
)

type fakeConn struct {
	queryResult []byte
	queryErr    error
}

func (f *fakeConn) Query(ctx context.Context, query string, vars map[string]string) ([]byte, error) {
	return f.queryResult, f.queryErr
}
func (f *fakeConn) Mutate(ctx context.Context, mutations []graph.Mutation) (map[string]string, error) {
	return nil, nil
}
func (f *fakeConn) ApplySchema(ctx context.Context, schema string) error { return nil }
func (f *fakeConn) Close() error                                        { return nil }

func newTestRegistry(t *testing.T) (*registry.Registry, *fakeConn) {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	t.Cleanup(func() { _ = sb.Cleanup() })

	fc := &fakeConn{queryResult: []byte(`{"balance":42}`)}
	dialer := func(prefix string) (*graph.Client, error) {
		return graph.New(prefix, fc, nil), nil
	}
	reg := registry.New(sb.Path("data"), "", dialer, nil)
	if _, err := reg.Register("acme_", registry.Config{
		Name:        "Acme",
		Description: "acme chain",
		Tokens:      []registry.TokenDescriptor{{Symbol: "ACM", Name: "Acme Token"}},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg, fc
}

func TestQueryForwardsToGraphClient(t *testing.T) {
	reg, _ := newTestRegistry(t)
	r := NewRouter(reg, nil, nil)

	body, _ := json.Marshal(queryRequest{Query: "balances.alice", Vars: map[string]string{"k": "v"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/acme_/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"balance":42}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestQueryUnknownNetworkReturns404(t *testing.T) {
	reg, _ := newTestRegistry(t)
	r := NewRouter(reg, nil, nil)

	body, _ := json.Marshal(queryRequest{Query: "balances.alice"})
	req := httptest.NewRequest(http.MethodPost, "/v1/nope_/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestQueryEmptyBodyReturns400(t *testing.T) {
	reg, _ := newTestRegistry(t)
	r := NewRouter(reg, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/acme_/query", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListNetworksReturnsRegisteredNetworks(t *testing.T) {
	reg, _ := newTestRegistry(t)
	r := NewRouter(reg, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/networks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out []networkSummary
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].Prefix != "acme_" {
		t.Fatalf("unexpected networks: %+v", out)
	}
}

func TestHealthzReturnsOK(t *testing.T) {
	reg, _ := newTestRegistry(t)
	r := NewRouter(reg, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
