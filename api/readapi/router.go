// Package readapi is the boundary HTTP surface over the materialized
// graph: a thin chi router that forwards queries to a network's
// graph.Client and otherwise knows nothing about ingest, forks, or
// recovery.
package readapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"combgraph/internal/registry"
)

// NewRouter builds the read API's chi.Mux. metricsHandler may be nil,
// in which case /metrics is omitted.
func NewRouter(reg *registry.Registry, log *logrus.Logger, metricsHandler http.Handler) *chi.Mux {
	if log == nil {
		log = logrus.New()
	}
	r := chi.NewRouter()
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	h := &handlers{reg: reg, log: log}

	r.Get("/healthz", h.health)
	r.Post("/v1/{network}/query", h.query)
	r.Get("/v1/networks", h.listNetworks)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	return r
}

// NewPrometheusHandler is a convenience wrapper so callers don't need to
// import promhttp directly just to wire NewRouter's last argument.
func NewPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
		})
	}
}

type handlers struct {
	reg *registry.Registry
	log *logrus.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type queryRequest struct {
	Query string            `json:"query"`
	Vars  map[string]string `json:"vars,omitempty"`
}

type queryErrorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	client, ok := h.reg.Client(network)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown network %q", network)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: %v", err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	result, err := client.Query(r.Context(), req.Query, req.Vars)
	if err != nil {
		h.log.WithFields(logrus.Fields{"network": network}).Warnf("query failed: %v", err)
		writeError(w, http.StatusBadGateway, "graph store query failed: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

type networkSummary struct {
	Prefix      string `json:"prefix"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *handlers) listNetworks(w http.ResponseWriter, r *http.Request) {
	networks := h.reg.All()
	out := make([]networkSummary, 0, len(networks))
	for _, n := range networks {
		out = append(out, networkSummary{Prefix: n.Prefix, Name: n.Name, Description: n.Description})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(queryErrorResponse{Error: fmt.Sprintf(format, args...)})
}
