// internal/server/mux.go
// Package server implements the operational HTTP surface of the bot: health
// probes and the Prometheus metrics endpoint. User interaction happens over
// the chat platform, not HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/red-avtovo/r-trans-bot/internal/storage"
)

// Mux serves the operational endpoints.
type Mux struct {
	mux   *http.ServeMux
	store storage.Store
}

// NewMux creates the operational mux: /healthz, /readyz and /metrics.
func NewMux(store storage.Store) *Mux {
	m := &Mux{
		mux:   http.NewServeMux(),
		store: store,
	}
	m.mux.HandleFunc("/healthz", m.handleHealth)
	m.mux.HandleFunc("/readyz", m.handleReady)
	m.mux.Handle("/metrics", promhttp.Handler())
	return m
}

// ServeHTTP implements http.Handler.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// handleHealth reports liveness: the process is up and serving.
func (m *Mux) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the store answers a cheap probe query.
// A missing probe row is still a healthy store.
func (m *Mux) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := m.store.GetUser(ctx, 0); err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
