// Package health exposes the HTTP liveness endpoint.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Probe reports the liveness of the chat connection.
type Probe interface {
	// Healthy reports whether the gateway connection is up.
	Healthy() bool
	// Latency is the most recent gateway heartbeat round trip.
	Latency() time.Duration
}

type status struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms"`
}

// Server serves GET /health.
type Server struct {
	probe Probe
	srv   *http.Server
}

// NewServer creates a health server listening on the given port.
func NewServer(port int, probe Probe) *Server {
	s := &Server{probe: probe}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[health] listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st := status{Status: "unhealthy"}
	if s.probe != nil && s.probe.Healthy() {
		st.Status = "healthy"
		st.LatencyMS = float64(s.probe.Latency()) / float64(time.Millisecond)
	}

	w.Header().Set("Content-Type", "application/json")
	if st.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(st); err != nil {
		log.Printf("[health] failed to write response: %v", err)
	}
}
