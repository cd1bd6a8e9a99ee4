package main

import (
	"encoding/json"
	"net/http"

	"github.com/daniacca/tissuesim/internal/logging"
	"github.com/daniacca/tissuesim/internal/sim"
	"github.com/daniacca/tissuesim/internal/sim/notifiers"
)

// Server exposes a running simulation over HTTP.
type Server struct {
	sim    *sim.Simulation
	ws     *notifiers.WebSocketNotifier
	logger logging.Logger
}

// NewServer serves s. ws may be nil, which disables /ws.
func NewServer(s *sim.Simulation, ws *notifiers.WebSocketNotifier, logger logging.Logger) *Server {
	return &Server{sim: s, ws: ws, logger: logging.OrNoOp(logger)}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	if s.ws != nil {
		mux.Handle("/ws", s.ws)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.sim.Snapshot()); err != nil {
		s.logger.Errorf("encode snapshot: %v", err)
	}
}
