// Package web provides an HTTP status server for the apm-stick daemon.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/apm-stick/internal/status"
)

// Server serves the status page, the reset endpoint and the live stream.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	resets     chan<- struct{}
	hub        *Hub
}

// New creates a Server that reads state from the given tracker. POST /reset
// sends on resets without blocking; a nil channel disables resets.
func New(addr string, tracker *status.Tracker, resets chan<- struct{}) *Server {
	s := &Server{
		tracker: tracker,
		resets:  resets,
		hub:     NewHub(slog.Default(), HubConfig{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Hub returns the live stream hub. Its Run loop must be started by the caller.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Broadcast sends snap to every live stream client.
func (s *Server) Broadcast(snap status.Snapshot) {
	s.hub.BroadcastBytes(apmFrame(snap))
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		slog.Warn("web: render index", "err", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.resets == nil {
		http.Error(w, "reset not available", http.StatusServiceUnavailable)
		return
	}

	select {
	case s.resets <- struct{}{}:
	default:
		// A reset is already pending.
	}
	slog.Info("web: reset requested", "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"reset": "requested"})
}
