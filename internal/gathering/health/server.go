// Package health exposes run progress and prometheus metrics over HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/lexophile/internal/gathering"
)

// ProgressSource reports the current run state.
type ProgressSource interface {
	Progress() gathering.Progress
}

// Report is the /health response body.
type Report struct {
	Status      string `json:"status"`
	Total       int    `json:"total"`
	Done        int    `json:"done"`
	Current     string `json:"current,omitempty"`
	New         int    `json:"new"`
	Reprocessed int    `json:"reprocessed"`
	Skipped     int    `json:"skipped"`
	Errors      int    `json:"errors"`
}

// Server provides HTTP endpoints for run monitoring.
type Server struct {
	source ProgressSource
	server *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(source ProgressSource, addr string) *Server {
	s := &Server{source: source}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	p := s.source.Progress()
	status := "running"
	if p.Finished {
		status = "finished"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Report{
		Status:      status,
		Total:       p.Total,
		Done:        p.Done,
		Current:     p.Current,
		New:         p.Stats.New,
		Reprocessed: p.Stats.Reprocessed,
		Skipped:     p.Stats.Skipped,
		Errors:      p.Stats.Errors,
	})
}
