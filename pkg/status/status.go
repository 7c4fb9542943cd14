// Package status serves live scan progress over HTTP:
//
//	GET /healthz   liveness
//	GET /stats     counters of the current run
//	GET /matches   matches reported so far
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/scan"
)

// Source is the run being observed; *scan.Coordinator implements it.
type Source interface {
	RunID() string
	Stats() scan.StatsSnapshot
	Matches() []scan.Match
}

type statsResponse struct {
	RunID string             `json:"run_id"`
	Stats scan.StatsSnapshot `json:"stats"`
}

type matchesResponse struct {
	RunID   string       `json:"run_id"`
	Count   int          `json:"count"`
	Matches []scan.Match `json:"matches"`
}

// NewHandler returns the status routes for src.
func NewHandler(src Source) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statsResponse{RunID: src.RunID(), Stats: src.Stats()})
	})
	r.Get("/matches", func(w http.ResponseWriter, r *http.Request) {
		ms := src.Matches()
		if ms == nil {
			ms = []scan.Match{}
		}
		writeJSON(w, matchesResponse{RunID: src.RunID(), Count: len(ms), Matches: ms})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Server is a running status endpoint.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *log.Logger
	done   chan struct{}
}

// Start listens on addr and serves in the background. Use ":0" for an
// ephemeral port and [Server.Addr] to find it.
func Start(addr string, src Source, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "listen on %s", addr)
	}
	s := &Server{
		srv: &http.Server{
			Handler:           NewHandler(src),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server stopped", "error", err)
		}
	}()
	logger.Info("status endpoint listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
