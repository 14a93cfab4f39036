// Package server exposes published snapshots over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dicklesworthstone/neurodash/internal/config"
	"github.com/Dicklesworthstone/neurodash/internal/logging"
	"github.com/Dicklesworthstone/neurodash/internal/model"
)

const shutdownTimeout = 5 * time.Second

// Source is the read side of the sampler.
type Source interface {
	Latest() (model.Snapshot, bool)
	Subscribe() (<-chan model.Snapshot, func())
	GPUAvailable() bool
}

type Server struct {
	cfg config.Config
	src Source
	log *slog.Logger
	srv *http.Server
}

func New(cfg config.Config, src Source, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{cfg: cfg, src: src, log: log}
}

// Handler returns the routed endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/full_stats", s.handleFullStats)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", "addr", s.cfg.Addr())
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("stopping http server")
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleFullStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.src.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type configResponse struct {
	IntervalMS       int64   `json:"interval_ms"`
	HistorySize      int     `json:"history_size"`
	WarningThreshold float64 `json:"warning_threshold"`
	DangerThreshold  float64 `json:"danger_threshold"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		IntervalMS:       s.cfg.Interval.Milliseconds(),
		HistorySize:      s.cfg.HistorySize,
		WarningThreshold: s.cfg.WarningThreshold,
		DangerThreshold:  s.cfg.DangerThreshold,
	})
}

type healthResponse struct {
	Status   string     `json:"status"`
	GPU      bool       `json:"gpu"`
	LastPoll *time.Time `json:"last_poll"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", GPU: s.src.GPUAvailable()}
	if snap, ok := s.src.Latest(); ok {
		resp.LastPoll = &snap.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
