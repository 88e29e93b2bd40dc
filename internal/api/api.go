// Package api exposes operational endpoints over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbarki/trendpilot/internal/health"
	"github.com/mbarki/trendpilot/internal/models"
)

// DefaultErrorsLimit caps how many error records /errors returns by default.
const DefaultErrorsLimit = 20

// Server serves health and diagnostics endpoints.
type Server struct {
	monitor  *health.Monitor
	recorder *health.Recorder
	router   chi.Router
}

// NewServer creates the HTTP server around the given monitor and recorder.
func NewServer(monitor *health.Monitor, recorder *health.Recorder) *Server {
	s := &Server{monitor: monitor, recorder: recorder}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/errors", s.handleErrors)
	s.router = r

	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server on addr until it fails.
func (s *Server) ListenAndServe(addr string) error {
	slog.Info("API server listening", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	limit := DefaultErrorsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records := s.recorder.Recent(limit)
	if records == nil {
		records = []models.ErrorRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(records),
		"errors": records,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
