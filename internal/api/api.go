// Package api serves a read-only HTTP view over the snapshot store, so a
// dashboard or a curl can answer "what did the last capture see" without
// shelling into the reports directory.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/glamwatch/internal/config"
	"github.com/hazyhaar/glamwatch/internal/store"
	"github.com/hazyhaar/glamwatch/report"
)

// Server exposes the store over HTTP. It never writes.
type Server struct {
	store  *store.Store
	cats   []config.CategoryConfig
	logger *slog.Logger
}

// New creates a Server.
func New(st *store.Store, cats []config.CategoryConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, cats: cats, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/categories", s.handleCategories)
	r.Get("/categories/{subdir}/latest", s.handleLatest)
	r.Get("/categories/{subdir}/latest/report", s.handleLatestReport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type categoryInfo struct {
	Name   string `json:"name"`
	Depth  string `json:"depth"`
	Subdir string `json:"subdir"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]categoryInfo, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, categoryInfo{Name: c.Name, Depth: c.Depth, Subdir: c.Subdir})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type latestResponse struct {
	Directory string          `json:"directory"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  report.Metadata `json:"metadata"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, latestResponse{
		Directory: filepath.Base(snap.Path),
		Timestamp: snap.Timestamp,
		Metadata:  snap.Meta,
	})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latestSnapshot(w, r)
	if !ok {
		return
	}
	body, err := os.ReadFile(filepath.Join(snap.Path, "changes_summary.txt"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "no comparison report for latest snapshot", http.StatusNotFound)
			return
		}
		s.logger.Error("api: read report", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(body)
}

// latestSnapshot resolves {subdir} to a configured category and loads its
// newest snapshot, writing the error response itself when either is missing.
func (s *Server) latestSnapshot(w http.ResponseWriter, r *http.Request) (*report.Snapshot, bool) {
	subdir := chi.URLParam(r, "subdir")
	if !s.knownCategory(subdir) {
		http.Error(w, "unknown category", http.StatusNotFound)
		return nil, false
	}
	snap, err := s.store.Latest(subdir)
	if err != nil {
		s.logger.Error("api: resolve latest", "subdir", subdir, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if snap == nil {
		http.Error(w, "no snapshots captured yet", http.StatusNotFound)
		return nil, false
	}
	return snap, true
}

func (s *Server) knownCategory(subdir string) bool {
	for _, c := range s.cats {
		if c.Subdir == subdir {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("api: encode response", "error", err)
	}
}
