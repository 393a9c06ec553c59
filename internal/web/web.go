// Package web exposes the vault over a JSON HTTP API: search, stats,
// document access, and indexing control. Handlers are thin - they parse
// the request and delegate to the store and orchestrator.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yonie/localpdfvault/internal/domain"
	"github.com/yonie/localpdfvault/internal/indexer"
	"github.com/yonie/localpdfvault/internal/store"
)

// ollamaStatusTimeout bounds the status probe so the endpoint stays
// snappy even when the server is down.
const ollamaStatusTimeout = 2 * time.Second

// OllamaInfo is what the status endpoints need to know about the
// extraction service.
type OllamaInfo interface {
	// Host returns the Ollama base URL.
	Host() string

	// Model returns the configured vision model name.
	Model() string

	// Models lists the models available on the server.
	Models(ctx context.Context) ([]string, error)
}

// Server wires the HTTP surface to the store and orchestrator.
type Server struct {
	store  *store.Store
	orch   *indexer.Orchestrator
	ollama OllamaInfo
	logger *slog.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(st *store.Store, orch *indexer.Orchestrator, ollama OllamaInfo, logger *slog.Logger) *Server {
	return &Server{store: st, orch: orch, ollama: ollama, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/pdf/{fingerprint}", s.handleServePDF)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/ollama/status", s.handleOllamaStatus)
	mux.HandleFunc("DELETE /api/delete/{fingerprint}", s.handleDelete)
	mux.HandleFunc("DELETE /api/clear", s.handleClear)
	mux.HandleFunc("POST /api/index", s.handleIndexStart)
	mux.HandleFunc("GET /api/index/status", s.handleIndexStatus)
	mux.HandleFunc("POST /api/index/stop", s.handleIndexStop)
	mux.HandleFunc("POST /api/reindex/{fingerprint}", s.handleReindex)

	return mux
}

// handleSearch serves ranked results for ?q=, or the full collection
// (most recent first) when the query is empty.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if query == "" {
		records, err := s.store.List(0)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		results := make([]domain.SearchResult, len(records))
		for i, rec := range records {
			results[i] = domain.SearchResult{Record: rec}
		}
		s.writeJSON(w, http.StatusOK, results)
		return
	}

	results, err := s.store.Search(query, 0)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleServePDF streams the original file bytes for inline viewing.
func (s *Server) handleServePDF(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.PathValue("fingerprint"))
	if err != nil {
		s.fail(w, http.StatusNotFound, errors.New("PDF not found"))
		return
	}
	if _, err := os.Stat(rec.SourcePath); err != nil {
		s.fail(w, http.StatusNotFound, errors.New("PDF not found on disk"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	http.ServeFile(w, r, rec.SourcePath)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"database_path": s.store.Path(),
		"ollama_url":    s.ollama.Host(),
		"model":         s.ollama.Model(),
	})
}

// handleOllamaStatus probes the extraction service and reports whether
// the configured model is available.
func (s *Server) handleOllamaStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ollamaStatusTimeout)
	defer cancel()

	resp := map[string]any{
		"url":   s.ollama.Host(),
		"model": s.ollama.Model(),
	}

	models, err := s.ollama.Models(ctx)
	if err != nil {
		resp["status"] = "offline"
		resp["error"] = err.Error()
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	available := false
	for _, m := range models {
		if m == s.ollama.Model() {
			available = true
			break
		}
	}
	resp["status"] = "running"
	resp["model_available"] = available
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("fingerprint")); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAll(); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// indexRequest is the POST /api/index body.
type indexRequest struct {
	Path  string `json:"path"`
	Force bool   `json:"force"`
}

func (s *Server) handleIndexStart(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Path == "" {
		s.fail(w, http.StatusBadRequest, errors.New("no path provided"))
		return
	}

	if err := s.orch.Start(req.Path, req.Force); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, indexer.ErrRunActive) {
			status = http.StatusConflict
		}
		s.fail(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.Status()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleIndexStop(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Stop(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, indexer.ErrNoRun) {
			status = http.StatusBadRequest
		}
		s.fail(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "stop signal sent to indexing process",
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	err := s.orch.Reindex(r.PathValue("fingerprint"))
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, indexer.ErrRunActive):
			status = http.StatusConflict
		}
		s.fail(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
