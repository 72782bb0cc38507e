// internal/server/server.go

// Package server exposes the research pipeline over HTTP. External
// collaborators push their reports in through the same surface the UI
// reads results from.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opportunity-research/internal/common/config"
	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/models"
	"opportunity-research/internal/pipeline"
	"opportunity-research/internal/store"
)

// HistorySearcher is the read side of the assessment history index.
type HistorySearcher interface {
	SearchAssessments(ctx context.Context, text string, size int) ([]store.HistoryDocument, error)
}

// Server routes research requests to the pipeline and the session store.
type Server struct {
	pipeline *pipeline.Pipeline
	store    store.SessionStore
	history  HistorySearcher
	logger   logger.Logger
}

func New(p *pipeline.Pipeline, sessionStore store.SessionStore, history HistorySearcher, log logger.Logger) *Server {
	return &Server{
		pipeline: p,
		store:    sessionStore,
		history:  history,
		logger: log.With(map[string]interface{}{
			"component": "http-server",
		}),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/research/init", s.handleInit)
	mux.HandleFunc("POST /api/research/{id}/sourcing", s.handleSourcing)
	mux.HandleFunc("PUT /api/research/{id}/reports/{type}", s.handleSaveReport)
	mux.HandleFunc("POST /api/research/{id}/opportunity", s.handleOpportunity)
	mux.HandleFunc("GET /api/research/{id}/assessment", s.handleGetAssessment)
	mux.HandleFunc("GET /api/research/{id}/data", s.handleGetAllData)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// NewHTTPServer wraps the route table in a configured http.Server.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if query.RawQuery == "" {
		s.writeError(w, http.StatusBadRequest, "raw_query is required", nil)
		return
	}

	metadata, err := s.pipeline.InitSession(r.Context(), query)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, metadata)
}

func (s *Server) handleSourcing(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.RunSourcing(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// collaboratorReports names the data types external collaborators are
// allowed to push. The core's own artifacts are not writable from
// outside.
var collaboratorReports = map[store.DataType]bool{
	store.DataTypeTrends:     true,
	store.DataTypeRegulation: true,
	store.DataTypeImpositive: true,
	store.DataTypeMarket:     true,
}

func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	dataType := store.DataType(r.PathValue("type"))
	if !collaboratorReports[dataType] {
		s.writeError(w, http.StatusBadRequest, "unknown report type", nil)
		return
	}

	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.store.SaveSessionData(r.Context(), r.PathValue("id"), dataType, payload); err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleOpportunity(w http.ResponseWriter, r *http.Request) {
	report, err := s.pipeline.ScoreSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, err := s.store.GetAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleGetAllData(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.GetAllSessionData(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history index not configured", nil)
		return
	}

	docs, err := s.history.SearchAssessments(r.Context(), r.URL.Query().Get("q"), 20)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "history search failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": docs})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// writeAppError maps internal error codes onto HTTP statuses.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeCompletionRateLimited, apperrors.ErrCodeCompletionOverloaded, apperrors.ErrCodeCompletionUnavailable:
		status = http.StatusServiceUnavailable
	case apperrors.ErrCodeCompletionFailed, apperrors.ErrCodeCompletionMalformedOutput, apperrors.ErrCodeSchemaValidationFailed, apperrors.ErrCodeMetadataExtractionFailed, apperrors.ErrCodePriceSynthesisFailed:
		status = http.StatusBadGateway
	}

	s.logger.Error("request failed", map[string]interface{}{
		"status": status,
		"error":  err.Error(),
	})

	body := map[string]interface{}{"error": err.Error()}
	if code := apperrors.CodeOf(err); code != "" {
		body["code"] = string(code)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		s.logger.Warn(message, map[string]interface{}{"error": err.Error()})
	}
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Error("response encoding failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
