package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groblegark/warmpath/internal/intro"
	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/path"
	"github.com/groblegark/warmpath/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header. metricsHandler, when
// non-nil, is mounted at GET /metrics.
func (s *Server) NewHTTPHandler(authToken string, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/network/{owner}/nodes", s.handleImportNetwork)
	mux.HandleFunc("GET /v1/network/{owner}/map", s.handleNetworkMap)
	mux.HandleFunc("POST /v1/network/{owner}/connections", s.handleCreateConnection)
	mux.HandleFunc("DELETE /v1/network/{owner}/connections/{id}", s.handleDeactivateConnection)
	mux.HandleFunc("POST /v1/network/{owner}/recalculate", s.handleRecalculateStrengths)
	mux.HandleFunc("POST /v1/path/searches", s.handleRunSearch)
	mux.HandleFunc("GET /v1/path/searches/{id}", s.handleGetSearch)
	mux.HandleFunc("GET /v1/path/searches", s.handleListSearches)
	mux.HandleFunc("POST /v1/introductions", s.handleStartFlow)
	mux.HandleFunc("GET /v1/introductions/{id}", s.handleGetFlow)
	mux.HandleFunc("GET /v1/introductions", s.handleListFlows)
	mux.HandleFunc("POST /v1/introductions/{id}/respond", s.handleRespondStep)
	mux.HandleFunc("POST /v1/introductions/{id}/cancel", s.handleCancelFlow)
	mux.HandleFunc("POST /v1/introductions/sweep", s.handleSweep)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	var h http.Handler = mux
	h = LoggingMiddleware(h)
	h = RecoveryMiddleware(h)
	return AuthMiddleware(authToken, h)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSweep handles POST /v1/introductions/sweep. It runs one expiry and
// reminder pass immediately instead of waiting for the next interval.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	sweeper := intro.NewSweeper(s.store, s.notifier, 0, s.log)
	sweeper.SweepOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "swept"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps service errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, intro.ErrBadPath):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, intro.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, path.ErrOwnerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, intro.ErrConflict), errors.Is(err, store.ErrStaleUpdate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, intro.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
