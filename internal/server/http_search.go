package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/groblegark/warmpath/internal/metrics"
	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/query"
)

// runSearchInput is the body of POST /v1/path/searches. Criteria may be
// supplied directly or extracted from the free-form query; explicit criteria
// win when both are present.
type runSearchInput struct {
	OwnerID  string                `json:"owner_id"`
	Query    string                `json:"query,omitempty"`
	Criteria *model.SearchCriteria `json:"criteria,omitempty"`
	Config   *model.SearchConfig   `json:"config,omitempty"`
}

// handleRunSearch handles POST /v1/path/searches. The search runs
// synchronously; the response carries the completed request with its ranked
// results.
func (s *Server) handleRunSearch(w http.ResponseWriter, r *http.Request) {
	var in runSearchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	criteria := model.SearchCriteria{}
	if in.Criteria != nil {
		criteria = *in.Criteria
	} else if in.Query != "" {
		criteria = query.Parse(in.Query)
	}
	if criteria.IsEmpty() {
		writeError(w, http.StatusBadRequest, "query or criteria is required")
		return
	}

	cfg := model.DefaultSearchConfig()
	if in.Config != nil {
		cfg = *in.Config
	}

	done := metrics.TimeSearch()
	req, err := s.finder.Search(r.Context(), in.OwnerID, in.Query, criteria, cfg)
	done(err == nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.notifier.SearchCompleted(r.Context(), req)

	writeJSON(w, http.StatusCreated, req)
}

// handleGetSearch handles GET /v1/path/searches/{id}.
func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	req, err := s.store.GetPathRequest(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "search not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get search")
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// handleListSearches handles GET /v1/path/searches?owner=...&limit=N.
func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	reqs, err := s.store.ListPathRequests(r.Context(), owner, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list searches")
		return
	}
	if reqs == nil {
		reqs = []*model.PathRequest{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"searches": reqs})
}
