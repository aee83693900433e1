package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groblegark/warmpath/internal/intro"
	"github.com/groblegark/warmpath/internal/metrics"
	"github.com/groblegark/warmpath/internal/model"
)

// startFlowInput is the body of POST /v1/introductions.
type startFlowInput struct {
	RequesterID   string   `json:"requester_id"`
	TargetNodeID  string   `json:"target_node_id,omitempty"`
	PathRequestID string   `json:"path_request_id,omitempty"`
	Path          []string `json:"path"`
	Message       string   `json:"message,omitempty"`
}

// handleStartFlow handles POST /v1/introductions.
func (s *Server) handleStartFlow(w http.ResponseWriter, r *http.Request) {
	var in startFlowInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "requester_id is required")
		return
	}

	flow, err := s.intros.Start(r.Context(), intro.StartParams{
		RequesterID:   in.RequesterID,
		TargetNodeID:  in.TargetNodeID,
		PathRequestID: in.PathRequestID,
		Path:          in.Path,
		Message:       in.Message,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.Default().IncFlowTransition(flow.Status.String())

	writeJSON(w, http.StatusCreated, flow)
}

// handleGetFlow handles GET /v1/introductions/{id}.
func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flow, err := s.intros.Get(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "introduction not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get introduction")
		return
	}

	writeJSON(w, http.StatusOK, flow)
}

// handleListFlows handles GET /v1/introductions?user=... and returns every
// flow the user requested or appears in.
func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	flows, err := s.intros.ListForUser(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list introductions")
		return
	}
	if flows == nil {
		flows = []*model.IntroductionFlow{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"introductions": flows})
}

// respondStepInput is the body of POST /v1/introductions/{id}/respond.
type respondStepInput struct {
	StepNumber  int                  `json:"step_number"`
	ResponderID string               `json:"responder_id"`
	Status      model.ResponseStatus `json:"status"`
	Message     string               `json:"message,omitempty"`
}

// handleRespondStep handles POST /v1/introductions/{id}/respond.
func (s *Server) handleRespondStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in respondStepInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.ResponderID == "" {
		writeError(w, http.StatusBadRequest, "responder_id is required")
		return
	}

	flow, err := s.intros.Respond(r.Context(), id, in.StepNumber, in.ResponderID, in.Status, in.Message)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "introduction not found")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.Default().IncFlowTransition(flow.Status.String())

	writeJSON(w, http.StatusOK, flow)
}

// cancelFlowInput is the body of POST /v1/introductions/{id}/cancel.
type cancelFlowInput struct {
	RequesterID string `json:"requester_id"`
}

// handleCancelFlow handles POST /v1/introductions/{id}/cancel.
func (s *Server) handleCancelFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in cancelFlowInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "requester_id is required")
		return
	}

	flow, err := s.intros.Cancel(r.Context(), id, in.RequesterID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "introduction not found")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	metrics.Default().IncFlowTransition(flow.Status.String())

	writeJSON(w, http.StatusOK, flow)
}
