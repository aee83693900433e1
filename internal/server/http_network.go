package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/groblegark/warmpath/internal/graph"
	"github.com/groblegark/warmpath/internal/idgen"
	"github.com/groblegark/warmpath/internal/model"
)

// importNetworkInput is the body of POST /v1/network/{owner}/nodes. The
// payload replaces the owner's network wholesale; connections reference
// nodes by the IDs given in the same payload.
type importNetworkInput struct {
	Nodes       []*model.Node       `json:"nodes"`
	Connections []*model.Connection `json:"connections"`
}

// handleImportNetwork handles POST /v1/network/{owner}/nodes.
func (s *Server) handleImportNetwork(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	var in importNetworkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(in.Nodes) == 0 {
		writeError(w, http.StatusBadRequest, "nodes is required")
		return
	}

	now := time.Now().UTC()
	for _, n := range in.Nodes {
		if n.ID == "" {
			id, err := idgen.Generate(idgen.PrefixNode)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate node id")
				return
			}
			n.ID = id
		}
		n.OwnerID = owner
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.UpdatedAt = now
		if err := model.ValidateNode(n); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	for _, c := range in.Connections {
		if c.ID == "" {
			id, err := idgen.Generate(idgen.PrefixConn)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate connection id")
				return
			}
			c.ID = id
		}
		c.OwnerID = owner
		c.Strength = model.ClampStrength(c.Strength)
		c.IsActive = true
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		if err := model.ValidateConnection(c); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if err := s.store.ReplaceNetwork(r.Context(), owner, in.Nodes, in.Connections); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to import network")
		return
	}

	s.notifier.NetworkImported(r.Context(), owner, len(in.Nodes), len(in.Connections))

	writeJSON(w, http.StatusCreated, map[string]int{
		"nodes":       len(in.Nodes),
		"connections": len(in.Connections),
	})
}

// handleNetworkMap handles GET /v1/network/{owner}/map.
func (s *Server) handleNetworkMap(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	nodes, err := s.store.ListNodes(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list nodes")
		return
	}
	conns, err := s.store.ListConnections(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}
	stats, err := s.store.NetworkStats(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	// Never null in JSON output.
	if nodes == nil {
		nodes = []*model.Node{}
	}
	if conns == nil {
		conns = []*model.Connection{}
	}

	writeJSON(w, http.StatusOK, &model.NetworkMap{
		Nodes:       nodes,
		Connections: conns,
		Stats:       stats,
	})
}

// createConnectionInput is the body of POST /v1/network/{owner}/connections.
// When strength is omitted it is scored from the connection's context and
// the owner's current graph.
type createConnectionInput struct {
	FromNodeID string                   `json:"from_node_id"`
	ToNodeID   string                   `json:"to_node_id"`
	Type       model.ConnectionType     `json:"type"`
	Strength   *int                     `json:"strength,omitempty"`
	IsMutual   bool                     `json:"is_mutual"`
	Context    *model.ConnectionContext `json:"context,omitempty"`
}

// handleCreateConnection handles POST /v1/network/{owner}/connections.
func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	var in createConnectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := idgen.Generate(idgen.PrefixConn)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate connection id")
		return
	}

	now := time.Now().UTC()
	conn := &model.Connection{
		ID:         id,
		OwnerID:    owner,
		FromNodeID: in.FromNodeID,
		ToNodeID:   in.ToNodeID,
		Type:       in.Type,
		IsMutual:   in.IsMutual,
		IsActive:   true,
		Context:    in.Context,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if in.Strength != nil {
		conn.Strength = model.ClampStrength(*in.Strength)
	} else {
		common, err := s.commonNeighbors(r, owner, in.FromNodeID, in.ToNodeID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to score connection")
			return
		}
		conn.Strength = graph.ScoreConnection(conn, common, now).Total()
	}

	if err := model.ValidateConnection(conn); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.store.CreateConnection(r.Context(), conn); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create connection")
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

// handleDeactivateConnection handles DELETE /v1/network/{owner}/connections/{id}.
// Deactivation is a soft delete; the edge stays on record but is no longer
// traversed.
func (s *Server) handleDeactivateConnection(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	id := r.PathValue("id")

	conn, err := s.store.GetConnection(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get connection")
		return
	}
	if conn.OwnerID != owner {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}

	if err := s.store.DeactivateConnection(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to deactivate connection")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRecalculateStrengths handles POST /v1/network/{owner}/recalculate.
// Every active edge is rescored against the current graph; only edges whose
// score actually moved are written back.
func (s *Server) handleRecalculateStrengths(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	nodes, err := s.store.ListNodes(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list nodes")
		return
	}
	conns, err := s.store.ListConnections(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}

	g := graph.Build(owner, nodes, conns)
	now := time.Now().UTC()
	updated := 0
	for _, c := range conns {
		if !c.IsActive {
			continue
		}
		score := graph.ScoreConnection(c, g.CommonNeighborCount(c.FromNodeID, c.ToNodeID), now).Total()
		if score == c.Strength {
			continue
		}
		if err := s.store.UpdateConnectionStrength(r.Context(), c.ID, score); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update connection strength")
			return
		}
		updated++
	}

	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// commonNeighbors rebuilds the owner's graph and counts neighbors shared by
// the two endpoints.
func (s *Server) commonNeighbors(r *http.Request, owner, from, to string) (int, error) {
	nodes, err := s.store.ListNodes(r.Context(), owner)
	if err != nil {
		return 0, err
	}
	conns, err := s.store.ListConnections(r.Context(), owner)
	if err != nil {
		return 0, err
	}
	return graph.Build(owner, nodes, conns).CommonNeighborCount(from, to), nil
}
