// Package path implements the bounded path search over one owner's
// relationship graph and the ranking of its results.
package path

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groblegark/warmpath/internal/graph"
	"github.com/groblegark/warmpath/internal/idgen"
	"github.com/groblegark/warmpath/internal/model"
)

// ErrOwnerNotFound is returned when the requested owner has no node of their
// own in the network listing.
var ErrOwnerNotFound = errors.New("path: owner node not found")

// Store is the persistence surface the finder needs.
type Store interface {
	ListNodes(ctx context.Context, ownerID string) ([]*model.Node, error)
	ListConnections(ctx context.Context, ownerID string) ([]*model.Connection, error)
	CreatePathRequest(ctx context.Context, req *model.PathRequest) error
	UpdatePathRequestStatus(ctx context.Context, id string, status model.RequestStatus, processedAt *time.Time) error
	SavePathResults(ctx context.Context, requestID string, results []*model.PathResult) error
}

// Finder runs path searches. It is stateless across calls: the owner's graph
// is rebuilt fresh for every search and discarded afterwards.
type Finder struct {
	store Store
	nowFn func() time.Time
}

// NewFinder returns a Finder backed by the given store.
func NewFinder(s Store) *Finder {
	return &Finder{store: s, nowFn: time.Now}
}

// Search validates and runs one path search for ownerID, persisting the
// request and its ranked results. The pipeline is synchronous: the returned
// request is always in status completed or failed, never processing.
//
// Validation failures and an unknown owner are rejected before any record is
// written. A failure during the search itself marks the request failed and
// is returned to the caller, so an empty-but-successful result set remains
// distinguishable from a search that could not complete.
func (f *Finder) Search(ctx context.Context, ownerID, query string, criteria model.SearchCriteria, cfg model.SearchConfig) (*model.PathRequest, error) {
	if err := model.ValidateSearchConfig(cfg); err != nil {
		return nil, err
	}

	nodes, err := f.store.ListNodes(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	conns, err := f.store.ListConnections(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	g := graph.Build(ownerID, nodes, conns)
	owner := g.OwnerNode()
	if owner == nil {
		return nil, fmt.Errorf("%w: owner %s", ErrOwnerNotFound, ownerID)
	}

	id, err := idgen.Generate(idgen.PrefixRequest)
	if err != nil {
		return nil, err
	}
	req := &model.PathRequest{
		ID:        id,
		OwnerID:   ownerID,
		Query:     query,
		Criteria:  criteria,
		Config:    cfg,
		Status:    model.RequestPending,
		CreatedAt: f.nowFn().UTC(),
	}
	if err := f.store.CreatePathRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create path request: %w", err)
	}

	if err := f.store.UpdatePathRequestStatus(ctx, req.ID, model.RequestProcessing, nil); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	req.Status = model.RequestProcessing

	results, err := f.runSearch(g, owner, req)
	if err != nil {
		_ = f.store.UpdatePathRequestStatus(ctx, req.ID, model.RequestFailed, nil)
		req.Status = model.RequestFailed
		return req, err
	}

	if err := f.store.SavePathResults(ctx, req.ID, results); err != nil {
		_ = f.store.UpdatePathRequestStatus(ctx, req.ID, model.RequestFailed, nil)
		req.Status = model.RequestFailed
		return req, fmt.Errorf("save results: %w", err)
	}

	processedAt := f.nowFn().UTC()
	if err := f.store.UpdatePathRequestStatus(ctx, req.ID, model.RequestCompleted, &processedAt); err != nil {
		return req, fmt.Errorf("mark completed: %w", err)
	}
	req.Status = model.RequestCompleted
	req.ProcessedAt = &processedAt
	req.Results = results
	return req, nil
}

// runSearch enumerates candidates, finds a shortest path to each, scores,
// and ranks. Candidates with no path within the depth bound are dropped.
func (f *Finder) runSearch(g *graph.Graph, owner *model.Node, req *model.PathRequest) ([]*model.PathResult, error) {
	var results []*model.PathResult
	for _, cand := range candidates(g, owner, req) {
		nodePath := shortestPath(g, owner.ID, cand.ID, req.Config.MaxDepth)
		if nodePath == nil {
			continue
		}

		id, err := idgen.Generate(idgen.PrefixResult)
		if err != nil {
			return nil, err
		}
		res := &model.PathResult{
			ID:           id,
			RequestID:    req.ID,
			Path:         nodePath,
			Depth:        len(nodePath) - 1,
			Confidence:   confidence(cand, req.Criteria),
			PathStrength: pathStrength(nodePath),
			Target: model.PathTarget{
				NodeID:          cand.ID,
				UserID:          cand.TargetUserID,
				Name:            cand.DisplayName,
				MatchedCriteria: matchedCriteria(cand, req.Criteria),
			},
		}
		if cand.Estimated != nil {
			res.Target.Company = cand.Estimated.Company
			res.Target.Role = cand.Estimated.Role
		}
		results = append(results, res)
	}

	return Rank(results, req.Config.MinConfidence, req.Config.MaxResults), nil
}

// candidates returns the nodes qualifying as search targets: not the owner,
// allowed by the include-contacts policy, and matching the criteria.
func candidates(g *graph.Graph, owner *model.Node, req *model.PathRequest) []*model.Node {
	var out []*model.Node
	for _, n := range g.NodesInOrder() {
		if n.ID == owner.ID {
			continue
		}
		if n.Kind == model.NodeUser && n.TargetUserID == owner.TargetUserID {
			continue
		}
		if !req.Config.IncludeContacts && n.Kind != model.NodeUser {
			continue
		}
		if matches(n, req.Criteria) {
			out = append(out, n)
		}
	}
	return out
}

// shortestPath runs a breadth-first search from startID to targetID over the
// graph's canonical adjacency order, bounded by maxDepth hops. It returns
// the first minimum-hop path discovered, or nil when the target is
// unreachable within the bound.
func shortestPath(g *graph.Graph, startID, targetID string, maxDepth int) []model.PathNode {
	type item struct {
		nodeID string
		path   []model.PathNode
		depth  int
	}

	start := g.Node(startID)
	queue := []item{{
		nodeID: startID,
		path:   []model.PathNode{pathNode(start, 100)},
		depth:  0,
	}}
	visited := map[string]struct{}{startID: {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.nodeID == targetID {
			return cur.path
		}
		if cur.depth == maxDepth {
			continue
		}

		for _, nb := range g.Neighbors(cur.nodeID) {
			if _, seen := visited[nb.NodeID]; seen {
				continue
			}
			visited[nb.NodeID] = struct{}{}
			node := g.Node(nb.NodeID)
			if node == nil {
				continue
			}
			next := make([]model.PathNode, len(cur.path), len(cur.path)+1)
			copy(next, cur.path)
			next = append(next, pathNode(node, nb.Strength))
			queue = append(queue, item{nodeID: nb.NodeID, path: next, depth: cur.depth + 1})
		}
	}
	return nil
}

// pathNode projects a graph node into a path entry. strength is the strength
// of the edge traversed into the node; the owner carries a synthetic 100.
func pathNode(n *model.Node, strength int) model.PathNode {
	pn := model.PathNode{
		NodeID:   n.ID,
		UserID:   n.TargetUserID,
		Name:     n.DisplayName,
		Strength: strength,
		IsUser:   n.Kind == model.NodeUser,
	}
	if n.Estimated != nil {
		pn.Company = n.Estimated.Company
		pn.Role = n.Estimated.Role
	}
	return pn
}

// pathStrength is the rounded mean of the edge strengths traversed,
// excluding the owner's synthetic self-strength.
func pathStrength(path []model.PathNode) int {
	if len(path) <= 1 {
		return 100
	}
	sum := 0
	for _, pn := range path[1:] {
		sum += pn.Strength
	}
	hops := len(path) - 1
	return (sum + hops/2) / hops
}
