// Package graph builds the per-owner adjacency structure searched by the
// path finder, and scores connection strength.
package graph

import (
	"sort"

	"github.com/groblegark/warmpath/internal/model"
)

// Neighbor is one adjacency entry: the node reached and the strength of the
// edge traversed to reach it.
type Neighbor struct {
	NodeID   string
	Strength int
}

// Graph is a single owner's relationship graph, rebuilt per search call from
// a flat node/edge listing. It is read-only after Build and holds no
// references into any other owner's data.
type Graph struct {
	OwnerID string

	nodes map[string]*model.Node
	adj   map[string][]Neighbor

	// ownerNodeID is the node representing the owner (layer 0).
	ownerNodeID string
}

// Build assembles a Graph from one owner's nodes and connections.
//
// Every active connection contributes a from->to adjacency entry, and
// additionally to->from when the connection is mutual. Inactive connections
// are skipped entirely. Adjacency lists are sorted by neighbor node ID so
// traversal order is canonical regardless of storage order.
func Build(ownerID string, nodes []*model.Node, conns []*model.Connection) *Graph {
	g := &Graph{
		OwnerID: ownerID,
		nodes:   make(map[string]*model.Node, len(nodes)),
		adj:     make(map[string][]Neighbor),
	}

	for _, n := range nodes {
		g.nodes[n.ID] = n
		if n.Kind == model.NodeUser && n.TargetUserID == ownerID {
			g.ownerNodeID = n.ID
		}
	}

	for _, c := range conns {
		if !c.IsActive {
			continue
		}
		g.adj[c.FromNodeID] = append(g.adj[c.FromNodeID], Neighbor{
			NodeID:   c.ToNodeID,
			Strength: model.ClampStrength(c.Strength),
		})
		if c.IsMutual {
			g.adj[c.ToNodeID] = append(g.adj[c.ToNodeID], Neighbor{
				NodeID:   c.FromNodeID,
				Strength: model.ClampStrength(c.Strength),
			})
		}
	}

	for id := range g.adj {
		list := g.adj[id]
		sort.Slice(list, func(i, j int) bool { return list[i].NodeID < list[j].NodeID })
		g.adj[id] = list
	}

	return g
}

// Node returns the node with the given ID, or nil when unknown.
func (g *Graph) Node(id string) *model.Node {
	return g.nodes[id]
}

// OwnerNode returns the owner's own node, or nil when the listing contained
// no layer-0 node for the owner.
func (g *Graph) OwnerNode() *model.Node {
	if g.ownerNodeID == "" {
		return nil
	}
	return g.nodes[g.ownerNodeID]
}

// Neighbors returns the adjacency list for a node in canonical (node ID)
// order. The returned slice must not be modified.
func (g *Graph) Neighbors(id string) []Neighbor {
	return g.adj[id]
}

// NodesInOrder returns every node sorted by node ID. Candidate enumeration
// uses this so result order is stable across runs.
func (g *Graph) NodesInOrder() []*model.Node {
	out := make([]*model.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// CommonNeighborCount returns the number of nodes adjacent to both a and b.
// Only outgoing adjacency is considered, which after Build already folds in
// mutual edges.
func (g *Graph) CommonNeighborCount(a, b string) int {
	na := g.adj[a]
	nb := g.adj[b]
	if len(na) == 0 || len(nb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(na))
	for _, n := range na {
		set[n.NodeID] = struct{}{}
	}
	count := 0
	for _, n := range nb {
		if n.NodeID == a || n.NodeID == b {
			continue
		}
		if _, ok := set[n.NodeID]; ok {
			count++
		}
	}
	return count
}
