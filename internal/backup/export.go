// Package backup periodically exports the full dataset as JSONL to one or
// more destinations.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/groblegark/warmpath/internal/model"
)

// Source is the read surface the exporter needs.
type Source interface {
	ListOwners(ctx context.Context) ([]string, error)
	ListNodes(ctx context.Context, ownerID string) ([]*model.Node, error)
	ListConnections(ctx context.Context, ownerID string) ([]*model.Connection, error)
	ListFlowsByUser(ctx context.Context, userID string) ([]*model.IntroductionFlow, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Owners    int       `json:"owners"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type  string `json:"type"`
	Owner string `json:"owner,omitempty"`
	Data  any    `json:"data"`
}

// ExportJSONL writes every owner's network and flows as JSONL to w. Owners
// come back from the store in sorted order, so two exports of the same data
// are byte-comparable. A flow appears once, under its requester.
func ExportJSONL(ctx context.Context, s Source, w io.Writer) error {
	owners, err := s.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		Owners:    len(owners),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, owner := range owners {
		nodes, err := s.ListNodes(ctx, owner)
		if err != nil {
			return fmt.Errorf("list nodes for %s: %w", owner, err)
		}
		for _, n := range nodes {
			if err := enc.Encode(record{Type: "node", Owner: owner, Data: n}); err != nil {
				return fmt.Errorf("encode node %s: %w", n.ID, err)
			}
		}

		conns, err := s.ListConnections(ctx, owner)
		if err != nil {
			return fmt.Errorf("list connections for %s: %w", owner, err)
		}
		for _, c := range conns {
			if err := enc.Encode(record{Type: "connection", Owner: owner, Data: c}); err != nil {
				return fmt.Errorf("encode connection %s: %w", c.ID, err)
			}
		}

		flows, err := s.ListFlowsByUser(ctx, owner)
		if err != nil {
			return fmt.Errorf("list flows for %s: %w", owner, err)
		}
		for _, f := range flows {
			if f.RequesterID != owner {
				continue
			}
			if err := enc.Encode(record{Type: "flow", Owner: owner, Data: f}); err != nil {
				return fmt.Errorf("encode flow %s: %w", f.ID, err)
			}
		}
	}

	return nil
}
