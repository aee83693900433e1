package server

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/store"
)

// memStore is an in-memory store.Store backing the HTTP handler tests. The
// guarded flow updates carry the same semantics as the real implementation
// so the conflict status codes are exercised for real.
type memStore struct {
	nodes    map[string]map[string]*model.Node       // owner -> id -> node
	conns    map[string]map[string]*model.Connection // owner -> id -> conn
	requests map[string]*model.PathRequest
	results  map[string][]*model.PathResult // request id -> results
	flows    map[string]*model.IntroductionFlow
}

func newMemStore() *memStore {
	return &memStore{
		nodes:    make(map[string]map[string]*model.Node),
		conns:    make(map[string]map[string]*model.Connection),
		requests: make(map[string]*model.PathRequest),
		results:  make(map[string][]*model.PathResult),
		flows:    make(map[string]*model.IntroductionFlow),
	}
}

// Network

func (m *memStore) ListOwners(context.Context) ([]string, error) {
	var out []string
	for owner := range m.nodes {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ReplaceNetwork(_ context.Context, ownerID string, nodes []*model.Node, conns []*model.Connection) error {
	byNodeID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byNodeID[n.ID] = n
	}
	byConnID := make(map[string]*model.Connection, len(conns))
	for _, c := range conns {
		byConnID[c.ID] = c
	}
	m.nodes[ownerID] = byNodeID
	m.conns[ownerID] = byConnID
	return nil
}

func (m *memStore) ListNodes(_ context.Context, ownerID string) ([]*model.Node, error) {
	var out []*model.Node
	for _, n := range m.nodes[ownerID] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetNode(_ context.Context, id string) (*model.Node, error) {
	for _, byID := range m.nodes {
		if n, ok := byID[id]; ok {
			return n, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) UpsertNode(_ context.Context, node *model.Node) error {
	byID, ok := m.nodes[node.OwnerID]
	if !ok {
		byID = make(map[string]*model.Node)
		m.nodes[node.OwnerID] = byID
	}
	byID[node.ID] = node
	return nil
}

func (m *memStore) ListConnections(_ context.Context, ownerID string) ([]*model.Connection, error) {
	var out []*model.Connection
	for _, c := range m.conns[ownerID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetConnection(_ context.Context, id string) (*model.Connection, error) {
	for _, byID := range m.conns {
		if c, ok := byID[id]; ok {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) CreateConnection(_ context.Context, conn *model.Connection) error {
	byID, ok := m.conns[conn.OwnerID]
	if !ok {
		byID = make(map[string]*model.Connection)
		m.conns[conn.OwnerID] = byID
	}
	byID[conn.ID] = conn
	return nil
}

func (m *memStore) UpdateConnectionStrength(_ context.Context, id string, strength int) error {
	c, err := m.GetConnection(context.Background(), id)
	if err != nil {
		return err
	}
	c.Strength = strength
	return nil
}

func (m *memStore) DeactivateConnection(_ context.Context, id string) error {
	c, err := m.GetConnection(context.Background(), id)
	if err != nil {
		return err
	}
	c.IsActive = false
	return nil
}

func (m *memStore) NetworkStats(_ context.Context, ownerID string) (*model.NetworkStats, error) {
	stats := &model.NetworkStats{}
	total := 0
	for _, n := range m.nodes[ownerID] {
		stats.TotalNodes++
		if n.Kind == model.NodeUser {
			stats.RegisteredUsers++
		} else {
			stats.ImportedContacts++
		}
	}
	for _, c := range m.conns[ownerID] {
		stats.TotalConnections++
		total += c.Strength
		if !c.IsActive {
			stats.InactiveEdges++
		}
	}
	if stats.TotalConnections > 0 {
		stats.AvgStrength = total / stats.TotalConnections
	}
	return stats, nil
}

// Path requests

func (m *memStore) CreatePathRequest(_ context.Context, req *model.PathRequest) error {
	m.requests[req.ID] = req
	return nil
}

func (m *memStore) GetPathRequest(_ context.Context, id string) (*model.PathRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *req
	out.Results = m.results[id]
	return &out, nil
}

func (m *memStore) ListPathRequests(_ context.Context, ownerID string, limit int) ([]*model.PathRequest, error) {
	var out []*model.PathRequest
	for _, req := range m.requests {
		if req.OwnerID == ownerID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdatePathRequestStatus(_ context.Context, id string, status model.RequestStatus, processedAt *time.Time) error {
	req, ok := m.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	req.Status = status
	req.ProcessedAt = processedAt
	return nil
}

func (m *memStore) SavePathResults(_ context.Context, requestID string, results []*model.PathResult) error {
	m.results[requestID] = results
	return nil
}

func (m *memStore) ListPathResults(_ context.Context, requestID string) ([]*model.PathResult, error) {
	return m.results[requestID], nil
}

// Flows

func (m *memStore) CreateFlow(_ context.Context, flow *model.IntroductionFlow) error {
	m.flows[flow.ID] = cloneFlow(flow)
	return nil
}

func (m *memStore) GetFlow(_ context.Context, id string) (*model.IntroductionFlow, error) {
	f, ok := m.flows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneFlow(f), nil
}

func (m *memStore) ListFlowsByUser(_ context.Context, userID string) ([]*model.IntroductionFlow, error) {
	var out []*model.IntroductionFlow
	for _, f := range m.flows {
		for _, id := range f.Path {
			if id == userID {
				out = append(out, cloneFlow(f))
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) MarkStepDispatched(_ context.Context, flowID string, stepNumber int, req model.StepRequest) error {
	f, ok := m.flows[flowID]
	if !ok {
		return sql.ErrNoRows
	}
	if f.Status.IsTerminal() || stepNumber >= len(f.Steps) {
		return store.ErrStaleUpdate
	}
	f.Steps[stepNumber].Request = &req
	f.CurrentStep = stepNumber
	f.Status = model.FlowInProgress
	return nil
}

func (m *memStore) RecordStepResponse(_ context.Context, flowID string, stepNumber int, resp model.StepResponse) error {
	f, ok := m.flows[flowID]
	if !ok {
		return sql.ErrNoRows
	}
	if f.Status != model.FlowInProgress || f.CurrentStep != stepNumber {
		return store.ErrStaleUpdate
	}
	step := f.Step(stepNumber)
	if step == nil || step.Response != nil {
		return store.ErrStaleUpdate
	}
	step.Response = &resp
	return nil
}

func (m *memStore) UpdateFlowStatus(_ context.Context, flowID string, from []model.FlowStatus, to model.FlowStatus) error {
	f, ok := m.flows[flowID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, s := range from {
		if f.Status == s {
			f.Status = to
			return nil
		}
	}
	return store.ErrStaleUpdate
}

func (m *memStore) SetFlowCompletion(_ context.Context, flowID string, info model.CompletionInfo) error {
	f, ok := m.flows[flowID]
	if !ok {
		return sql.ErrNoRows
	}
	f.Completion = &info
	return nil
}

func (m *memStore) ExpireFlows(_ context.Context, now time.Time) ([]*model.IntroductionFlow, error) {
	var out []*model.IntroductionFlow
	for _, f := range m.flows {
		if !f.Status.IsTerminal() && f.ExpiresAt.Before(now) {
			f.Status = model.FlowExpired
			out = append(out, cloneFlow(f))
		}
	}
	return out, nil
}

func (m *memStore) ListReminderSteps(_ context.Context, now time.Time, window time.Duration) ([]*store.ReminderStep, error) {
	var out []*store.ReminderStep
	for _, f := range m.flows {
		if f.Status != model.FlowInProgress {
			continue
		}
		step := f.Step(f.CurrentStep)
		if step == nil || step.Request == nil || step.Response != nil || step.ReminderSent {
			continue
		}
		if step.Request.ExpiresAt.After(now) && step.Request.ExpiresAt.Sub(now) <= window {
			out = append(out, &store.ReminderStep{
				FlowID:     f.ID,
				StepNumber: step.StepNumber,
				FromUserID: step.FromUserID,
				ToUserID:   step.ToUserID,
				ExpiresAt:  step.Request.ExpiresAt,
			})
		}
	}
	return out, nil
}

func (m *memStore) MarkReminderSent(_ context.Context, flowID string, stepNumber int) error {
	f, ok := m.flows[flowID]
	if !ok {
		return sql.ErrNoRows
	}
	step := f.Step(stepNumber)
	if step == nil || step.ReminderSent {
		return store.ErrStaleUpdate
	}
	step.ReminderSent = true
	step.ReminderCount++
	return nil
}

func (m *memStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *memStore) Close() error { return nil }

func cloneFlow(f *model.IntroductionFlow) *model.IntroductionFlow {
	out := *f
	out.Path = append([]string(nil), f.Path...)
	out.Steps = make([]*model.IntroductionStep, len(f.Steps))
	for i, s := range f.Steps {
		sc := *s
		if s.Request != nil {
			r := *s.Request
			sc.Request = &r
		}
		if s.Response != nil {
			r := *s.Response
			sc.Response = &r
		}
		out.Steps[i] = &sc
	}
	if f.Completion != nil {
		c := *f.Completion
		out.Completion = &c
	}
	return &out
}
