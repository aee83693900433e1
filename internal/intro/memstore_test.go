package intro

import (
	"context"
	"database/sql"
	"time"

	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/store"
)

// memStore is an in-memory store.Store with the same guarded-update
// semantics as the real implementation, so orchestrator and sweeper tests
// exercise the conflict paths for real.
type memStore struct {
	nodes map[string][]*model.Node
	flows map[string]*model.IntroductionFlow
}

func newMemStore() *memStore {
	return &memStore{
		nodes: make(map[string][]*model.Node),
		flows: make(map[string]*model.IntroductionFlow),
	}
}

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

func (m *memStore) flowActive(f *model.IntroductionFlow) bool {
	return !f.Status.IsTerminal()
}

// Network

func (m *memStore) ListOwners(context.Context) ([]string, error) {
	var out []string
	for owner := range m.nodes {
		out = append(out, owner)
	}
	return out, nil
}

func (m *memStore) ReplaceNetwork(_ context.Context, ownerID string, nodes []*model.Node, _ []*model.Connection) error {
	m.nodes[ownerID] = nodes
	return nil
}

func (m *memStore) ListNodes(_ context.Context, ownerID string) ([]*model.Node, error) {
	return m.nodes[ownerID], nil
}

func (m *memStore) GetNode(context.Context, string) (*model.Node, error) {
	return nil, sql.ErrNoRows
}

func (m *memStore) UpsertNode(context.Context, *model.Node) error { return nil }

func (m *memStore) ListConnections(context.Context, string) ([]*model.Connection, error) {
	return nil, nil
}

func (m *memStore) GetConnection(context.Context, string) (*model.Connection, error) {
	return nil, sql.ErrNoRows
}

func (m *memStore) CreateConnection(context.Context, *model.Connection) error { return nil }

func (m *memStore) UpdateConnectionStrength(context.Context, string, int) error { return nil }

func (m *memStore) DeactivateConnection(context.Context, string) error { return nil }

func (m *memStore) NetworkStats(context.Context, string) (*model.NetworkStats, error) {
	return &model.NetworkStats{}, nil
}

// Path requests

func (m *memStore) CreatePathRequest(context.Context, *model.PathRequest) error { return nil }

func (m *memStore) GetPathRequest(context.Context, string) (*model.PathRequest, error) {
	return nil, sql.ErrNoRows
}

func (m *memStore) ListPathRequests(context.Context, string, int) ([]*model.PathRequest, error) {
	return nil, nil
}

func (m *memStore) UpdatePathRequestStatus(context.Context, string, model.RequestStatus, *time.Time) error {
	return nil
}

func (m *memStore) SavePathResults(context.Context, string, []*model.PathResult) error { return nil }

func (m *memStore) ListPathResults(context.Context, string) ([]*model.PathResult, error) {
	return nil, nil
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
	if !m.flowActive(f) || stepNumber >= len(f.Steps) {
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

func (m *memStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *memStore) Close() error { return nil }
