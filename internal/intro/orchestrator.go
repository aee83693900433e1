// Package intro drives the consent-gated introduction workflow: one flow
// walks a chosen path hop by hop, and every hop requires an explicit yes
// before the next one is asked.
package intro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/groblegark/warmpath/internal/idgen"
	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/notify"
	"github.com/groblegark/warmpath/internal/store"
)

// FlowTTL is how long a flow may stay open before the sweeper expires it.
const FlowTTL = 72 * time.Hour

var (
	// ErrUnauthorized is returned when the caller is not the user the
	// operation belongs to.
	ErrUnauthorized = errors.New("intro: not your step")
	// ErrInvalidState is returned when the flow or step cannot accept the
	// operation in its current state.
	ErrInvalidState = errors.New("intro: invalid flow state")
	// ErrConflict is returned when a concurrent writer resolved the flow
	// or step first.
	ErrConflict = errors.New("intro: conflicting update")
	// ErrBadPath is returned when a flow is started on an unusable path.
	ErrBadPath = errors.New("intro: unusable path")
)

// StartParams describes a new flow. Path is the ordered list of user IDs
// starting with the requester; the last entry is the target.
type StartParams struct {
	RequesterID   string
	TargetNodeID  string
	PathRequestID string
	Path          []string
	Message       string
}

// Orchestrator owns all flow transitions. Reads come straight from the
// store; writes go through guarded updates so two racing calls can never
// both win the same step.
type Orchestrator struct {
	store    store.Store
	notifier *notify.Notifier
	log      *slog.Logger
	nowFn    func() time.Time
}

// NewOrchestrator returns an Orchestrator over the given store.
func NewOrchestrator(s store.Store, n *notify.Notifier, log *slog.Logger) *Orchestrator {
	return &Orchestrator{store: s, notifier: n, log: log, nowFn: time.Now}
}

// Start creates a flow along the given path and dispatches its first step.
// The returned flow is in_progress with step 0 waiting on its recipient.
func (o *Orchestrator) Start(ctx context.Context, p StartParams) (*model.IntroductionFlow, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}

	id, err := idgen.Generate(idgen.PrefixFlow)
	if err != nil {
		return nil, err
	}

	now := o.nowFn().UTC()
	flow := &model.IntroductionFlow{
		ID:            id,
		PathRequestID: p.PathRequestID,
		RequesterID:   p.RequesterID,
		TargetNodeID:  p.TargetNodeID,
		Path:          p.Path,
		CurrentStep:   0,
		Status:        model.FlowPending,
		ExpiresAt:     now.Add(FlowTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i := 0; i < len(p.Path)-1; i++ {
		flow.Steps = append(flow.Steps, &model.IntroductionStep{
			StepNumber: i,
			FromUserID: p.Path[i],
			ToUserID:   p.Path[i+1],
		})
	}

	if err := o.store.CreateFlow(ctx, flow); err != nil {
		return nil, fmt.Errorf("create flow: %w", err)
	}
	o.notifier.FlowStarted(ctx, flow)

	if err := o.dispatchStep(ctx, flow, 0, p.Message); err != nil {
		return nil, err
	}
	return flow, nil
}

// Respond records a step decision on behalf of responderID. An acceptance
// on the final step completes the flow; on any earlier step it dispatches
// the next hop. A decline fails the whole flow.
func (o *Orchestrator) Respond(ctx context.Context, flowID string, stepNumber int, responderID string, status model.ResponseStatus, message string) (*model.IntroductionFlow, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: response status %q", ErrInvalidState, status)
	}

	flow, err := o.store.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	step := flow.Step(stepNumber)
	if step == nil {
		return nil, fmt.Errorf("%w: flow %s has no step %d", ErrInvalidState, flowID, stepNumber)
	}
	if step.ToUserID != responderID {
		return nil, fmt.Errorf("%w: step %d belongs to %s", ErrUnauthorized, stepNumber, step.ToUserID)
	}
	if flow.Status != model.FlowInProgress {
		return nil, fmt.Errorf("%w: flow is %s", ErrInvalidState, flow.Status)
	}
	if stepNumber != flow.CurrentStep {
		return nil, fmt.Errorf("%w: current step is %d", ErrConflict, flow.CurrentStep)
	}
	if step.Response != nil {
		return nil, fmt.Errorf("%w: step %d already resolved", ErrInvalidState, stepNumber)
	}

	resp := model.StepResponse{
		Status:      status,
		Message:     message,
		RespondedAt: o.nowFn().UTC(),
	}
	if err := o.store.RecordStepResponse(ctx, flowID, stepNumber, resp); err != nil {
		if errors.Is(err, store.ErrStaleUpdate) {
			return nil, fmt.Errorf("%w: step %d resolved concurrently", ErrConflict, stepNumber)
		}
		return nil, fmt.Errorf("record response: %w", err)
	}
	step.Response = &resp

	if status == model.ResponseDeclined {
		return o.failFlow(ctx, flow, step)
	}

	o.notifier.StepAccepted(ctx, flow, step)
	if stepNumber == len(flow.Steps)-1 {
		return o.completeFlow(ctx, flow, step)
	}

	if err := o.dispatchStep(ctx, flow, stepNumber+1, ""); err != nil {
		return nil, err
	}
	return flow, nil
}

// Cancel withdraws a flow. Only the requester may cancel, and only while
// the flow is not yet terminal.
func (o *Orchestrator) Cancel(ctx context.Context, flowID, requesterID string) (*model.IntroductionFlow, error) {
	flow, err := o.store.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.RequesterID != requesterID {
		return nil, fmt.Errorf("%w: flow belongs to %s", ErrUnauthorized, flow.RequesterID)
	}
	if flow.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: flow is %s", ErrInvalidState, flow.Status)
	}

	active := []model.FlowStatus{model.FlowDraft, model.FlowPending, model.FlowInProgress}
	if err := o.store.UpdateFlowStatus(ctx, flowID, active, model.FlowCancelled); err != nil {
		if errors.Is(err, store.ErrStaleUpdate) {
			return nil, fmt.Errorf("%w: flow resolved concurrently", ErrConflict)
		}
		return nil, fmt.Errorf("cancel flow: %w", err)
	}
	flow.Status = model.FlowCancelled
	o.notifier.FlowCancelled(ctx, flowID, requesterID)
	o.log.Info("flow cancelled", "flow", flowID, "requester", requesterID)
	return flow, nil
}

// Get returns one flow.
func (o *Orchestrator) Get(ctx context.Context, flowID string) (*model.IntroductionFlow, error) {
	return o.store.GetFlow(ctx, flowID)
}

// ListForUser returns every flow the user requested or appears in.
func (o *Orchestrator) ListForUser(ctx context.Context, userID string) ([]*model.IntroductionFlow, error) {
	return o.store.ListFlowsByUser(ctx, userID)
}

// dispatchStep sends step n's request and moves the flow onto that step.
// note carries the requester's free-form message; it only decorates the
// first hop.
func (o *Orchestrator) dispatchStep(ctx context.Context, flow *model.IntroductionFlow, n int, note string) error {
	step := flow.Step(n)
	if step == nil {
		return fmt.Errorf("%w: no step %d", ErrInvalidState, n)
	}

	names, err := o.displayNames(ctx, flow)
	if err != nil {
		return err
	}
	target := flow.Path[len(flow.Path)-1]
	req := model.StepRequest{
		Message: notify.StepMessage(n, names(flow.RequesterID),
			names(step.FromUserID), names(target), note),
		SentAt:    o.nowFn().UTC(),
		ExpiresAt: flow.ExpiresAt,
	}

	if err := o.store.MarkStepDispatched(ctx, flow.ID, n, req); err != nil {
		if errors.Is(err, store.ErrStaleUpdate) {
			return fmt.Errorf("%w: flow resolved concurrently", ErrConflict)
		}
		return fmt.Errorf("dispatch step %d: %w", n, err)
	}
	step.Request = &req
	flow.CurrentStep = n
	flow.Status = model.FlowInProgress

	o.notifier.StepRequested(ctx, flow, step)
	o.log.Info("step dispatched", "flow", flow.ID, "step", n, "to", step.ToUserID)
	return nil
}

func (o *Orchestrator) completeFlow(ctx context.Context, flow *model.IntroductionFlow, last *model.IntroductionStep) (*model.IntroductionFlow, error) {
	info := model.CompletionInfo{
		Message:       last.Response.Message,
		SharedContact: last.ToUserID,
		CompletedAt:   o.nowFn().UTC(),
	}
	err := o.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.UpdateFlowStatus(ctx, flow.ID,
			[]model.FlowStatus{model.FlowInProgress}, model.FlowCompleted); err != nil {
			return err
		}
		return tx.SetFlowCompletion(ctx, flow.ID, info)
	})
	if err != nil {
		if errors.Is(err, store.ErrStaleUpdate) {
			return nil, fmt.Errorf("%w: flow resolved concurrently", ErrConflict)
		}
		return nil, fmt.Errorf("complete flow: %w", err)
	}
	flow.Status = model.FlowCompleted
	flow.Completion = &info

	o.notifier.FlowCompleted(ctx, flow)
	o.log.Info("flow completed", "flow", flow.ID, "shared_contact", info.SharedContact)
	return flow, nil
}

func (o *Orchestrator) failFlow(ctx context.Context, flow *model.IntroductionFlow, step *model.IntroductionStep) (*model.IntroductionFlow, error) {
	err := o.store.UpdateFlowStatus(ctx, flow.ID,
		[]model.FlowStatus{model.FlowInProgress}, model.FlowFailed)
	if err != nil {
		if errors.Is(err, store.ErrStaleUpdate) {
			return nil, fmt.Errorf("%w: flow resolved concurrently", ErrConflict)
		}
		return nil, fmt.Errorf("fail flow: %w", err)
	}
	flow.Status = model.FlowFailed

	o.notifier.StepDeclined(ctx, flow, step)
	o.notifier.FlowFailed(ctx, flow, fmt.Sprintf("declined at step %d", step.StepNumber))
	o.log.Info("flow failed", "flow", flow.ID, "declined_step", step.StepNumber)
	return flow, nil
}

// displayNames resolves user IDs to names via the requester's own network,
// falling back to the raw ID for anyone the requester has no node for.
func (o *Orchestrator) displayNames(ctx context.Context, flow *model.IntroductionFlow) (func(string) string, error) {
	nodes, err := o.store.ListNodes(ctx, flow.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	byUser := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n.TargetUserID != "" && n.DisplayName != "" {
			byUser[n.TargetUserID] = n.DisplayName
		}
	}
	return func(userID string) string {
		if name, ok := byUser[userID]; ok {
			return name
		}
		return userID
	}, nil
}

func validatePath(p StartParams) error {
	if len(p.Path) < 2 {
		return fmt.Errorf("%w: need at least requester and target", ErrBadPath)
	}
	if p.Path[0] != p.RequesterID {
		return fmt.Errorf("%w: path must start with the requester", ErrBadPath)
	}
	seen := make(map[string]struct{}, len(p.Path))
	for _, id := range p.Path {
		if id == "" {
			return fmt.Errorf("%w: empty path entry", ErrBadPath)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate path entry %s", ErrBadPath, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
