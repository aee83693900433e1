package intro

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/notify"
)

type recordPublisher struct {
	topics []string
}

func (p *recordPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordPublisher) Close() error { return nil }

func (p *recordPublisher) count(topic string) int {
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func testOrchestrator(t *testing.T) (*Orchestrator, *memStore, *recordPublisher) {
	t.Helper()
	st := newMemStore()
	pub := &recordPublisher{}
	log := slog.New(slog.DiscardHandler)
	o := NewOrchestrator(st, notify.New(pub, log), log)
	return o, st, pub
}

func startThreeHop(t *testing.T, o *Orchestrator) *model.IntroductionFlow {
	t.Helper()
	flow, err := o.Start(context.Background(), StartParams{
		RequesterID: "user-a",
		Path:        []string{"user-a", "user-b", "user-c"},
		Message:     "we met at the conference",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return flow
}

func TestStartDispatchesFirstStep(t *testing.T) {
	o, st, pub := testOrchestrator(t)
	flow := startThreeHop(t, o)

	if flow.Status != model.FlowInProgress {
		t.Errorf("status = %s, want in_progress", flow.Status)
	}
	if flow.CurrentStep != 0 {
		t.Errorf("current step = %d, want 0", flow.CurrentStep)
	}
	if len(flow.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(flow.Steps))
	}
	if flow.Steps[0].Request == nil {
		t.Fatal("step 0 not dispatched")
	}
	if !strings.Contains(flow.Steps[0].Request.Message, "we met at the conference") {
		t.Errorf("note missing from step 0 message: %q", flow.Steps[0].Request.Message)
	}
	if flow.Steps[1].Request != nil {
		t.Error("step 1 dispatched prematurely")
	}

	wantExpiry := flow.CreatedAt.Add(FlowTTL)
	if !flow.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires at %v, want %v", flow.ExpiresAt, wantExpiry)
	}

	stored, err := st.GetFlow(context.Background(), flow.ID)
	if err != nil {
		t.Fatalf("GetFlow: %v", err)
	}
	if stored.Status != model.FlowInProgress || stored.Steps[0].Request == nil {
		t.Error("dispatch not persisted")
	}

	for _, topic := range []string{"warmpath.flow.started", "warmpath.step.requested"} {
		if pub.count(topic) != 1 {
			t.Errorf("topic %s published %d times, want 1", topic, pub.count(topic))
		}
	}
}

func TestRespondAcceptAdvances(t *testing.T) {
	o, _, pub := testOrchestrator(t)
	flow := startThreeHop(t, o)
	ctx := context.Background()

	flow, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseAccepted, "happy to")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if flow.Status != model.FlowInProgress {
		t.Errorf("status = %s, want in_progress", flow.Status)
	}
	if flow.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", flow.CurrentStep)
	}
	if flow.Steps[1].Request == nil {
		t.Fatal("step 1 not dispatched after acceptance")
	}
	if flow.Steps[1].ToUserID != "user-c" {
		t.Errorf("step 1 recipient = %s, want user-c", flow.Steps[1].ToUserID)
	}
	if pub.count("warmpath.step.accepted") != 1 {
		t.Error("acceptance not published")
	}
	if pub.count("warmpath.step.requested") != 2 {
		t.Errorf("step requests published %d times, want 2", pub.count("warmpath.step.requested"))
	}
}

func TestFinalAcceptCompletes(t *testing.T) {
	o, st, pub := testOrchestrator(t)
	flow := startThreeHop(t, o)
	ctx := context.Background()

	if _, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseAccepted, ""); err != nil {
		t.Fatalf("step 0: %v", err)
	}
	flow, err := o.Respond(ctx, flow.ID, 1, "user-c", model.ResponseAccepted, "glad to connect")
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if flow.Status != model.FlowCompleted {
		t.Errorf("status = %s, want completed", flow.Status)
	}
	if flow.Completion == nil {
		t.Fatal("completion info missing")
	}
	if flow.Completion.SharedContact != "user-c" {
		t.Errorf("shared contact = %s, want user-c", flow.Completion.SharedContact)
	}
	if flow.Completion.Message != "glad to connect" {
		t.Errorf("completion message = %q", flow.Completion.Message)
	}

	stored, _ := st.GetFlow(ctx, flow.ID)
	if stored.Status != model.FlowCompleted || stored.Completion == nil {
		t.Error("completion not persisted")
	}
	if pub.count("warmpath.flow.completed") != 1 {
		t.Error("completion not published")
	}
}

func TestDeclineFailsWholeFlow(t *testing.T) {
	o, st, pub := testOrchestrator(t)
	flow := startThreeHop(t, o)
	ctx := context.Background()

	flow, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseDeclined, "not comfortable")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if flow.Status != model.FlowFailed {
		t.Errorf("status = %s, want failed", flow.Status)
	}

	stored, _ := st.GetFlow(ctx, flow.ID)
	if stored.Steps[1].Request != nil {
		t.Error("step 1 dispatched after a decline")
	}
	if pub.count("warmpath.step.declined") != 1 || pub.count("warmpath.flow.failed") != 1 {
		t.Error("decline events not published")
	}

	// The flow is terminal; nothing further can be recorded.
	_, err = o.Respond(ctx, flow.ID, 1, "user-c", model.ResponseAccepted, "")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("respond on failed flow: err = %v, want ErrInvalidState", err)
	}
}

func TestRespondWrongResponder(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	flow := startThreeHop(t, o)

	_, err := o.Respond(context.Background(), flow.ID, 0, "user-z", model.ResponseAccepted, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRespondNonCurrentStep(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	flow := startThreeHop(t, o)

	// Step 1 has not been dispatched yet.
	_, err := o.Respond(context.Background(), flow.ID, 1, "user-c", model.ResponseAccepted, "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRespondAlreadyAdvanced(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	flow := startThreeHop(t, o)
	ctx := context.Background()

	if _, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseAccepted, ""); err != nil {
		t.Fatalf("first respond: %v", err)
	}
	// A second decision on step 0 arrives after the flow moved on.
	_, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseDeclined, "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRespondUnknownFlow(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	_, err := o.Respond(context.Background(), "intro-missing", 0, "user-b", model.ResponseAccepted, "")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestCancel(t *testing.T) {
	o, _, pub := testOrchestrator(t)
	flow := startThreeHop(t, o)
	ctx := context.Background()

	flow, err := o.Cancel(ctx, flow.ID, "user-a")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if flow.Status != model.FlowCancelled {
		t.Errorf("status = %s, want cancelled", flow.Status)
	}
	if pub.count("warmpath.flow.cancelled") != 1 {
		t.Error("cancellation not published")
	}
}

func TestCancelByNonRequester(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	flow := startThreeHop(t, o)

	_, err := o.Cancel(context.Background(), flow.ID, "user-b")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCancelTerminalFlow(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	flow := startThreeHop(t, o)
	ctx := context.Background()

	if _, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseDeclined, ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	_, err := o.Cancel(ctx, flow.ID, "user-a")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestStartBadPath(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    StartParams
	}{
		{"too short", StartParams{RequesterID: "user-a", Path: []string{"user-a"}}},
		{"wrong head", StartParams{RequesterID: "user-a", Path: []string{"user-b", "user-c"}}},
		{"empty entry", StartParams{RequesterID: "user-a", Path: []string{"user-a", ""}}},
		{"duplicate entry", StartParams{RequesterID: "user-a", Path: []string{"user-a", "user-b", "user-a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := o.Start(ctx, tt.p); !errors.Is(err, ErrBadPath) {
				t.Errorf("err = %v, want ErrBadPath", err)
			}
		})
	}
}

func TestStepMessagesUseNetworkNames(t *testing.T) {
	o, st, _ := testOrchestrator(t)
	ctx := context.Background()
	st.nodes["user-a"] = []*model.Node{
		{ID: "node-a", OwnerID: "user-a", Kind: model.NodeUser, TargetUserID: "user-a", DisplayName: "Ana"},
		{ID: "node-b", OwnerID: "user-a", Kind: model.NodeUser, TargetUserID: "user-b", DisplayName: "Bo"},
		{ID: "node-c", OwnerID: "user-a", Kind: model.NodeUser, TargetUserID: "user-c", DisplayName: "Cleo"},
	}

	flow := startThreeHop(t, o)
	msg := flow.Steps[0].Request.Message
	if !strings.Contains(msg, "Ana") || !strings.Contains(msg, "Cleo") {
		t.Errorf("resolved names missing from message: %q", msg)
	}

	flow, err := o.Respond(ctx, flow.ID, 0, "user-b", model.ResponseAccepted, "")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	relay := flow.Steps[1].Request.Message
	if !strings.Contains(relay, "Bo is relaying") {
		t.Errorf("relay message should name the forwarder: %q", relay)
	}
}

func TestStepRequestExpiryMatchesFlow(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	flow := startThreeHop(t, o)
	if !flow.Steps[0].Request.ExpiresAt.Equal(flow.ExpiresAt) {
		t.Errorf("step expiry %v, want flow expiry %v",
			flow.Steps[0].Request.ExpiresAt, flow.ExpiresAt)
	}
}
