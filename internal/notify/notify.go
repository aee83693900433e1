// Package notify turns workflow transitions into bus events and
// human-readable messages for the people who must act on them.
package notify

import (
	"context"
	"log/slog"

	"github.com/groblegark/warmpath/internal/events"
	"github.com/groblegark/warmpath/internal/model"
)

// Notifier publishes workflow notifications. Delivery is best-effort: a
// failed publish is logged and swallowed so a flaky bus never rolls back a
// state transition that already committed.
type Notifier struct {
	pub events.Publisher
	log *slog.Logger
}

// New returns a Notifier over the given publisher.
func New(pub events.Publisher, log *slog.Logger) *Notifier {
	return &Notifier{pub: pub, log: log}
}

func (n *Notifier) publish(ctx context.Context, topic string, event any) {
	if err := n.pub.Publish(ctx, topic, event); err != nil {
		n.log.Warn("publish failed", "topic", topic, "error", err)
	}
}

// FlowStarted announces a new flow entering its pending state.
func (n *Notifier) FlowStarted(ctx context.Context, flow *model.IntroductionFlow) {
	n.publish(ctx, events.TopicFlowStarted, events.FlowStarted{Flow: flow})
}

// StepRequested notifies a step's recipient that an introduction request is
// waiting on them.
func (n *Notifier) StepRequested(ctx context.Context, flow *model.IntroductionFlow, step *model.IntroductionStep) {
	msg := ""
	if step.Request != nil {
		msg = step.Request.Message
	}
	n.publish(ctx, events.TopicStepRequested, events.StepRequested{
		FlowID:     flow.ID,
		StepNumber: step.StepNumber,
		FromUserID: step.FromUserID,
		ToUserID:   step.ToUserID,
		Message:    msg,
	})
}

// StepAccepted notifies the requester that an intermediary agreed to
// forward the introduction.
func (n *Notifier) StepAccepted(ctx context.Context, flow *model.IntroductionFlow, step *model.IntroductionStep) {
	ev := events.StepAccepted{
		FlowID:     flow.ID,
		StepNumber: step.StepNumber,
		ByUserID:   step.ToUserID,
	}
	if step.Response != nil {
		ev.Message = step.Response.Message
	}
	n.publish(ctx, events.TopicStepAccepted, ev)
}

// StepDeclined notifies the requester that the flow ended at this step.
func (n *Notifier) StepDeclined(ctx context.Context, flow *model.IntroductionFlow, step *model.IntroductionStep) {
	ev := events.StepDeclined{
		FlowID:     flow.ID,
		StepNumber: step.StepNumber,
		ByUserID:   step.ToUserID,
	}
	if step.Response != nil {
		ev.Message = step.Response.Message
	}
	n.publish(ctx, events.TopicStepDeclined, ev)
}

// FlowCompleted announces the final acceptance.
func (n *Notifier) FlowCompleted(ctx context.Context, flow *model.IntroductionFlow) {
	n.publish(ctx, events.TopicFlowCompleted, events.FlowCompleted{Flow: flow})
}

// FlowFailed announces a declined or otherwise failed flow.
func (n *Notifier) FlowFailed(ctx context.Context, flow *model.IntroductionFlow, reason string) {
	n.publish(ctx, events.TopicFlowFailed, events.FlowFailed{Flow: flow, Reason: reason})
}

// FlowExpired announces a deadline passing with no response.
func (n *Notifier) FlowExpired(ctx context.Context, flowID, requesterID string) {
	n.publish(ctx, events.TopicFlowExpired, events.FlowExpired{FlowID: flowID, RequesterID: requesterID})
}

// FlowCancelled announces a requester withdrawing their flow.
func (n *Notifier) FlowCancelled(ctx context.Context, flowID, requesterID string) {
	n.publish(ctx, events.TopicFlowCancelled, events.FlowCancelled{FlowID: flowID, RequesterID: requesterID})
}

// StepReminder nudges a recipient whose step is close to expiry.
func (n *Notifier) StepReminder(ctx context.Context, flowID string, stepNumber int, toUserID string) {
	n.publish(ctx, events.TopicStepReminder, events.StepReminder{
		FlowID:     flowID,
		StepNumber: stepNumber,
		ToUserID:   toUserID,
	})
}

// SearchCompleted announces a finished path search.
func (n *Notifier) SearchCompleted(ctx context.Context, req *model.PathRequest) {
	n.publish(ctx, events.TopicSearchCompleted, events.SearchCompleted{
		Request: req,
		Results: len(req.Results),
	})
}

// NetworkImported announces a network snapshot replacement.
func (n *Notifier) NetworkImported(ctx context.Context, ownerID string, nodes, conns int) {
	n.publish(ctx, events.TopicNetworkImported, events.NetworkImported{
		OwnerID:     ownerID,
		Nodes:       nodes,
		Connections: conns,
	})
}
