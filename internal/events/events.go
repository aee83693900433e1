package events

import (
	"context"

	"github.com/groblegark/warmpath/internal/model"
)

// Event topic constants
const (
	TopicNetworkImported = "warmpath.network.imported"
	TopicSearchCompleted = "warmpath.search.completed"

	// Flow lifecycle events
	TopicFlowStarted   = "warmpath.flow.started"
	TopicFlowCompleted = "warmpath.flow.completed"
	TopicFlowFailed    = "warmpath.flow.failed"
	TopicFlowExpired   = "warmpath.flow.expired"
	TopicFlowCancelled = "warmpath.flow.cancelled"

	// Step events (consumed by notification delivery and `wp watch`).
	TopicStepRequested = "warmpath.step.requested"
	TopicStepAccepted  = "warmpath.step.accepted"
	TopicStepDeclined  = "warmpath.step.declined"
	TopicStepReminder  = "warmpath.step.reminder"
)

// Event types

type NetworkImported struct {
	OwnerID     string `json:"owner_id"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
}

type SearchCompleted struct {
	Request *model.PathRequest `json:"request"`
	Results int                `json:"results"`
}

type FlowStarted struct {
	Flow *model.IntroductionFlow `json:"flow"`
}

type FlowCompleted struct {
	Flow *model.IntroductionFlow `json:"flow"`
}

type FlowFailed struct {
	Flow   *model.IntroductionFlow `json:"flow"`
	Reason string                  `json:"reason,omitempty"`
}

type FlowExpired struct {
	FlowID      string `json:"flow_id"`
	RequesterID string `json:"requester_id"`
}

type FlowCancelled struct {
	FlowID      string `json:"flow_id"`
	RequesterID string `json:"requester_id"`
}

type StepRequested struct {
	FlowID     string `json:"flow_id"`
	StepNumber int    `json:"step_number"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Message    string `json:"message"`
}

type StepAccepted struct {
	FlowID     string `json:"flow_id"`
	StepNumber int    `json:"step_number"`
	ByUserID   string `json:"by_user_id"`
	Message    string `json:"message,omitempty"`
}

type StepDeclined struct {
	FlowID     string `json:"flow_id"`
	StepNumber int    `json:"step_number"`
	ByUserID   string `json:"by_user_id"`
	Message    string `json:"message,omitempty"`
}

type StepReminder struct {
	FlowID     string `json:"flow_id"`
	StepNumber int    `json:"step_number"`
	ToUserID   string `json:"to_user_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
