package model

import "time"

// FlowStatus is the state of an introduction workflow.
type FlowStatus string

const (
	FlowDraft      FlowStatus = "draft"
	FlowPending    FlowStatus = "pending"
	FlowInProgress FlowStatus = "in_progress"
	FlowCompleted  FlowStatus = "completed"
	FlowFailed     FlowStatus = "failed"
	FlowExpired    FlowStatus = "expired"
	FlowCancelled  FlowStatus = "cancelled"
)

// String returns the string representation of the flow status.
func (s FlowStatus) String() string {
	return string(s)
}

// IsValid checks whether the flow status is a known value.
func (s FlowStatus) IsValid() bool {
	switch s {
	case FlowDraft, FlowPending, FlowInProgress, FlowCompleted,
		FlowFailed, FlowExpired, FlowCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s FlowStatus) IsTerminal() bool {
	switch s {
	case FlowCompleted, FlowFailed, FlowExpired, FlowCancelled:
		return true
	}
	return false
}

// ResponseStatus is the outcome of one introduction step.
type ResponseStatus string

const (
	ResponseAccepted ResponseStatus = "accepted"
	ResponseDeclined ResponseStatus = "declined"
)

// IsValid checks whether the response status is a known value.
func (s ResponseStatus) IsValid() bool {
	return s == ResponseAccepted || s == ResponseDeclined
}

// StepRequest is the outgoing side of one hop: the forwarded ask.
type StepRequest struct {
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StepResponse records the intermediary's decision. A step is terminal once
// a response exists.
type StepResponse struct {
	Status      ResponseStatus `json:"status"`
	Message     string         `json:"message,omitempty"`
	RespondedAt time.Time      `json:"responded_at"`
}

// IntroductionStep is one hop of a flow: fromUser asks toUser to forward the
// introduction one link down the chain.
type IntroductionStep struct {
	StepNumber int    `json:"step_number"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`

	// Request is populated when the step is dispatched; nil before then.
	Request  *StepRequest  `json:"request,omitempty"`
	Response *StepResponse `json:"response,omitempty"`

	ReminderSent  bool `json:"reminder_sent"`
	ReminderCount int  `json:"reminder_count"`
}

// CompletionInfo is the terminal payload of a completed flow.
type CompletionInfo struct {
	Message       string    `json:"message,omitempty"`
	SharedContact string    `json:"shared_contact,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// IntroductionFlow is one multi-hop, consent-gated workflow walking a chosen
// path one relationship at a time.
//
// Invariants: len(Steps) == len(Path)-1; 0 <= CurrentStep < len(Steps) while
// the flow is active; step i+1 is never dispatched before step i's response
// is recorded as accepted.
type IntroductionFlow struct {
	ID            string `json:"id"`
	PathRequestID string `json:"path_request_id,omitempty"`
	RequesterID   string `json:"requester_id"`
	TargetNodeID  string `json:"target_node_id,omitempty"`

	// Path is the ordered list of user IDs along the chosen path,
	// starting with the requester.
	Path []string `json:"path"`

	CurrentStep int                 `json:"current_step"`
	Status      FlowStatus          `json:"status"`
	Steps       []*IntroductionStep `json:"steps"`

	Completion *CompletionInfo `json:"completion,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Step returns the step with the given number, or nil when out of range.
func (f *IntroductionFlow) Step(n int) *IntroductionStep {
	if n < 0 || n >= len(f.Steps) {
		return nil
	}
	return f.Steps[n]
}
