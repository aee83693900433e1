package store

import (
	"context"
	"errors"
	"time"

	"github.com/groblegark/warmpath/internal/model"
)

// ErrStaleUpdate is returned by conditional updates when the row no longer
// satisfies the guard: the flow moved on, the step was already resolved, or
// a concurrent writer got there first. Missing rows are reported as
// sql.ErrNoRows by all implementations.
var ErrStaleUpdate = errors.New("store: guarded update matched no row")

// ReminderStep identifies a dispatched, unanswered step nearing expiry.
type ReminderStep struct {
	FlowID     string
	StepNumber int
	FromUserID string
	ToUserID   string
	ExpiresAt  time.Time
}

// Store defines the persistence interface for warmpath.
type Store interface {
	// Network
	ListOwners(ctx context.Context) ([]string, error)
	ReplaceNetwork(ctx context.Context, ownerID string, nodes []*model.Node, conns []*model.Connection) error
	ListNodes(ctx context.Context, ownerID string) ([]*model.Node, error)
	GetNode(ctx context.Context, id string) (*model.Node, error)
	UpsertNode(ctx context.Context, node *model.Node) error
	ListConnections(ctx context.Context, ownerID string) ([]*model.Connection, error)
	GetConnection(ctx context.Context, id string) (*model.Connection, error)
	CreateConnection(ctx context.Context, conn *model.Connection) error
	UpdateConnectionStrength(ctx context.Context, id string, strength int) error
	DeactivateConnection(ctx context.Context, id string) error
	NetworkStats(ctx context.Context, ownerID string) (*model.NetworkStats, error)

	// Path requests
	CreatePathRequest(ctx context.Context, req *model.PathRequest) error
	GetPathRequest(ctx context.Context, id string) (*model.PathRequest, error)
	ListPathRequests(ctx context.Context, ownerID string, limit int) ([]*model.PathRequest, error)
	UpdatePathRequestStatus(ctx context.Context, id string, status model.RequestStatus, processedAt *time.Time) error
	SavePathResults(ctx context.Context, requestID string, results []*model.PathResult) error
	ListPathResults(ctx context.Context, requestID string) ([]*model.PathResult, error)

	// Introduction flows
	CreateFlow(ctx context.Context, flow *model.IntroductionFlow) error
	GetFlow(ctx context.Context, id string) (*model.IntroductionFlow, error)
	ListFlowsByUser(ctx context.Context, userID string) ([]*model.IntroductionFlow, error)
	// MarkStepDispatched records the request sent for a step and advances
	// the flow to that step, guarded on the flow still being active.
	MarkStepDispatched(ctx context.Context, flowID string, stepNumber int, req model.StepRequest) error
	// RecordStepResponse writes a response, guarded on the flow being
	// active at exactly this step with the step still unanswered.
	RecordStepResponse(ctx context.Context, flowID string, stepNumber int, resp model.StepResponse) error
	// UpdateFlowStatus moves a flow to status, guarded on its current
	// status being one of from.
	UpdateFlowStatus(ctx context.Context, flowID string, from []model.FlowStatus, to model.FlowStatus) error
	SetFlowCompletion(ctx context.Context, flowID string, info model.CompletionInfo) error
	// ExpireFlows transitions every overdue non-terminal flow to expired
	// and returns the flows transitioned by this call only.
	ExpireFlows(ctx context.Context, now time.Time) ([]*model.IntroductionFlow, error)
	ListReminderSteps(ctx context.Context, now time.Time, window time.Duration) ([]*ReminderStep, error)
	MarkReminderSent(ctx context.Context, flowID string, stepNumber int) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
