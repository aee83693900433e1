// Package client provides a transport-agnostic interface for the warmpath
// service and an HTTP/JSON implementation that talks to the REST API.
package client

import (
	"context"

	"github.com/groblegark/warmpath/internal/model"
)

// WarmpathClient is the interface all warmpath CLI commands use to
// communicate with the server. It is implemented by HTTPClient and can be
// backed by any transport.
type WarmpathClient interface {
	// Network
	ImportNetwork(ctx context.Context, ownerID string, req *ImportNetworkRequest) (*ImportNetworkResponse, error)
	GetNetworkMap(ctx context.Context, ownerID string) (*model.NetworkMap, error)
	CreateConnection(ctx context.Context, ownerID string, req *CreateConnectionRequest) (*model.Connection, error)
	DeactivateConnection(ctx context.Context, ownerID, connID string) error
	RecalculateStrengths(ctx context.Context, ownerID string) (int, error)

	// Path searches
	RunSearch(ctx context.Context, req *RunSearchRequest) (*model.PathRequest, error)
	GetSearch(ctx context.Context, id string) (*model.PathRequest, error)
	ListSearches(ctx context.Context, ownerID string, limit int) ([]*model.PathRequest, error)

	// Introductions
	StartIntroduction(ctx context.Context, req *StartIntroductionRequest) (*model.IntroductionFlow, error)
	GetIntroduction(ctx context.Context, id string) (*model.IntroductionFlow, error)
	ListIntroductions(ctx context.Context, userID string) ([]*model.IntroductionFlow, error)
	RespondToStep(ctx context.Context, flowID string, req *RespondRequest) (*model.IntroductionFlow, error)
	CancelIntroduction(ctx context.Context, flowID, requesterID string) (*model.IntroductionFlow, error)
	Sweep(ctx context.Context) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// ImportNetworkRequest replaces an owner's network wholesale.
type ImportNetworkRequest struct {
	Nodes       []*model.Node       `json:"nodes"`
	Connections []*model.Connection `json:"connections,omitempty"`
}

// ImportNetworkResponse reports what was written.
type ImportNetworkResponse struct {
	Nodes       int `json:"nodes"`
	Connections int `json:"connections"`
}

// CreateConnectionRequest holds parameters for creating a connection. When
// Strength is nil the server scores the edge itself.
type CreateConnectionRequest struct {
	FromNodeID string                   `json:"from_node_id"`
	ToNodeID   string                   `json:"to_node_id"`
	Type       string                   `json:"type"`
	Strength   *int                     `json:"strength,omitempty"`
	IsMutual   bool                     `json:"is_mutual"`
	Context    *model.ConnectionContext `json:"context,omitempty"`
}

// RunSearchRequest holds parameters for a path search. Criteria may be
// supplied directly or extracted server-side from the free-form query.
type RunSearchRequest struct {
	OwnerID  string                `json:"owner_id"`
	Query    string                `json:"query,omitempty"`
	Criteria *model.SearchCriteria `json:"criteria,omitempty"`
	Config   *model.SearchConfig   `json:"config,omitempty"`
}

// StartIntroductionRequest holds parameters for starting an introduction flow.
type StartIntroductionRequest struct {
	RequesterID   string   `json:"requester_id"`
	TargetNodeID  string   `json:"target_node_id,omitempty"`
	PathRequestID string   `json:"path_request_id,omitempty"`
	Path          []string `json:"path"`
	Message       string   `json:"message,omitempty"`
}

// RespondRequest holds parameters for responding to an introduction step.
type RespondRequest struct {
	StepNumber  int    `json:"step_number"`
	ResponderID string `json:"responder_id"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}
