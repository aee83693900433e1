package model

import "time"

// ConnectionType categorizes the relationship between two nodes.
type ConnectionType string

const (
	ConnFriend     ConnectionType = "friend"
	ConnColleague  ConnectionType = "colleague"
	ConnFamily     ConnectionType = "family"
	ConnSchoolmate ConnectionType = "schoolmate"
	ConnBusiness   ConnectionType = "business"
	ConnOther      ConnectionType = "other"
)

// String returns the string representation of the connection type.
func (t ConnectionType) String() string {
	return string(t)
}

// IsValid checks whether the connection type is a known value.
func (t ConnectionType) IsValid() bool {
	switch t {
	case ConnFriend, ConnColleague, ConnFamily, ConnSchoolmate, ConnBusiness, ConnOther:
		return true
	}
	return false
}

// ConnectionSource records how a connection was established.
type ConnectionSource string

const (
	ConnSourceContact      ConnectionSource = "contact"
	ConnSourceIntroduction ConnectionSource = "introduction"
	ConnSourceInferred     ConnectionSource = "inferred"
)

// ConnectionContext carries the relationship signals that feed strength
// scoring.
type ConnectionContext struct {
	Source            ConnectionSource `json:"source,omitempty"`
	SharedGroupCount  int              `json:"shared_group_count,omitempty"`
	LastInteractionAt *time.Time       `json:"last_interaction_at,omitempty"`
	InteractionCount  int              `json:"interaction_count,omitempty"`
}

// Connection is a directed, optionally mutual relationship between two nodes
// of the same owner. Connections are soft-deleted via IsActive so history is
// preserved for re-scoring.
type Connection struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`

	// Strength is a derived 0-100 score; it is recomputed explicitly
	// whenever its underlying factors change and never drifts on its own.
	Strength int            `json:"strength"`
	Type     ConnectionType `json:"type"`

	// IsMutual makes the edge traversable in both directions during search.
	IsMutual bool `json:"is_mutual"`
	// IsActive excludes the edge from traversal when false.
	IsActive bool `json:"is_active"`

	Context *ConnectionContext `json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClampStrength forces s into the valid [0,100] strength range.
func ClampStrength(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
