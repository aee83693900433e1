package model

import "time"

// NodeKind distinguishes registered users from imported contacts.
type NodeKind string

const (
	NodeUser    NodeKind = "user"
	NodeContact NodeKind = "contact"
)

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	return string(k)
}

// IsValid checks whether the node kind is a known value.
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeUser, NodeContact:
		return true
	}
	return false
}

// AttributeSource records where estimated attributes came from.
type AttributeSource string

const (
	SourceProfile        AttributeSource = "profile"
	SourceCommonContacts AttributeSource = "common_contacts"
	SourcePattern        AttributeSource = "pattern"
)

// IsValid checks whether the attribute source is a known value.
func (s AttributeSource) IsValid() bool {
	switch s {
	case SourceProfile, SourceCommonContacts, SourcePattern:
		return true
	}
	return false
}

// EstimatedAttributes holds inferred facts about a node, with a confidence
// score for how reliable the inference is.
type EstimatedAttributes struct {
	Company    string          `json:"company,omitempty"`
	School     string          `json:"school,omitempty"`
	Role       string          `json:"role,omitempty"`
	Location   string          `json:"location,omitempty"`
	Confidence int             `json:"confidence"` // 0-100
	Source     AttributeSource `json:"source,omitempty"`
}

// Node is one vertex in a single owner's relationship graph. Nodes are owned
// exclusively by the owner's network view and are rebuilt wholesale when the
// owner's network is regenerated; they are never shared across owners.
type Node struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"owner_id"`
	Kind         NodeKind `json:"kind"`
	TargetUserID string   `json:"target_user_id,omitempty"` // set when Kind == NodeUser
	DisplayName  string   `json:"display_name"`

	Estimated *EstimatedAttributes `json:"estimated,omitempty"`

	// Layer is the hop-count distance from the owner at build time;
	// 0 is the owner's own node.
	Layer int `json:"layer"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NetworkStats holds aggregate counts for one owner's network map.
type NetworkStats struct {
	TotalNodes       int `json:"total_nodes"`
	TotalConnections int `json:"total_connections"`
	AvgStrength      int `json:"avg_strength"`
	RegisteredUsers  int `json:"registered_users"`
	ImportedContacts int `json:"imported_contacts"`
	InactiveEdges    int `json:"inactive_edges"`
}

// NetworkMap is the response shape for the network map endpoint.
type NetworkMap struct {
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
	Stats       *NetworkStats `json:"stats"`
}
