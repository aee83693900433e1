package model

import "time"

// RequestStatus tracks a path search job through its synchronous pipeline.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestProcessing RequestStatus = "processing"
	RequestCompleted  RequestStatus = "completed"
	RequestFailed     RequestStatus = "failed"
)

// String returns the string representation of the request status.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid checks whether the request status is a known value.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestProcessing, RequestCompleted, RequestFailed:
		return true
	}
	return false
}

// SearchCriteria is the parsed form of a search query. Each list is a set of
// case-insensitive substring terms; a node qualifies as soon as any one
// category matches.
type SearchCriteria struct {
	Companies []string `json:"companies,omitempty"`
	Schools   []string `json:"schools,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// IsEmpty reports whether no search terms were supplied at all.
func (c SearchCriteria) IsEmpty() bool {
	return len(c.Companies) == 0 && len(c.Schools) == 0 &&
		len(c.Roles) == 0 && len(c.Keywords) == 0
}

// SearchConfig bounds a path search.
type SearchConfig struct {
	MaxDepth        int  `json:"max_depth"`        // >= 1
	MaxResults      int  `json:"max_results"`      // >= 1
	MinConfidence   int  `json:"min_confidence"`   // 0-100
	IncludeContacts bool `json:"include_contacts"` // include unregistered contacts as targets
}

// DefaultSearchConfig returns the config applied when a caller supplies none.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxDepth:        3,
		MaxResults:      10,
		MinConfidence:   0,
		IncludeContacts: true,
	}
}

// PathRequest is one search job. It is immutable once created except for its
// result set and status.
type PathRequest struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	Query    string         `json:"query,omitempty"` // original free-form query, if any
	Criteria SearchCriteria `json:"criteria"`
	Config   SearchConfig   `json:"config"`

	Status  RequestStatus `json:"status"`
	Results []*PathResult `json:"results,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PathNode is one hop along a found path. Strength is the strength of the
// edge traversed into this node; the owner node carries a synthetic 100.
type PathNode struct {
	NodeID   string `json:"node_id"`
	UserID   string `json:"user_id,omitempty"` // set for registered users
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Role     string `json:"role,omitempty"`
	Strength int    `json:"strength"`
	IsUser   bool   `json:"is_user"`
}

// PathTarget describes the terminal node of a path result.
type PathTarget struct {
	NodeID          string   `json:"node_id"`
	UserID          string   `json:"user_id,omitempty"`
	Name            string   `json:"name"`
	Company         string   `json:"company,omitempty"`
	Role            string   `json:"role,omitempty"`
	MatchedCriteria []string `json:"matched_criteria,omitempty"`
}

// PathResult is one candidate answer to a path search.
type PathResult struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`

	Path  []PathNode `json:"path"`
	Depth int        `json:"depth"` // len(Path) - 1

	Confidence   int `json:"confidence"`    // 0-100 criteria-match quality
	PathStrength int `json:"path_strength"` // 0-100 traversal quality

	Target PathTarget `json:"target"`

	// Rank is 1-based, assigned by the ranker; 0 until ranking runs.
	Rank int `json:"rank"`
}
