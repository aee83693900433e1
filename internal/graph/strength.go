package graph

import (
	"time"

	"github.com/groblegark/warmpath/internal/model"
)

// Factor caps for connection strength scoring.
const (
	mutualScore        = 40
	sharedGroupUnit    = 10
	sharedGroupCap     = 20
	sharedNeighborUnit = 10
	sharedNeighborCap  = 30
)

// StrengthFactors breaks a strength score into its independent components.
type StrengthFactors struct {
	Mutual            int `json:"mutual"`             // 0 or 40
	SharedGroups      int `json:"shared_groups"`      // 0-20
	Recency           int `json:"recency"`            // 0-10
	SharedConnections int `json:"shared_connections"` // 0-30
}

// Total sums the factors, clamped into [0,100].
func (f StrengthFactors) Total() int {
	return model.ClampStrength(f.Mutual + f.SharedGroups + f.Recency + f.SharedConnections)
}

// ScoreConnection computes a connection's strength factors at time now.
// commonNeighbors is the number of nodes adjacent to both endpoints in the
// owner's graph (see Graph.CommonNeighborCount). Scoring is a pure function:
// recomputing with unchanged inputs yields the same score.
func ScoreConnection(c *model.Connection, commonNeighbors int, now time.Time) StrengthFactors {
	f := StrengthFactors{}

	if c.IsMutual {
		f.Mutual = mutualScore
	}

	if c.Context != nil {
		f.SharedGroups = c.Context.SharedGroupCount * sharedGroupUnit
		if f.SharedGroups > sharedGroupCap {
			f.SharedGroups = sharedGroupCap
		}
		if c.Context.LastInteractionAt != nil {
			f.Recency = recencyScore(now.Sub(*c.Context.LastInteractionAt))
		}
	}

	f.SharedConnections = commonNeighbors * sharedNeighborUnit
	if f.SharedConnections > sharedNeighborCap {
		f.SharedConnections = sharedNeighborCap
	}

	return f
}

// recencyScore maps the time since the last recorded interaction to a 0-10
// score with weekly/monthly/quarterly cutoffs.
func recencyScore(since time.Duration) int {
	days := int(since.Hours() / 24)
	switch {
	case days < 7:
		return 10
	case days < 30:
		return 7
	case days < 90:
		return 4
	default:
		return 0
	}
}
