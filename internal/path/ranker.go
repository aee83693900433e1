package path

import (
	"sort"

	"github.com/groblegark/warmpath/internal/model"
)

// Composite score weights. Shorter paths and registered-user targets get a
// boost on top of match confidence and traversal strength.
const (
	confidenceWeight   = 0.4
	strengthWeight     = 0.3
	depthWeight        = 0.2
	registeredWeight   = 0.1
	registeredBonusVal = 100.0
)

// Rank filters results below minConfidence, orders the rest by composite
// score, assigns 1-based ranks, and truncates to maxResults. The sort is
// stable, so equal scores keep their discovery order. The input slice is
// not modified.
func Rank(results []*model.PathResult, minConfidence, maxResults int) []*model.PathResult {
	kept := make([]*model.PathResult, 0, len(results))
	for _, r := range results {
		if r.Confidence >= minConfidence {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return compositeScore(kept[i]) > compositeScore(kept[j])
	})

	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	for i, r := range kept {
		r.Rank = i + 1
	}
	return kept
}

// compositeScore blends match confidence, traversal strength, path depth,
// and whether the target is a registered user.
func compositeScore(r *model.PathResult) float64 {
	score := confidenceWeight*float64(r.Confidence) +
		strengthWeight*float64(r.PathStrength) +
		depthWeight*depthScore(r.Depth)
	if r.Target.UserID != "" {
		score += registeredWeight * registeredBonusVal
	}
	return score
}

// depthScore rewards shorter paths: 100 at one hop, falling linearly to 0
// at four hops and beyond.
func depthScore(depth int) float64 {
	s := float64(4-depth) / 3.0 * 100.0
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
