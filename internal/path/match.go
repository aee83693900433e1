package path

import (
	"fmt"
	"strings"

	"github.com/groblegark/warmpath/internal/model"
)

// Confidence weights per criteria category. Keywords carry no weight of
// their own; a keyword-only search scores a flat 50.
const (
	companyWeight = 40
	schoolWeight  = 30
	roleWeight    = 30

	keywordOnlyConfidence = 50
)

// matches reports whether a node satisfies the search criteria. Categories
// are checked in a fixed order (companies, schools, roles, keywords) and the
// first hit decides: a node never needs to satisfy more than one category.
func matches(n *model.Node, c model.SearchCriteria) bool {
	if c.IsEmpty() {
		return false
	}
	est := n.Estimated
	if est != nil {
		if containsAny(est.Company, c.Companies) {
			return true
		}
		if containsAny(est.School, c.Schools) {
			return true
		}
	}
	if len(c.Roles) > 0 {
		if est != nil && containsAny(est.Role, c.Roles) {
			return true
		}
		if containsAny(n.DisplayName, c.Roles) {
			return true
		}
	}
	for _, kw := range c.Keywords {
		if containsTerm(n.DisplayName, kw) {
			return true
		}
		if est != nil && (containsTerm(est.Company, kw) || containsTerm(est.Role, kw)) {
			return true
		}
	}
	return false
}

// matchedCriteria lists every criterion the node satisfies, across all
// categories, for display on the result target.
func matchedCriteria(n *model.Node, c model.SearchCriteria) []string {
	var out []string
	est := n.Estimated
	if est != nil {
		for _, term := range c.Companies {
			if containsTerm(est.Company, term) {
				out = append(out, fmt.Sprintf("company: %s", term))
			}
		}
		for _, term := range c.Schools {
			if containsTerm(est.School, term) {
				out = append(out, fmt.Sprintf("school: %s", term))
			}
		}
	}
	for _, term := range c.Roles {
		if containsTerm(n.DisplayName, term) || (est != nil && containsTerm(est.Role, term)) {
			out = append(out, fmt.Sprintf("role: %s", term))
		}
	}
	for _, term := range c.Keywords {
		if containsTerm(n.DisplayName, term) ||
			(est != nil && (containsTerm(est.Company, term) || containsTerm(est.Role, term))) {
			out = append(out, fmt.Sprintf("keyword: %s", term))
		}
	}
	return out
}

// confidence scores how well a node matches the criteria, 0-100. Each
// weighted category searched contributes its weight when the node matches
// it; the sum is normalized to the weights actually in play, so a node
// matching every searched category always scores 100. A search with no
// weighted categories at all scores a flat 50.
func confidence(n *model.Node, c model.SearchCriteria) int {
	est := n.Estimated

	score, max := 0, 0
	if len(c.Companies) > 0 {
		max += companyWeight
		if est != nil && containsAny(est.Company, c.Companies) {
			score += companyWeight
		}
	}
	if len(c.Schools) > 0 {
		max += schoolWeight
		if est != nil && containsAny(est.School, c.Schools) {
			score += schoolWeight
		}
	}
	if len(c.Roles) > 0 {
		max += roleWeight
		if containsAny(n.DisplayName, c.Roles) || (est != nil && containsAny(est.Role, c.Roles)) {
			score += roleWeight
		}
	}
	if max == 0 {
		return keywordOnlyConfidence
	}
	return (score*100 + max/2) / max
}

// containsAny reports whether value contains any of the terms,
// case-insensitively. Empty values and empty term lists never match.
func containsAny(value string, terms []string) bool {
	for _, t := range terms {
		if containsTerm(value, t) {
			return true
		}
	}
	return false
}

func containsTerm(value, term string) bool {
	if value == "" || term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(term))
}
