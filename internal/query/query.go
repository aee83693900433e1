// Package query parses free-form search strings into structured criteria.
//
// The syntax is a flat list of terms. A term with a recognized prefix binds
// to that category ("company:initech", "school:\"state university\"",
// "role:engineer"); anything else is a keyword. Values with spaces are
// double-quoted.
package query

import (
	"strings"

	"github.com/groblegark/warmpath/internal/model"
)

// Parse splits q into search criteria. An empty or all-whitespace query
// yields empty criteria.
func Parse(q string) model.SearchCriteria {
	var c model.SearchCriteria
	for _, tok := range tokenize(q) {
		prefix, value, found := strings.Cut(tok, ":")
		if !found || value == "" {
			c.Keywords = append(c.Keywords, unquote(tok))
			continue
		}
		value = unquote(value)
		switch strings.ToLower(prefix) {
		case "company":
			c.Companies = append(c.Companies, value)
		case "school":
			c.Schools = append(c.Schools, value)
		case "role":
			c.Roles = append(c.Roles, value)
		default:
			c.Keywords = append(c.Keywords, unquote(tok))
		}
	}
	return c
}

// tokenize splits on whitespace, keeping double-quoted spans intact.
func tokenize(q string) []string {
	var (
		out      []string
		current  strings.Builder
		inQuotes bool
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return out
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}
