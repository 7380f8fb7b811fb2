package search

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	textsearch "golang.org/x/text/search"

	"github.com/nao1215/packmap/internal/model"
)

// Hit is one control reference together with the rule it belongs to.
type Hit struct {
	RuleName    string `json:"rule_name"`
	FrameworkID string `json:"framework"`
	ControlID   string `json:"control_id"`
	Description string `json:"control_description"`
	Guidance    string `json:"control_guidance"`
	Link        string `json:"control_link"`
	Category    string `json:"category,omitempty"`
}

// Flatten returns one hit per control reference, in entry order.
func Flatten(entries []model.ConfigRuleEntry) []Hit {
	hits := make([]Hit, 0, model.ControlCount(entries))
	for _, e := range entries {
		for _, c := range e.Controls {
			hits = append(hits, Hit{
				RuleName:    e.ConfigRuleName,
				FrameworkID: c.FrameworkID,
				ControlID:   c.ControlID,
				Description: c.Description,
				Guidance:    c.Guidance,
				Link:        c.Link,
				Category:    Category(c.FrameworkID, c.ControlID),
			})
		}
	}
	return hits
}

// Query selects hits. Empty fields match everything.
type Query struct {
	// Text is split into terms; each term must occur in the rule name,
	// framework, control ID, description or guidance.
	Text string

	// Framework is compared with the framework ID, ignoring case.
	Framework string

	// Category is compared with the hit category, ignoring case.
	Category string
}

// Filter returns the hits matching q, keeping their order.
func Filter(hits []Hit, q Query) []Hit {
	fold := cases.Fold()
	framework := fold.String(strings.TrimSpace(q.Framework))
	category := fold.String(strings.TrimSpace(q.Category))

	matcher := textsearch.New(language.English, textsearch.IgnoreCase, textsearch.IgnoreDiacritics)
	terms := strings.Fields(q.Text)
	patterns := make([]*textsearch.Pattern, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, matcher.CompileString(term))
	}

	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if framework != "" && fold.String(h.FrameworkID) != framework {
			continue
		}
		if category != "" && fold.String(h.Category) != category {
			continue
		}
		if !matchesAll(h, patterns) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// matchesAll reports whether every pattern occurs in a searchable field of h.
func matchesAll(h Hit, patterns []*textsearch.Pattern) bool {
	fields := [...]string{h.RuleName, h.FrameworkID, h.ControlID, h.Description, h.Guidance}
	for _, p := range patterns {
		found := false
		for _, f := range fields {
			if start, _ := p.IndexString(f); start >= 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Group regroups hits by rule name. Rules keep the order of their first hit.
func Group(hits []Hit) []model.ConfigRuleEntry {
	index := make(map[string]int)
	var entries []model.ConfigRuleEntry
	for _, h := range hits {
		pos, ok := index[h.RuleName]
		if !ok {
			pos = len(entries)
			index[h.RuleName] = pos
			entries = append(entries, model.ConfigRuleEntry{ConfigRuleName: h.RuleName})
		}
		entries[pos].Controls = append(entries[pos].Controls, model.ControlReference{
			FrameworkID: h.FrameworkID,
			ControlID:   h.ControlID,
			Description: h.Description,
			Guidance:    h.Guidance,
			Link:        h.Link,
		})
	}
	return entries
}

// Frameworks returns the distinct framework IDs of hits, sorted.
func Frameworks(hits []Hit) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, h := range hits {
		if !seen[h.FrameworkID] {
			seen[h.FrameworkID] = true
			ids = append(ids, h.FrameworkID)
		}
	}
	sort.Strings(ids)
	return ids
}
