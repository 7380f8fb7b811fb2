package model

import (
	"sort"
	"strings"
)

// Column names used by the conformance pack tables.
// A page may omit any of them.
const (
	ColumnControlID          = "Control ID"
	ColumnControlDescription = "Control Description"
	ColumnConfigRule         = "AWS Config Rule"
	ColumnGuidance           = "Guidance"
)

// RawRecord is one table row keyed by column header text.
// Absent columns read as the empty string.
type RawRecord map[string]string

// ControlID returns the "Control ID" cell.
func (r RawRecord) ControlID() string {
	return r[ColumnControlID]
}

// ControlDescription returns the "Control Description" cell.
func (r RawRecord) ControlDescription() string {
	return r[ColumnControlDescription]
}

// ConfigRuleName returns the "AWS Config Rule" cell.
func (r RawRecord) ConfigRuleName() string {
	return r[ColumnConfigRule]
}

// Guidance returns the "Guidance" cell.
func (r RawRecord) Guidance() string {
	return r[ColumnGuidance]
}

// HasColumn reports whether the column was present in the source table.
func (r RawRecord) HasColumn(name string) bool {
	_, ok := r[name]
	return ok
}

// ControlMapping holds the extracted records of every framework, keyed by
// framework ID. It is the checkpoint persisted between extraction and
// aggregation.
type ControlMapping map[string][]RawRecord

// FrameworkIDs returns the mapping keys in lexical order.
func (m ControlMapping) FrameworkIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RecordCount returns the total number of records across frameworks.
func (m ControlMapping) RecordCount() int {
	n := 0
	for _, records := range m {
		n += len(records)
	}
	return n
}

// manualProcessMarkers are substrings AWS uses for rows that have no
// automated AWS Config rule.
var manualProcessMarkers = []string{"process check", "process-check"}

// IsManualProcessRule reports whether name is not an AWS Config rule
// identifier but a manual process check. Rule identifiers are single tokens
// made of lower-case letters, digits and dashes.
func IsManualProcessRule(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range manualProcessMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.TrimSpace(name) == "" || strings.ContainsAny(strings.TrimSpace(name), " \t\n")
}
