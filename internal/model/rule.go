package model

import "sort"

// ControlReference is one framework control mapped to a config rule.
type ControlReference struct {
	FrameworkID string `json:"framework"`
	ControlID   string `json:"control_id"`
	Description string `json:"control_description"`
	Guidance    string `json:"control_guidance"`
	Link        string `json:"control_link"`
}

// ConfigRuleEntry groups every control reference of one AWS Config rule.
// Controls follow framework registration order, then table row order.
type ConfigRuleEntry struct {
	ConfigRuleName string
	Controls       []ControlReference
}

// Guidance returns the guidance of the first control reference, or the empty
// string when there are no controls. When frameworks disagree the first one
// in registration order wins.
func (e ConfigRuleEntry) Guidance() string {
	if len(e.Controls) == 0 {
		return ""
	}
	return e.Controls[0].Guidance
}

// RuleControls is the value side of AggregatedOutput.
type RuleControls struct {
	Controls []ControlReference `json:"controls"`
}

// AggregatedOutput is the persisted form of the aggregation result:
// {config_rule_name: {controls: [...]}}. encoding/json writes map keys in
// sorted order, so the file is stable across runs.
type AggregatedOutput map[string]RuleControls

// NewAggregatedOutput converts entries into the persisted map form.
func NewAggregatedOutput(entries []ConfigRuleEntry) AggregatedOutput {
	out := make(AggregatedOutput, len(entries))
	for _, e := range entries {
		controls := make([]ControlReference, len(e.Controls))
		copy(controls, e.Controls)
		out[e.ConfigRuleName] = RuleControls{Controls: controls}
	}
	return out
}

// Entries returns the entries sorted by config rule name.
func (o AggregatedOutput) Entries() []ConfigRuleEntry {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]ConfigRuleEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, ConfigRuleEntry{
			ConfigRuleName: name,
			Controls:       o[name].Controls,
		})
	}
	return entries
}

// ControlCount returns the number of control references across all entries.
func ControlCount(entries []ConfigRuleEntry) int {
	n := 0
	for _, e := range entries {
		n += len(e.Controls)
	}
	return n
}
