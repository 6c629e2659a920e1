// Package finding defines the security verdict model: analyzer findings,
// severity ranking, the per-server scan report, and the aggregation step
// that merges the analyzers' streams into a deduplicated report.
package finding

import (
	"strings"

	"github.com/mcpscout/mcpscout/internal/capability"
)

// Analyzer identifies which analysis stage produced a finding.
type Analyzer string

const (
	AnalyzerStatic      Analyzer = "static"
	AnalyzerHeuristic   Analyzer = "heuristic"
	AnalyzerCrossOrigin Analyzer = "cross-origin"
)

// Finding is an immutable security verdict attached to one capability, or
// to an ordered group of capabilities for cross-origin chains.
type Finding struct {
	// Capabilities holds the targeted capability keys. Exactly one entry
	// for static and heuristic findings; two or more, in discovery order,
	// for cross-origin chain findings.
	Capabilities []capability.Key `json:"capabilities"`

	// Analyzer is the stage that produced this finding.
	Analyzer Analyzer `json:"analyzer"`

	// RuleID identifies the static rule or classifier model that fired.
	RuleID string `json:"ruleId"`

	// Check is the risk category (e.g. path_traversal, tool_poisoning).
	Check string `json:"check"`

	Severity Severity `json:"severity"`

	// Confidence is 1.0 for deterministic analyzers and model-reported
	// in [0,1] for heuristic findings.
	Confidence float64 `json:"confidence"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Remediation is an optional hint carried by built-in rules.
	Remediation string `json:"remediation,omitempty"`
}

// dedupKey collapses identical (capability keys, analyzer, rule) tuples.
func (f Finding) dedupKey() string {
	var b strings.Builder
	for _, k := range f.Capabilities {
		b.WriteString(k.String())
		b.WriteByte('|')
	}
	b.WriteString(string(f.Analyzer))
	b.WriteByte('|')
	b.WriteString(f.RuleID)
	return b.String()
}

// Targets reports whether the finding is attached to the given capability.
func (f Finding) Targets(key capability.Key) bool {
	for _, k := range f.Capabilities {
		if k == key {
			return true
		}
	}
	return false
}
