// Package analyzer implements the three risk analyzers that run over a
// discovered capability set: the deterministic static rule engine, the
// probabilistic heuristic classifier, and the cross-origin chain analyzer.
// All three are side-effect free over an immutable capability set, so the
// orchestrator runs them concurrently without locking.
package analyzer

import (
	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
	"github.com/mcpscout/mcpscout/internal/rules"
)

// StaticEngine evaluates the compiled rule corpus against capability
// metadata. It is a pure function over its inputs: evaluating the same
// capability set twice yields identical findings in identical order.
type StaticEngine struct {
	set *rules.Set
}

// NewStaticEngine wraps a compiled rule set. The set is shared read-only
// across concurrent scans.
func NewStaticEngine(set *rules.Set) *StaticEngine {
	return &StaticEngine{set: set}
}

// RulesVersion reports the corpus version used for this scan.
func (e *StaticEngine) RulesVersion() string {
	return e.set.Version
}

// Analyze matches every rule against every capability. A match yields a
// finding with the rule's fixed severity and confidence 1.0.
func (e *StaticEngine) Analyze(caps *capability.Set) []finding.Finding {
	var findings []finding.Finding
	for _, d := range caps.Items() {
		text := d.Text()
		for i := range e.set.Rules() {
			rule := &e.set.Rules()[i]
			if !rule.Matches(d, text) {
				continue
			}
			findings = append(findings, finding.Finding{
				Capabilities: []capability.Key{d.Key()},
				Analyzer:     finding.AnalyzerStatic,
				RuleID:       rule.ID,
				Check:        rule.Check,
				Severity:     rule.Severity,
				Confidence:   1.0,
				Title:        rule.Title,
				Description:  rule.Description,
				Remediation:  rule.Remediation,
			})
		}
	}
	return findings
}
