package finding

import "github.com/mcpscout/mcpscout/internal/capability"

// Aggregate merges the analyzers' finding streams into one deduplicated
// slice. Findings with an identical (capability keys, analyzer, rule)
// tuple collapse to the first occurrence. Findings from different
// analyzers targeting the same capability are all retained, preserving
// analyzer disagreement for the report consumer.
func Aggregate(streams ...[]Finding) []Finding {
	seen := make(map[string]struct{})
	var merged []Finding
	for _, stream := range streams {
		for _, f := range stream {
			key := f.dedupKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, f)
		}
	}
	return merged
}

// EffectiveSeverity returns the maximum severity among the findings that
// target the given capability, or empty if none do.
func EffectiveSeverity(findings []Finding, key capability.Key) Severity {
	var max Severity
	for _, f := range findings {
		if f.Targets(key) {
			max = Max(max, f.Severity)
		}
	}
	return max
}

// OverallSeverity returns the maximum severity across all findings, or
// empty for a finding-free report.
func OverallSeverity(findings []Finding) Severity {
	var max Severity
	for _, f := range findings {
		max = Max(max, f.Severity)
	}
	return max
}
