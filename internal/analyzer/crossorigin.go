package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
)

// crossOriginRuleID tags chain findings from this analyzer.
const crossOriginRuleID = "XORIGIN-001"

// originPattern extracts network origins (scheme plus host) from
// descriptor text.
var originPattern = regexp.MustCompile(`(?i)https?://[a-z0-9][a-z0-9.\-]*(?::\d+)?`)

// CrossOrigin flags capability combinations that span distinct network
// origins, where one capability's output could be laundered through
// another to exfiltrate data. It is a pure function over the complete
// discovered set; per-item analysis cannot see these chains.
type CrossOrigin struct{}

// NewCrossOrigin creates the analyzer.
func NewCrossOrigin() *CrossOrigin {
	return &CrossOrigin{}
}

// originMember records one capability referencing an origin, with its
// discovery index for deterministic ordering.
type originMember struct {
	key   capability.Key
	index int
}

// Analyze groups capabilities by the origins their metadata references and
// emits one finding per pair of distinct origins that have distinct
// capabilities on each side. The finding's key list holds every involved
// capability in discovery order.
func (a *CrossOrigin) Analyze(caps *capability.Set) []finding.Finding {
	byOrigin := make(map[string][]originMember)
	for i, d := range caps.Items() {
		for _, origin := range extractOrigins(d.Text()) {
			byOrigin[origin] = append(byOrigin[origin], originMember{key: d.Key(), index: i})
		}
	}
	if len(byOrigin) < 2 {
		return nil
	}

	origins := make([]string, 0, len(byOrigin))
	for origin := range byOrigin {
		origins = append(origins, origin)
	}
	sort.Strings(origins)

	var findings []finding.Finding
	for i := 0; i < len(origins); i++ {
		for j := i + 1; j < len(origins); j++ {
			keys := chainKeys(byOrigin[origins[i]], byOrigin[origins[j]])
			if keys == nil {
				continue
			}
			findings = append(findings, finding.Finding{
				Capabilities: keys,
				Analyzer:     finding.AnalyzerCrossOrigin,
				RuleID:       crossOriginRuleID,
				Check:        "cross_origin",
				Severity:     finding.SeverityHigh,
				Confidence:   1.0,
				Title:        "Capabilities span distinct network origins",
				Description: fmt.Sprintf(
					"Capabilities referencing %s and %s can be chained to move data across origins.",
					origins[i], origins[j]),
				Remediation: "Verify that tools touching different origins cannot be composed by the agent without review.",
			})
		}
	}
	return findings
}

// chainKeys merges two origin groups into discovery order. Capabilities
// appearing in both groups reference both origins themselves and are not
// a chain between two capabilities, so they are dropped. A chain requires
// at least one remaining capability on each side.
func chainKeys(a, b []originMember) []capability.Key {
	inA := memberKeys(a)
	inB := memberKeys(b)

	var merged []originMember
	left, right := 0, 0
	for _, m := range a {
		if _, shared := inB[m.key]; shared {
			continue
		}
		merged = append(merged, m)
		left++
	}
	for _, m := range b {
		if _, shared := inA[m.key]; shared {
			continue
		}
		merged = append(merged, m)
		right++
	}
	if left == 0 || right == 0 {
		return nil
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].index < merged[j].index })
	keys := make([]capability.Key, len(merged))
	for i, m := range merged {
		keys[i] = m.key
	}
	return keys
}

func memberKeys(members []originMember) map[capability.Key]struct{} {
	keys := make(map[capability.Key]struct{}, len(members))
	for _, m := range members {
		keys[m.key] = struct{}{}
	}
	return keys
}

// extractOrigins returns the normalized, deduplicated origins referenced
// in text, in first-appearance order.
func extractOrigins(text string) []string {
	matches := originPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var origins []string
	for _, m := range matches {
		origin := strings.ToLower(m)
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
