package finding

import (
	"time"

	"github.com/mcpscout/mcpscout/internal/capability"
)

// Outcome classifies how far a server's scan got.
type Outcome string

const (
	// OutcomeSuccess means discovery and analysis completed. A degraded
	// heuristic stage still counts as success; see Report.HeuristicSkipped.
	OutcomeSuccess Outcome = "success"

	// OutcomePartialFailure means discovery was cut short; findings cover
	// only the capabilities fetched before the failure.
	OutcomePartialFailure Outcome = "partial_failure"

	// OutcomeFailed means no usable session or no capabilities could be
	// obtained. A failed report carries zero findings.
	OutcomeFailed Outcome = "failed"
)

// ServerInfo captures the identity negotiated during the handshake.
type ServerInfo struct {
	Specifier       string `json:"specifier"`
	Name            string `json:"name,omitempty"`
	Version         string `json:"version,omitempty"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	Transport       string `json:"transport,omitempty"`
}

// Report is the terminal artifact of scanning one server. It is immutable
// once returned by the orchestrator.
type Report struct {
	ScanID  string     `json:"scanId"`
	Server  ServerInfo `json:"server"`
	Outcome Outcome    `json:"outcome"`

	// Reason explains a failed or partial outcome.
	Reason string `json:"reason,omitempty"`

	Capabilities []capability.Descriptor `json:"capabilities"`
	Findings     []Finding               `json:"findings"`

	// HeuristicSkipped records that heuristic analysis did not run, so an
	// absence of heuristic findings is never mistaken for a clean result.
	HeuristicSkipped    bool   `json:"heuristicSkipped,omitempty"`
	HeuristicSkipReason string `json:"heuristicSkipReason,omitempty"`

	// OverallSeverity is the maximum effective severity across all
	// capabilities, before any display filtering.
	OverallSeverity Severity `json:"overallSeverity"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// Visible returns the findings at or above min severity for rendering.
// Filtering never removes findings from the report itself.
func (r *Report) Visible(min Severity) []Finding {
	out := make([]Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f.Severity.AtLeast(min) {
			out = append(out, f)
		}
	}
	return out
}

// FindingsFor returns every finding attached to the given capability,
// including cross-origin group findings that involve it.
func (r *Report) FindingsFor(key capability.Key) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Targets(key) {
			out = append(out, f)
		}
	}
	return out
}
