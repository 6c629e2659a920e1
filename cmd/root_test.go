package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
)

func TestParseHeaders(t *testing.T) {
	got, err := parseHeaders([]string{
		"Authorization: Bearer tok",
		"X-Tenant:acme",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer tok",
		"X-Tenant":      "acme",
	}, got)

	got, err = parseHeaders(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseHeaders([]string{"no-separator"})
	assert.Error(t, err)

	_, err = parseHeaders([]string{": value-without-name"})
	assert.Error(t, err)
}

func TestParseHeadersKeepsColonsInValue(t *testing.T) {
	got, err := parseHeaders([]string{"Authorization: Basic dXNlcjpwYXNz"})
	require.NoError(t, err)
	assert.Equal(t, "Basic dXNlcjpwYXNz", got["Authorization"])
}

func TestGate(t *testing.T) {
	reports := []*finding.Report{
		{Server: finding.ServerInfo{Specifier: "https://a"}, OverallSeverity: finding.SeverityMedium},
		{Server: finding.ServerInfo{Specifier: "https://b"}},
	}

	assert.NoError(t, gate(reports, "none"))
	assert.NoError(t, gate(reports, ""))
	assert.NoError(t, gate(reports, "high"), "medium findings stay under a high threshold")
	assert.Error(t, gate(reports, "medium"))
	assert.Error(t, gate(reports, "low"))
	assert.Error(t, gate(reports, "bogus"), "unknown threshold is a usage error")

	clean := []*finding.Report{{Server: finding.ServerInfo{Specifier: "https://c"}}}
	assert.NoError(t, gate(clean, "low"), "finding-free reports never trip the gate")
}

func TestRenderedReportFiltersDisplayOnly(t *testing.T) {
	report := &finding.Report{
		Findings: []finding.Finding{
			{Capabilities: []capability.Key{{Kind: capability.KindTool, Name: "a"}},
				Analyzer: finding.AnalyzerStatic, RuleID: "R-1", Severity: finding.SeverityInfo},
			{Capabilities: []capability.Key{{Kind: capability.KindTool, Name: "b"}},
				Analyzer: finding.AnalyzerStatic, RuleID: "R-2", Severity: finding.SeverityHigh},
		},
	}

	rendered := renderedReport{Report: report, Findings: report.Visible(finding.SeverityHigh)}
	assert.Len(t, rendered.Findings, 1)
	assert.Len(t, report.Findings, 2)
}
