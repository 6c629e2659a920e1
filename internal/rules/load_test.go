package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpscout/mcpscout/internal/finding"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCorpus(t, `
version: corp-2025.08
rules:
  - id: CORP-001
    check: secrets_leakage
    severity: critical
    kind: regex
    pattern: 'INTERNAL-[0-9]{8}'
    title: Internal credential format
  - id: PATH-001
    check: path_traversal
    severity: critical
    kind: substring
    pattern: "../"
    title: Stricter traversal policy
`)

	version, rs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "corp-2025.08", version)
	require.Len(t, rs, 2)
	assert.Equal(t, "CORP-001", rs[0].ID)
	assert.Equal(t, finding.SeverityCritical, rs[0].Severity)
	assert.Equal(t, MatchRegex, rs[0].Kind)

	// External corpora override built-ins by reusing an id.
	merged := Merge(Builtin(), rs)
	set, err := Compile(version, merged, nil)
	require.NoError(t, err)
	for _, r := range set.Rules() {
		if r.ID == "PATH-001" {
			assert.Equal(t, finding.SeverityCritical, r.Severity)
		}
	}
}

func TestLoadFileRejectsMissingVersion(t *testing.T) {
	path := writeCorpus(t, `
rules:
  - id: CORP-001
    check: secrets_leakage
    severity: low
    kind: substring
    pattern: x
`)
	_, _, err := LoadFile(path)
	assert.ErrorContains(t, err, "missing version")
}

func TestLoadFileRejectsEmptyCorpus(t *testing.T) {
	path := writeCorpus(t, "version: v1\nrules: []\n")
	_, _, err := LoadFile(path)
	assert.ErrorContains(t, err, "no rules")
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := writeCorpus(t, "version: [unterminated\n")
	_, _, err := LoadFile(path)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestLoadFileMissingFile(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read")
}
