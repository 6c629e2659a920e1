package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// corpusFile is the on-disk YAML shape of an external rule corpus.
type corpusFile struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// LoadFile reads a versioned YAML rule corpus. The returned rules are
// uncompiled; callers merge them over the built-ins and Compile once per
// scan. Corpora are reloadable between scans, never mid-scan.
func LoadFile(path string) (string, []Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read rule corpus: %w", err)
	}
	var f corpusFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return "", nil, fmt.Errorf("failed to parse rule corpus: %w", err)
	}
	if f.Version == "" {
		return "", nil, fmt.Errorf("rule corpus %s missing version", path)
	}
	if len(f.Rules) == 0 {
		return "", nil, fmt.Errorf("rule corpus %s contains no rules", path)
	}
	return f.Version, f.Rules, nil
}
