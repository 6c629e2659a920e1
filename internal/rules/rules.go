// Package rules supplies the static rule corpus: versioned pattern
// signatures matched against capability metadata. Rules are compiled once
// per scan and shared read-only across all concurrent scan tasks.
package rules

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
)

// MatchKind selects how a rule's pattern is evaluated.
type MatchKind string

const (
	// MatchSubstring is a case-insensitive substring match.
	MatchSubstring MatchKind = "substring"
	// MatchRegex is a compiled regular-expression match.
	MatchRegex MatchKind = "regex"
	// MatchHexSig matches a hex-encoded byte signature against the raw
	// descriptor text bytes.
	MatchHexSig MatchKind = "hexsig"
)

// Rule is one pattern signature from the corpus.
type Rule struct {
	// ID uniquely identifies the rule within the corpus; external corpora
	// override built-ins by reusing an ID.
	ID string `yaml:"id"`

	// Check is the risk category the rule belongs to; disabled checks
	// drop their rules at compile time.
	Check string `yaml:"check"`

	Severity finding.Severity `yaml:"severity"`

	Kind    MatchKind `yaml:"kind"`
	Pattern string    `yaml:"pattern"`

	// AppliesTo restricts the rule to one capability kind. Empty means any.
	AppliesTo capability.Kind `yaml:"appliesTo,omitempty"`

	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Remediation string `yaml:"remediation,omitempty"`
}

// CompiledRule is a Rule with its pattern prepared for matching.
type CompiledRule struct {
	Rule

	re  *regexp.Regexp // MatchRegex
	sub string         // MatchSubstring, lowercased
	sig []byte         // MatchHexSig, decoded
}

// Matches reports whether the rule fires on the given descriptor text.
// Matching is stateless so rules can be evaluated in parallel.
func (c *CompiledRule) Matches(d capability.Descriptor, text string) bool {
	if c.AppliesTo != "" && c.AppliesTo != d.Kind {
		return false
	}
	switch c.Kind {
	case MatchSubstring:
		return strings.Contains(strings.ToLower(text), c.sub)
	case MatchRegex:
		return c.re.MatchString(text)
	case MatchHexSig:
		return bytes.Contains([]byte(text), c.sig)
	}
	return false
}

// Set is a compiled, versioned rule corpus.
type Set struct {
	Version string
	rules   []CompiledRule
}

// Rules returns the compiled rules. The slice is read-only.
func (s *Set) Rules() []CompiledRule {
	return s.rules
}

// Len returns the number of compiled rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// Compile validates and compiles a corpus. enabled filters rules by check
// name; a nil filter keeps everything.
func Compile(version string, rs []Rule, enabled func(check string) bool) (*Set, error) {
	set := &Set{Version: version}
	ids := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if r.ID == "" {
			return nil, fmt.Errorf("rule with empty id (title %q)", r.Title)
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		ids[r.ID] = struct{}{}
		if !r.Severity.IsValid() {
			return nil, fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
		}
		if enabled != nil && !enabled(r.Check) {
			continue
		}

		compiled := CompiledRule{Rule: r}
		switch r.Kind {
		case MatchSubstring:
			compiled.sub = strings.ToLower(r.Pattern)
		case MatchRegex:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid regex: %w", r.ID, err)
			}
			compiled.re = re
		case MatchHexSig:
			sig, err := hex.DecodeString(strings.ReplaceAll(r.Pattern, " ", ""))
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid hex signature: %w", r.ID, err)
			}
			compiled.sig = sig
		default:
			return nil, fmt.Errorf("rule %s: unknown match kind %q", r.ID, r.Kind)
		}
		set.rules = append(set.rules, compiled)
	}
	return set, nil
}

// Merge overlays external rules onto base, replacing rules that share an
// ID and appending the rest.
func Merge(base, overlay []Rule) []Rule {
	byID := make(map[string]int, len(base))
	merged := make([]Rule, len(base))
	copy(merged, base)
	for i, r := range merged {
		byID[r.ID] = i
	}
	for _, r := range overlay {
		if i, ok := byID[r.ID]; ok {
			merged[i] = r
			continue
		}
		byID[r.ID] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
