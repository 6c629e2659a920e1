// Package config defines the scan engine configuration: transport
// preference, per-stage timeouts, retry budgets, the enabled-check set,
// and heuristic-classifier settings. Values come from a YAML file, flags,
// or DefaultConfig; the engine treats the struct as read-only.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcpscout/mcpscout/internal/finding"
)

// Check names toggleable through EnabledChecks.
const (
	CheckToolPoisoning    = "tool_poisoning"
	CheckSecretsLeakage   = "secrets_leakage"
	CheckSQLInjection     = "sql_injection"
	CheckCommandInjection = "command_injection"
	CheckPathTraversal    = "path_traversal"
	CheckAuthBypass       = "auth_bypass"
	CheckPromptInjection  = "prompt_injection"
	CheckPIILeakage       = "pii_leakage"
	CheckJailbreak        = "jailbreak"
	CheckCrossOrigin      = "cross_origin"
)

// AllChecks lists every supported check name.
var AllChecks = []string{
	CheckToolPoisoning,
	CheckSecretsLeakage,
	CheckSQLInjection,
	CheckCommandInjection,
	CheckPathTraversal,
	CheckAuthBypass,
	CheckPromptInjection,
	CheckPIILeakage,
	CheckJailbreak,
	CheckCrossOrigin,
}

// HeuristicConfig configures the external classification model.
type HeuristicConfig struct {
	// Enabled toggles the heuristic analyzer entirely.
	Enabled bool `yaml:"enabled"`
	// APIKey authenticates against the classification service. Usually
	// supplied via environment rather than file.
	APIKey string `yaml:"apiKey"`
	// BaseURL overrides the service endpoint (e.g. a local gateway).
	BaseURL string `yaml:"baseUrl"`
	// Model names the classifier model.
	Model string `yaml:"model"`
	// BatchSize bounds how many descriptors go into one classification call.
	BatchSize int `yaml:"batchSize"`
	// MaxAttempts bounds retries per batch on transient failures.
	MaxAttempts int `yaml:"maxAttempts"`
	// Timeout applies to each classification call.
	Timeout time.Duration `yaml:"timeout"`
	// RatePerSecond and Burst bound global throughput to the service
	// across all concurrent server scans.
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Burst         int     `yaml:"burst"`
}

// Config holds every tunable the scan engine consumes.
type Config struct {
	// TransportOrder is the fallback order for session negotiation.
	TransportOrder []string `yaml:"transportOrder"`

	// ConnectTimeout bounds each per-transport handshake attempt.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`

	// ScanTimeout is the wall-clock budget for one server's whole scan.
	ScanTimeout time.Duration `yaml:"scanTimeout"`

	// DiscoveryPageCap bounds pagination against misbehaving servers.
	DiscoveryPageCap int `yaml:"discoveryPageCap"`

	// DiscoveryMaxAttempts bounds retries per listing call.
	DiscoveryMaxAttempts int `yaml:"discoveryMaxAttempts"`

	// Workers caps concurrently scanned servers (and thus open
	// connections/subprocesses).
	Workers int `yaml:"workers"`

	// MinSeverity filters findings for display; the underlying report
	// always keeps everything.
	MinSeverity finding.Severity `yaml:"minSeverity"`

	// EnabledChecks lists active check names. Empty means all.
	EnabledChecks []string `yaml:"enabledChecks"`

	// RulesFile optionally points at an external YAML rule corpus merged
	// over the built-in rules.
	RulesFile string `yaml:"rulesFile"`

	Heuristic HeuristicConfig `yaml:"heuristic"`
}

// DefaultConfig returns the engine defaults. Exact counts are tunable,
// not load-bearing.
func DefaultConfig() *Config {
	return &Config{
		TransportOrder:       []string{"streamable-http", "sse", "stdio"},
		ConnectTimeout:       10 * time.Second,
		ScanTimeout:          5 * time.Minute,
		DiscoveryPageCap:     50,
		DiscoveryMaxAttempts: 3,
		Workers:              4,
		MinSeverity:          finding.SeverityLow,
		EnabledChecks:        nil, // all
		Heuristic: HeuristicConfig{
			Enabled:       true,
			Model:         "gpt-4o-mini",
			BatchSize:     8,
			MaxAttempts:   3,
			Timeout:       60 * time.Second,
			RatePerSecond: 2,
			Burst:         4,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if len(c.TransportOrder) == 0 {
		return fmt.Errorf("transportOrder must not be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.DiscoveryPageCap <= 0 {
		return fmt.Errorf("discoveryPageCap must be positive, got %d", c.DiscoveryPageCap)
	}
	if !c.MinSeverity.IsValid() {
		return fmt.Errorf("unknown minSeverity %q", c.MinSeverity)
	}
	enabled := make(map[string]struct{}, len(AllChecks))
	for _, name := range AllChecks {
		enabled[name] = struct{}{}
	}
	for _, name := range c.EnabledChecks {
		if _, ok := enabled[name]; !ok {
			return fmt.Errorf("unknown check %q", name)
		}
	}
	return nil
}

// CheckEnabled reports whether a check name is active. An empty
// EnabledChecks list enables everything.
func (c *Config) CheckEnabled(name string) bool {
	if len(c.EnabledChecks) == 0 {
		return true
	}
	for _, n := range c.EnabledChecks {
		if n == name {
			return true
		}
	}
	return false
}
