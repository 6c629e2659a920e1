package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/mcpscout/mcpscout/internal/analyzer"
	"github.com/mcpscout/mcpscout/internal/config"
	"github.com/mcpscout/mcpscout/internal/finding"
	"github.com/mcpscout/mcpscout/internal/logging"
	"github.com/mcpscout/mcpscout/internal/retry"
	"github.com/mcpscout/mcpscout/internal/rules"
	"github.com/mcpscout/mcpscout/internal/scanner"
	"github.com/mcpscout/mcpscout/internal/transport"
)

var (
	version string

	configFile     string
	transportOrder []string
	headers        []string
	scanTimeout    time.Duration
	connectTimeout time.Duration
	workers        int
	minSeverity    string
	failOn         string
	enabledChecks  []string
	rulesFile      string
	noHeuristic    bool
	openaiModel    string
	openaiBaseURL  string
	verbose        bool
	noColor        bool
	jsonRPC        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpscout [targets...]",
	Short: "Security scanner for MCP servers",
	Long: `mcpscout connects to MCP (Model Context Protocol) servers, enumerates
the tools, resources, and prompts they expose, and classifies each exposed
capability for exploitable risk: tool poisoning, command/SQL/path injection,
secret leakage, cross-origin tool chaining, prompt injection, and auth bypass.

Each target is either an HTTP(S) URL (scanned over streamable-http with SSE
fallback) or a command line to spawn as a stdio MCP server, for example:

  mcpscout https://mcp.example.com/mcp
  mcpscout "npx -y @example/mcp-server"

Targets are scanned concurrently; every target always yields a report whose
outcome field records success, partial failure, or failure. Reports are
printed to stdout as JSON. The heuristic analyzer uses the OpenAI API and is
skipped (and marked as skipped in the report) when OPENAI_API_KEY is unset
or the service is unreachable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,

	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the application
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.Flags().StringSliceVar(&transportOrder, "transport-order", nil, "Transport fallback order (streamable-http, sse, stdio)")
	rootCmd.Flags().StringArrayVar(&headers, "header", nil, "Auth header applied to HTTP transports, as 'Name: value' (repeatable)")
	rootCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "Wall-clock timeout per server scan")
	rootCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 0, "Timeout per transport handshake attempt")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "Maximum servers scanned concurrently")
	rootCmd.Flags().StringVar(&minSeverity, "min-severity", "", "Minimum severity to display (critical, high, medium, low, info)")
	rootCmd.Flags().StringVar(&failOn, "fail-on", "high", "Exit non-zero when any report reaches this severity (use 'none' to disable)")
	rootCmd.Flags().StringSliceVar(&enabledChecks, "checks", nil, "Checks to enable (default: all)")
	rootCmd.Flags().StringVar(&rulesFile, "rules", "", "External YAML rule corpus merged over the built-in rules")
	rootCmd.Flags().BoolVar(&noHeuristic, "no-heuristic", false, "Disable the LLM-based heuristic analyzer")
	rootCmd.Flags().StringVar(&openaiModel, "model", "", "Classifier model for the heuristic analyzer")
	rootCmd.Flags().StringVar(&openaiBaseURL, "openai-base-url", "", "Override the OpenAI-compatible endpoint for the heuristic analyzer")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().BoolVar(&jsonRPC, "json-rpc", false, "Enable full JSON-RPC message logging")
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()
}

// buildConfig merges the config file, defaults, and flag overrides.
func buildConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(transportOrder) > 0 {
		cfg.TransportOrder = transportOrder
	}
	if scanTimeout > 0 {
		cfg.ScanTimeout = scanTimeout
	}
	if connectTimeout > 0 {
		cfg.ConnectTimeout = connectTimeout
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if minSeverity != "" {
		sev, err := finding.ParseSeverity(minSeverity)
		if err != nil {
			return nil, err
		}
		cfg.MinSeverity = sev
	}
	if len(enabledChecks) > 0 {
		cfg.EnabledChecks = enabledChecks
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	if noHeuristic {
		cfg.Heuristic.Enabled = false
	}
	if openaiModel != "" {
		cfg.Heuristic.Model = openaiModel
	}
	if openaiBaseURL != "" {
		cfg.Heuristic.BaseURL = openaiBaseURL
	}
	if cfg.Heuristic.APIKey == "" {
		cfg.Heuristic.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseHeaders converts repeated 'Name: value' flags into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

// buildRuleSet compiles the built-in corpus, merged with an external file
// when configured, filtered by the enabled-check set.
func buildRuleSet(cfg *config.Config, logger *logging.Logger) (*rules.Set, error) {
	corpus := rules.Builtin()
	corpusVersion := rules.BuiltinVersion
	if cfg.RulesFile != "" {
		fileVersion, external, err := rules.LoadFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		corpus = rules.Merge(corpus, external)
		corpusVersion = corpusVersion + "+" + fileVersion
		logger.Info("Merged %d external rules from %s (version %s)", len(external), cfg.RulesFile, fileVersion)
	}
	return rules.Compile(corpusVersion, corpus, cfg.CheckEnabled)
}

// buildHeuristic wires the heuristic analyzer, or returns nil when it is
// disabled or unconfigured.
func buildHeuristic(cfg *config.Config, logger *logging.Logger) *analyzer.Heuristic {
	if !cfg.Heuristic.Enabled {
		logger.Info("Heuristic analyzer disabled")
		return nil
	}
	if cfg.Heuristic.APIKey == "" {
		logger.Warning("OPENAI_API_KEY not set, heuristic analysis will be skipped")
		return nil
	}
	classifier := analyzer.NewOpenAIClassifier(cfg.Heuristic.APIKey, cfg.Heuristic.BaseURL, cfg.Heuristic.Model)
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Heuristic.MaxAttempts
	return analyzer.NewHeuristic(analyzer.HeuristicOptions{
		Classifier: classifier,
		BatchSize:  cfg.Heuristic.BatchSize,
		Timeout:    cfg.Heuristic.Timeout,
		Retry:      retryCfg,
		Limiter:    rate.NewLimiter(rate.Limit(cfg.Heuristic.RatePerSecond), cfg.Heuristic.Burst),
		Enabled:    cfg.CheckEnabled,
		Logger:     logger,
	})
}

// renderedReport is the display shape of a report: findings filtered to
// the minimum severity. The underlying report keeps everything.
type renderedReport struct {
	*finding.Report
	Findings []finding.Finding `json:"findings"`
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	setupSignalHandler(cancel)

	logger := logging.NewLogger(verbose, !noColor, jsonRPC)

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	headerMap, err := parseHeaders(headers)
	if err != nil {
		return err
	}

	targets := make([]transport.Target, 0, len(args))
	for _, specifier := range args {
		target, err := transport.NewTarget(specifier, headerMap, cfg.TransportOrder)
		if err != nil {
			return err
		}
		targets = append(targets, target)
	}

	ruleSet, err := buildRuleSet(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Compiled %d static rules (%s)", ruleSet.Len(), ruleSet.Version)

	discoverRetry := retry.DefaultConfig()
	discoverRetry.MaxAttempts = cfg.DiscoveryMaxAttempts

	orch := scanner.New(scanner.Options{
		Config:     cfg,
		Negotiator: transport.NewNegotiator(cfg.ConnectTimeout, logger),
		Discoverer: scanner.NewDiscoverer(cfg.DiscoveryPageCap, discoverRetry, logger),
		Static:     analyzer.NewStaticEngine(ruleSet),
		Heuristic:  buildHeuristic(cfg, logger),
		Logger:     logger,
	})

	logger.Info("Scanning %d target(s) with %d worker(s)...", len(targets), cfg.Workers)
	reports := orch.ScanAll(ctx, targets)

	rendered := make([]renderedReport, len(reports))
	for i, r := range reports {
		rendered[i] = renderedReport{Report: r, Findings: r.Visible(cfg.MinSeverity)}
	}
	out, err := json.MarshalIndent(rendered, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	fmt.Println(string(out))

	return gate(reports, failOn)
}

// gate returns an error when any report reaches the fail-on severity, so
// CI pipelines consuming the exit code can block a deployment.
func gate(reports []*finding.Report, failOn string) error {
	if failOn == "" || strings.EqualFold(failOn, "none") {
		return nil
	}
	threshold, err := finding.ParseSeverity(failOn)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.OverallSeverity.IsValid() && r.OverallSeverity.AtLeast(threshold) {
			return fmt.Errorf("findings at or above %s severity on %s", threshold, r.Server.Specifier)
		}
	}
	return nil
}
