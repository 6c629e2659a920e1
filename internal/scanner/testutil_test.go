package scanner

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mcpscout/mcpscout/internal/config"
	"github.com/mcpscout/mcpscout/internal/logging"
	"github.com/mcpscout/mcpscout/internal/retry"
	"github.com/mcpscout/mcpscout/internal/rules"
	"github.com/mcpscout/mcpscout/internal/transport"
)

// toolPage is one scripted tools/list response.
type toolPage struct {
	tools []mcp.Tool
	next  string
	err   error
}

// fakeSession implements the session seam with scripted listing pages.
type fakeSession struct {
	toolPages    []toolPage
	toolCalls    int
	resources    []mcp.Resource
	prompts      []mcp.Prompt
	hasResources bool
	hasPrompts   bool
	info         transport.ServerInfo
	closed       int
}

func (f *fakeSession) SupportsTools() bool     { return true }
func (f *fakeSession) SupportsResources() bool { return f.hasResources }
func (f *fakeSession) SupportsPrompts() bool   { return f.hasPrompts }

func (f *fakeSession) ListToolsPage(ctx context.Context, cursor string) ([]mcp.Tool, string, error) {
	if f.toolCalls >= len(f.toolPages) {
		return nil, "", nil
	}
	page := f.toolPages[f.toolCalls]
	f.toolCalls++
	if page.err != nil {
		return nil, "", page.err
	}
	return page.tools, page.next, nil
}

func (f *fakeSession) ListResourcesPage(ctx context.Context, cursor string) ([]mcp.Resource, string, error) {
	return f.resources, "", nil
}

func (f *fakeSession) ListPromptsPage(ctx context.Context, cursor string) ([]mcp.Prompt, string, error) {
	return f.prompts, "", nil
}

func (f *fakeSession) Info() transport.ServerInfo { return f.info }
func (f *fakeSession) Transport() transport.Kind  { return transport.KindStreamableHTTP }
func (f *fakeSession) Close()                     { f.closed++ }

// fakeDialer returns a scripted session or error per target specifier.
type fakeDialer struct {
	sessions map[string]*fakeSession
	errs     map[string]error
}

func (d *fakeDialer) Connect(ctx context.Context, target transport.Target) (session, error) {
	if err, ok := d.errs[target.Specifier]; ok {
		return nil, err
	}
	if s, ok := d.sessions[target.Specifier]; ok {
		return s, nil
	}
	return &fakeSession{}, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitDelay: 0, MaxDelay: 0}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewLogger(false, false, false)
}

func testRuleSet(t *testing.T) *rules.Set {
	t.Helper()
	set, err := rules.Compile(rules.BuiltinVersion, rules.Builtin(), nil)
	require.NoError(t, err)
	return set
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Workers = 2
	cfg.Heuristic.Enabled = false
	return cfg
}

func httpTarget(t *testing.T, specifier string) transport.Target {
	t.Helper()
	target, err := transport.NewTarget(specifier, nil, []string{"streamable-http", "sse"})
	require.NoError(t, err)
	return target
}
