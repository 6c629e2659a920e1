package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcpscout/mcpscout/internal/logging"
)

// fakeRPC is a scriptable rpcClient for session and negotiator tests.
type fakeRPC struct {
	initErrs  []error // consumed per Initialize call; nil entries succeed
	initCalls int

	listToolsFn func(call int) (*mcp.ListToolsResult, error)
	listCalls   int

	closed int
}

func (f *fakeRPC) Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	call := f.initCalls
	f.initCalls++
	if call < len(f.initErrs) && f.initErrs[call] != nil {
		return nil, f.initErrs[call]
	}
	result := &mcp.InitializeResult{}
	result.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	result.ServerInfo = mcp.Implementation{Name: "fake-server", Version: "0.1.0"}
	if err := json.Unmarshal([]byte(`{"tools":{}}`), &result.Capabilities); err != nil {
		return nil, err
	}
	return result, nil
}

func (f *fakeRPC) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	call := f.listCalls
	f.listCalls++
	if f.listToolsFn != nil {
		return f.listToolsFn(call)
	}
	return &mcp.ListToolsResult{}, nil
}

func (f *fakeRPC) ListResources(ctx context.Context, req mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error) {
	return &mcp.ListResourcesResult{}, nil
}

func (f *fakeRPC) ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	return &mcp.ListPromptsResult{}, nil
}

func (f *fakeRPC) Close() error {
	f.closed++
	return nil
}

var errConnRefused = errors.New("dial tcp: connection refused")

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewLogger(false, false, false)
}
