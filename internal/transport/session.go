package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// rpcClient is the slice of the mcp-go client the session consumes.
// *client.Client satisfies it; tests substitute fakes.
type rpcClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListResources(ctx context.Context, req mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	Close() error
}

// ServerInfo is the identity a server declares in its initialize result.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
}

// Session is a negotiated, stateful connection to one MCP server. The
// transport chosen during negotiation is sticky: a dropped session is
// refreshed on the same transport, never re-negotiated across transports.
type Session struct {
	target Target
	kind   Kind
	dial   dialFunc
	logger interface {
		InfoVerbose(format string, args ...interface{})
		Warning(format string, args ...interface{})
	}

	mu        sync.Mutex
	client    rpcClient
	caps      *mcp.ServerCapabilities
	info      ServerInfo
	refreshed bool
	closed    bool
}

// initialize performs the MCP handshake and records the server identity
// and declared capabilities.
func (s *Session) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "mcpscout",
		Version: "1.0.0",
	}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	s.mu.Lock()
	cli := s.client
	s.mu.Unlock()

	result, err := cli.Initialize(ctx, req)
	if err != nil {
		if isAuthRejection(err) {
			return fmt.Errorf("initialize: %w", ErrAuthRejected)
		}
		return fmt.Errorf("initialize failed: %w", err)
	}

	s.mu.Lock()
	s.caps = &result.Capabilities
	s.info = ServerInfo{
		Name:            result.ServerInfo.Name,
		Version:         result.ServerInfo.Version,
		ProtocolVersion: result.ProtocolVersion,
	}
	s.mu.Unlock()
	return nil
}

// refresh re-dials the sticky transport and re-runs the handshake. Called
// at most once per session, when a request is rejected with a
// session-expiry signal.
func (s *Session) refresh(ctx context.Context) error {
	s.logger.InfoVerbose("Session rejected by %s, re-initializing once...", s.target.Specifier)

	s.mu.Lock()
	old := s.client
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	cli, err := s.dial(ctx, s.kind, s.target)
	if err != nil {
		return fmt.Errorf("failed to re-dial %s: %w", s.kind, err)
	}

	s.mu.Lock()
	s.client = cli
	s.mu.Unlock()

	return s.initialize(ctx)
}

// do runs one request against the session. If the server signals session
// expiry or the connection drops, the session is re-initialized exactly
// once and the request retried; a second expiry is terminal. An expiry
// signal during the refresh handshake itself means the credentials are
// bad, not the session.
func (s *Session) do(ctx context.Context, fn func(rpcClient) error) error {
	s.mu.Lock()
	cli := s.client
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("session already closed")
	}

	err := fn(cli)
	if err == nil {
		return nil
	}
	// A cancelled scan presents like a dropped connection; surface it as
	// the timeout it is instead of spending the refresh on it.
	if ctx.Err() != nil {
		return err
	}
	if !(isSessionExpiry(err) || isConnectionLoss(err)) {
		return err
	}

	s.mu.Lock()
	alreadyRefreshed := s.refreshed
	s.refreshed = true
	s.mu.Unlock()
	if alreadyRefreshed {
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	if rerr := s.refresh(ctx); rerr != nil {
		if isAuthRejection(rerr) {
			return fmt.Errorf("session refresh: %w", ErrAuthRejected)
		}
		return fmt.Errorf("%w: refresh failed: %v", ErrSessionExpired, rerr)
	}

	s.mu.Lock()
	cli = s.client
	s.mu.Unlock()

	if err := fn(cli); err != nil {
		if isSessionExpiry(err) {
			return fmt.Errorf("%w: rejected again after refresh: %v", ErrSessionExpired, err)
		}
		return err
	}
	return nil
}

// ListToolsPage fetches one page of the server's tools.
func (s *Session) ListToolsPage(ctx context.Context, cursor string) ([]mcp.Tool, string, error) {
	var tools []mcp.Tool
	var next string
	err := s.do(ctx, func(cli rpcClient) error {
		req := mcp.ListToolsRequest{}
		req.Params.Cursor = mcp.Cursor(cursor)
		result, err := cli.ListTools(ctx, req)
		if err != nil {
			return err
		}
		tools = result.Tools
		next = string(result.NextCursor)
		return nil
	})
	return tools, next, err
}

// ListResourcesPage fetches one page of the server's resources.
func (s *Session) ListResourcesPage(ctx context.Context, cursor string) ([]mcp.Resource, string, error) {
	var resources []mcp.Resource
	var next string
	err := s.do(ctx, func(cli rpcClient) error {
		req := mcp.ListResourcesRequest{}
		req.Params.Cursor = mcp.Cursor(cursor)
		result, err := cli.ListResources(ctx, req)
		if err != nil {
			return err
		}
		resources = result.Resources
		next = string(result.NextCursor)
		return nil
	})
	return resources, next, err
}

// ListPromptsPage fetches one page of the server's prompts.
func (s *Session) ListPromptsPage(ctx context.Context, cursor string) ([]mcp.Prompt, string, error) {
	var prompts []mcp.Prompt
	var next string
	err := s.do(ctx, func(cli rpcClient) error {
		req := mcp.ListPromptsRequest{}
		req.Params.Cursor = mcp.Cursor(cursor)
		result, err := cli.ListPrompts(ctx, req)
		if err != nil {
			return err
		}
		prompts = result.Prompts
		next = string(result.NextCursor)
		return nil
	})
	return prompts, next, err
}

// SupportsTools reports whether the server declared the tools capability.
func (s *Session) SupportsTools() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps != nil && s.caps.Tools != nil
}

// SupportsResources reports whether the server declared the resources
// capability.
func (s *Session) SupportsResources() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps != nil && s.caps.Resources != nil
}

// SupportsPrompts reports whether the server declared the prompts
// capability.
func (s *Session) SupportsPrompts() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps != nil && s.caps.Prompts != nil
}

// Info returns the server identity from the handshake.
func (s *Session) Info() ServerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Transport returns the sticky transport kind for this session.
func (s *Session) Transport() Kind {
	return s.kind
}

// Close releases the session. For stdio transports this terminates the
// spawned subprocess.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warning("Failed to close session for %s: %v", s.target.Specifier, err)
		}
	}
}
