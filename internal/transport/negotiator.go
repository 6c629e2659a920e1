package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptrans "github.com/mark3labs/mcp-go/client/transport"

	"github.com/mcpscout/mcpscout/internal/logging"
)

// dialFunc produces a started MCP client for one transport kind. Tests
// substitute fakes here; production dials real transports via mcp-go.
type dialFunc func(ctx context.Context, kind Kind, target Target) (rpcClient, error)

// Negotiator turns a Target into a live Session by trying each applicable
// transport in preference order. The first transport that completes the
// initialize handshake becomes sticky for the remainder of the scan.
type Negotiator struct {
	connectTimeout time.Duration
	logger         *logging.Logger
	dial           dialFunc
}

// NewNegotiator creates a negotiator with the given per-attempt handshake
// timeout.
func NewNegotiator(connectTimeout time.Duration, logger *logging.Logger) *Negotiator {
	return &Negotiator{
		connectTimeout: connectTimeout,
		logger:         logger,
		dial:           dialMCP,
	}
}

// Connect tries each of the target's transports in order with a bounded
// per-attempt timeout and returns a Session on the first successful
// handshake. An authentication rejection is terminal immediately: the
// credentials will not get better on another transport. Exhausting every
// transport yields a *TransportUnavailableError.
func (n *Negotiator) Connect(ctx context.Context, target Target) (*Session, error) {
	var attempts []error
	for _, kind := range target.Transports {
		n.logger.InfoVerbose("Trying %s transport for %s...", kind, target.Specifier)

		attemptCtx, cancel := context.WithTimeout(ctx, n.connectTimeout)
		sess, err := n.attempt(attemptCtx, kind, target)
		cancel()

		if err == nil {
			n.logger.Success("Connected to %s via %s", target.Specifier, kind)
			return sess, nil
		}
		if isAuthRejection(err) {
			return nil, fmt.Errorf("%s handshake: %w", kind, ErrAuthRejected)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n.logger.InfoVerbose("Transport %s failed: %v", kind, err)
		attempts = append(attempts, fmt.Errorf("%s: %w", kind, err))
	}
	return nil, &TransportUnavailableError{Specifier: target.Specifier, Attempts: attempts}
}

func (n *Negotiator) attempt(ctx context.Context, kind Kind, target Target) (*Session, error) {
	cli, err := n.dial(ctx, kind, target)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		target: target,
		kind:   kind,
		client: cli,
		dial:   n.dial,
		logger: n.logger,
	}
	if err := sess.initialize(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	return sess, nil
}

// dialMCP creates and starts an mcp-go client for the given transport.
func dialMCP(ctx context.Context, kind Kind, target Target) (rpcClient, error) {
	switch kind {
	case KindStreamableHTTP:
		var opts []mcptrans.StreamableHTTPCOption
		if len(target.Headers) > 0 {
			opts = append(opts, mcptrans.WithHTTPHeaders(target.Headers))
		}
		c, err := client.NewStreamableHttpClient(target.Specifier, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable HTTP client: %w", err)
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to start streamable HTTP transport: %w", err)
		}
		return c, nil

	case KindSSE:
		var opts []mcptrans.ClientOption
		if len(target.Headers) > 0 {
			opts = append(opts, mcptrans.WithHeaders(target.Headers))
		}
		c, err := client.NewSSEMCPClient(target.Specifier, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client: %w", err)
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to start SSE transport: %w", err)
		}
		return c, nil

	case KindStdio:
		command, args := splitCommand(target.Specifier)
		if command == "" {
			return nil, fmt.Errorf("empty stdio command")
		}
		// NewStdioMCPClient spawns the subprocess and starts the transport;
		// Session.Close terminates it through the client.
		c, err := client.NewStdioMCPClient(command, nil, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to spawn stdio server: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported transport %q", kind)
}
