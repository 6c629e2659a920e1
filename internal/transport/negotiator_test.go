package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNegotiator(t *testing.T, dial dialFunc) *Negotiator {
	t.Helper()
	n := NewNegotiator(time.Second, testLogger(t))
	n.dial = dial
	return n
}

func httpTestTarget(t *testing.T) Target {
	t.Helper()
	target, err := NewTarget("https://mcp.example.com/mcp", nil, []string{"streamable-http", "sse"})
	require.NoError(t, err)
	return target
}

func TestConnectUsesFirstWorkingTransport(t *testing.T) {
	var dialed []Kind
	n := newTestNegotiator(t, func(ctx context.Context, kind Kind, target Target) (rpcClient, error) {
		dialed = append(dialed, kind)
		return &fakeRPC{}, nil
	})

	sess, err := n.Connect(context.Background(), httpTestTarget(t))
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, []Kind{KindStreamableHTTP}, dialed)
	assert.Equal(t, KindStreamableHTTP, sess.Transport())
	assert.Equal(t, "fake-server", sess.Info().Name)
}

func TestConnectFallsBackInOrder(t *testing.T) {
	// First transport refuses the connection; the second succeeds and
	// becomes sticky. Exactly two attempts, no probing beyond the winner.
	var dialed []Kind
	n := newTestNegotiator(t, func(ctx context.Context, kind Kind, target Target) (rpcClient, error) {
		dialed = append(dialed, kind)
		if kind == KindStreamableHTTP {
			return nil, errConnRefused
		}
		return &fakeRPC{}, nil
	})

	sess, err := n.Connect(context.Background(), httpTestTarget(t))
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, []Kind{KindStreamableHTTP, KindSSE}, dialed)
	assert.Equal(t, KindSSE, sess.Transport())
}

func TestConnectExhaustsAllTransports(t *testing.T) {
	n := newTestNegotiator(t, func(ctx context.Context, kind Kind, target Target) (rpcClient, error) {
		return nil, errConnRefused
	})

	_, err := n.Connect(context.Background(), httpTestTarget(t))
	require.Error(t, err)

	var unavailable *TransportUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Len(t, unavailable.Attempts, 2)
	assert.Contains(t, unavailable.Error(), "mcp.example.com")
}

func TestConnectAuthRejectionIsTerminal(t *testing.T) {
	// A 401 during the first handshake must not trigger fallback: the
	// credentials will be just as wrong on the next transport.
	var dialed []Kind
	n := newTestNegotiator(t, func(ctx context.Context, kind Kind, target Target) (rpcClient, error) {
		dialed = append(dialed, kind)
		return &fakeRPC{initErrs: []error{fmt.Errorf("request failed: 401 Unauthorized")}}, nil
	})

	_, err := n.Connect(context.Background(), httpTestTarget(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthRejected)
	assert.Equal(t, []Kind{KindStreamableHTTP}, dialed)
}

func TestConnectClosesClientOnHandshakeFailure(t *testing.T) {
	rpc := &fakeRPC{initErrs: []error{errors.New("handshake torn down")}}
	n := newTestNegotiator(t, func(ctx context.Context, kind Kind, target Target) (rpcClient, error) {
		if kind != KindStreamableHTTP {
			return nil, errConnRefused
		}
		return rpc, nil
	})

	_, err := n.Connect(context.Background(), httpTestTarget(t))
	require.Error(t, err)
	assert.Equal(t, 1, rpc.closed)
}
