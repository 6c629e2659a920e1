package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrAuthRejected indicates the server rejected the supplied credentials.
// Terminal: never retried and never subject to transport fallback.
var ErrAuthRejected = errors.New("authentication rejected")

// ErrSessionExpired indicates the server dropped the session and the
// single allowed re-initialize did not recover it.
var ErrSessionExpired = errors.New("session expired")

// TransportUnavailableError reports that every applicable transport was
// tried and none completed the initialize handshake.
type TransportUnavailableError struct {
	Specifier string
	Attempts  []error
}

func (e *TransportUnavailableError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("no transport available for %s: %s", e.Specifier, strings.Join(msgs, "; "))
}

func (e *TransportUnavailableError) Unwrap() []error {
	return e.Attempts
}

// isAuthRejection reports whether an error signals invalid credentials.
func isAuthRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthRejected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "invalid credentials")
}

// isSessionExpiry reports whether an error from an in-session request
// signals that the server no longer recognizes the session. Servers are
// inconsistent here: some return a JSON-RPC error naming the session,
// others reply 401/404 at the HTTP layer.
func isSessionExpiry(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "session expired") ||
		strings.Contains(msg, "session not found") ||
		strings.Contains(msg, "invalid session") ||
		strings.Contains(msg, "session terminated") ||
		strings.Contains(msg, "missing session") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "410")
}

// isConnectionLoss reports whether an error looks like a dropped or
// unreachable connection rather than a protocol-level rejection.
func isConnectionLoss(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof") ||
		strings.Contains(msg, "no such host")
}
