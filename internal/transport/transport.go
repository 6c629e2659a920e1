// Package transport speaks the MCP wire protocols to a single server and
// owns the session lifecycle: transport fallback during negotiation, the
// initialize handshake, and one-shot session refresh on expiry.
package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind names a wire transport.
type Kind string

const (
	KindStreamableHTTP Kind = "streamable-http"
	KindSSE            Kind = "sse"
	KindStdio          Kind = "stdio"
)

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindStreamableHTTP:
		return KindStreamableHTTP, nil
	case KindSSE:
		return KindSSE, nil
	case KindStdio:
		return KindStdio, nil
	}
	return "", fmt.Errorf("unsupported transport %q", s)
}

// Target is the immutable description of one server to scan: a specifier
// (HTTP(S) URL or stdio command line), optional auth headers, and the
// transport preference order to try during negotiation.
type Target struct {
	Specifier  string
	Headers    map[string]string
	Transports []Kind
}

// NewTarget builds a Target from a specifier and the configured transport
// preference order. Kinds that cannot apply to the specifier are dropped:
// a URL specifier cannot be spawned as a subprocess, and a command line
// cannot be dialed over HTTP.
func NewTarget(specifier string, headers map[string]string, order []string) (Target, error) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return Target{}, fmt.Errorf("empty server specifier")
	}

	kinds := make([]Kind, 0, len(order))
	for _, s := range order {
		kind, err := ParseKind(s)
		if err != nil {
			return Target{}, err
		}
		kinds = append(kinds, kind)
	}

	isURL := isHTTPURL(specifier)
	applicable := make([]Kind, 0, len(kinds))
	for _, kind := range kinds {
		if isURL && kind == KindStdio {
			continue
		}
		if !isURL && kind != KindStdio {
			continue
		}
		applicable = append(applicable, kind)
	}
	if len(applicable) == 0 {
		return Target{}, fmt.Errorf("no applicable transport for %q in preference order %v", specifier, order)
	}

	return Target{
		Specifier:  specifier,
		Headers:    headers,
		Transports: applicable,
	}, nil
}

func isHTTPURL(specifier string) bool {
	u, err := url.Parse(specifier)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// splitCommand tokenizes a stdio command-line specifier into the command
// and its arguments.
func splitCommand(specifier string) (string, []string) {
	fields := strings.Fields(specifier)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
