package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/logging"
	"github.com/mcpscout/mcpscout/internal/retry"
	"github.com/mcpscout/mcpscout/internal/transport"
)

// capabilitySource is the slice of the session the discoverer consumes.
// transport.Session implements it; tests inject fakes.
type capabilitySource interface {
	SupportsTools() bool
	SupportsResources() bool
	SupportsPrompts() bool
	ListToolsPage(ctx context.Context, cursor string) ([]mcp.Tool, string, error)
	ListResourcesPage(ctx context.Context, cursor string) ([]mcp.Resource, string, error)
	ListPromptsPage(ctx context.Context, cursor string) ([]mcp.Prompt, string, error)
}

// PartialError reports that discovery was cut short. It is non-terminal:
// the capability set gathered before the failure is preserved and the
// scan degrades to a partial-failure report.
type PartialError struct {
	Stage string
	Err   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("discovery of %s incomplete: %v", e.Stage, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// errPageCapExceeded bounds worst-case pagination against a misbehaving
// server.
var errPageCapExceeded = errors.New("pagination page cap exceeded")

// Discoverer enumerates a live session's tools, resources, and prompts,
// following continuation cursors and absorbing overlapping pages. Fetched
// pages are never discarded on a later failure.
type Discoverer struct {
	pageCap  int
	retryCfg retry.Config
	logger   *logging.Logger
}

// NewDiscoverer creates a discoverer with the given page cap and per-page
// retry policy.
func NewDiscoverer(pageCap int, retryCfg retry.Config, logger *logging.Logger) *Discoverer {
	return &Discoverer{pageCap: pageCap, retryCfg: retryCfg, logger: logger}
}

// Discover returns the full deduplicated capability set plus a
// *PartialError when any listing was cut short. Listings the server did
// not declare in its handshake capabilities are skipped.
func (d *Discoverer) Discover(ctx context.Context, src capabilitySource) (*capability.Set, *PartialError) {
	set := capability.NewSet()
	var partials []error

	if src.SupportsTools() {
		if err := d.paginate(ctx, "tools", func(cursor string) (int, string, error) {
			tools, next, err := src.ListToolsPage(ctx, cursor)
			if err != nil {
				return 0, "", err
			}
			for _, t := range tools {
				set.Add(capability.FromTool(t))
			}
			return len(tools), next, nil
		}); err != nil {
			partials = append(partials, fmt.Errorf("tools: %w", err))
		}
	}

	if src.SupportsResources() {
		if err := d.paginate(ctx, "resources", func(cursor string) (int, string, error) {
			resources, next, err := src.ListResourcesPage(ctx, cursor)
			if err != nil {
				return 0, "", err
			}
			for _, r := range resources {
				set.Add(capability.FromResource(r))
			}
			return len(resources), next, nil
		}); err != nil {
			partials = append(partials, fmt.Errorf("resources: %w", err))
		}
	}

	if src.SupportsPrompts() {
		if err := d.paginate(ctx, "prompts", func(cursor string) (int, string, error) {
			prompts, next, err := src.ListPromptsPage(ctx, cursor)
			if err != nil {
				return 0, "", err
			}
			for _, p := range prompts {
				set.Add(capability.FromPrompt(p))
			}
			return len(prompts), next, nil
		}); err != nil {
			partials = append(partials, fmt.Errorf("prompts: %w", err))
		}
	}

	if len(partials) > 0 {
		return set, &PartialError{Stage: "capability listing", Err: errors.Join(partials...)}
	}
	return set, nil
}

// paginate follows continuation cursors until the server returns none,
// the page cap is hit, or a page fails past its retry budget. Each page
// fetch is retried with backoff; terminal session errors stop retrying
// immediately.
func (d *Discoverer) paginate(ctx context.Context, stage string, fetch func(cursor string) (int, string, error)) error {
	cursor := ""
	for page := 0; ; page++ {
		if page >= d.pageCap {
			d.logger.Warning("Listing %s exceeded the %d-page cap, keeping items gathered so far", stage, d.pageCap)
			return errPageCapExceeded
		}

		var next string
		err := retry.Do(ctx, d.retryCfg, func() error {
			count, n, err := fetch(cursor)
			if err != nil {
				if errors.Is(err, transport.ErrAuthRejected) || errors.Is(err, transport.ErrSessionExpired) {
					return retry.Stop(err)
				}
				return err
			}
			d.logger.InfoVerbose("Fetched %s page %d (%d items)", stage, page, count)
			next = n
			return nil
		})
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}
