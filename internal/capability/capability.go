// Package capability defines the immutable descriptors for the tools,
// resources, and prompts an MCP server exposes, as discovered over the
// protocol. Descriptors are the unit of work for every analyzer.
package capability

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Kind discriminates the capability union.
type Kind string

const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
	KindPrompt   Kind = "prompt"
)

// Key uniquely identifies a capability within one server's scan.
// Resources are keyed by URI, tools and prompts by name.
type Key struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Name)
}

// Descriptor is a tagged union over the three capability kinds. Fields not
// applicable to a kind are zero. Descriptors are immutable once discovered;
// schema and description text come from an untrusted server and must be
// treated as data, never evaluated.
type Descriptor struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Tool fields.
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`

	// Resource fields.
	URI      string `json:"uri,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`

	// Prompt fields.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Key returns the identity of the descriptor within its server.
func (d Descriptor) Key() Key {
	name := d.Name
	if d.Kind == KindResource && d.URI != "" {
		name = d.URI
	}
	return Key{Kind: d.Kind, Name: name}
}

// Text returns the string-serializable metadata analyzers match against:
// name, description, and schema/argument text joined by newlines.
func (d Descriptor) Text() string {
	parts := []string{d.Name, d.Description}
	if d.URI != "" {
		parts = append(parts, d.URI)
	}
	if d.MIMEType != "" {
		parts = append(parts, d.MIMEType)
	}
	if len(d.InputSchema) > 0 {
		parts = append(parts, string(d.InputSchema))
	}
	if len(d.Arguments) > 0 {
		parts = append(parts, string(d.Arguments))
	}
	return strings.Join(parts, "\n")
}

// FromTool converts an MCP tool definition into a descriptor.
func FromTool(t mcp.Tool) Descriptor {
	schema := t.RawInputSchema
	if len(schema) == 0 {
		if b, err := json.Marshal(t.InputSchema); err == nil {
			schema = b
		}
	}
	return Descriptor{
		Kind:        KindTool,
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}
}

// FromResource converts an MCP resource definition into a descriptor.
func FromResource(r mcp.Resource) Descriptor {
	return Descriptor{
		Kind:        KindResource,
		Name:        r.Name,
		Description: r.Description,
		URI:         r.URI,
		MIMEType:    r.MIMEType,
	}
}

// FromPrompt converts an MCP prompt definition into a descriptor.
func FromPrompt(p mcp.Prompt) Descriptor {
	var args json.RawMessage
	if len(p.Arguments) > 0 {
		if b, err := json.Marshal(p.Arguments); err == nil {
			args = b
		}
	}
	return Descriptor{
		Kind:        KindPrompt,
		Name:        p.Name,
		Description: p.Description,
		Arguments:   args,
	}
}

// Set is an ordered, key-deduplicated collection of descriptors.
// Discovery order is preserved; re-adding an existing key is a no-op,
// which absorbs overlapping pagination pages.
type Set struct {
	items []Descriptor
	seen  map[Key]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[Key]struct{})}
}

// Add inserts d unless its key is already present. It reports whether the
// descriptor was added.
func (s *Set) Add(d Descriptor) bool {
	key := d.Key()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, d)
	return true
}

// Items returns the descriptors in discovery order. The returned slice
// must not be mutated.
func (s *Set) Items() []Descriptor {
	return s.items
}

// Len returns the number of distinct capabilities.
func (s *Set) Len() int {
	return len(s.items)
}
