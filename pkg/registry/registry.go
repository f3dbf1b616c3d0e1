// Package registry holds the immutable catalog of tools, resources, and
// prompts a server exposes. Registration happens once at process start;
// Lookup and List are safe for concurrent use while requests are served.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
)

// Category partitions the descriptor namespace. Names are unique within a
// category, not across categories.
type Category string

const (
	CategoryTool     Category = "tool"
	CategoryResource Category = "resource"
	CategoryPrompt   Category = "prompt"
)

// Handler executes one registered operation. The args payload has already
// been validated against the descriptor's input schema. The returned value
// is serialized verbatim as the JSON-RPC result.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Descriptor declares one registered operation. Immutable once registered.
type Descriptor struct {
	Category    Category
	Name        string
	Description string
	Schema      *InputSchema
	Handler     Handler

	// Title and MimeType annotate resource descriptors in listings, where
	// Name carries the URI key.
	Title    string
	MimeType string
}

type key struct {
	category Category
	name     string
}

// Registry is the lookup table for method dispatch. The zero value is not
// usable; call New.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[key]*Descriptor
	ordered map[Category][]*Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byKey:   make(map[key]*Descriptor),
		ordered: make(map[Category][]*Descriptor),
	}
}

// Register adds a descriptor. It fails with a DuplicateName error if a
// descriptor with the same (category, name) already exists, leaving the
// original intact.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{category: d.Category, name: d.Name}
	if _, exists := r.byKey[k]; exists {
		return mcperrors.DuplicateName(string(d.Category), d.Name)
	}

	stored := d
	r.byKey[k] = &stored
	r.ordered[d.Category] = append(r.ordered[d.Category], &stored)
	return nil
}

// MustRegister registers a descriptor and panics on collision. Intended for
// startup wiring where a duplicate is a programming error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for (category, name) or a NotFound error.
func (r *Registry) Lookup(category Category, name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byKey[key{category: category, name: name}]
	if !ok {
		return nil, mcperrors.NotFound(string(category), name)
	}
	return d, nil
}

// List returns the descriptors of a category in registration order. The
// returned slice is a copy; callers may not mutate the descriptors.
func (r *Registry) List(category Category) []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.ordered[category]
	out := make([]*Descriptor, len(src))
	copy(out, src)
	return out
}

// Len reports the number of descriptors in a category.
func (r *Registry) Len(category Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered[category])
}
