package collection

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/uri"
)

// DefaultPrefix is prepended to collection names to form their ids.
const DefaultPrefix = "pkb-"

// LoadOptions controls how definitions are turned into collections.
type LoadOptions struct {
	// Prefix is prepended to names to derive ids.
	Prefix string
	// WorkingDir is the context for relative paths of collections that do
	// not use their path as root. Defaults to the process working directory.
	WorkingDir string
	// Active names the active collection by id or name. Defaults to the
	// first definition.
	Active string
}

// Registry maps collection ids to collections and tracks the active one.
// The collections are fixed after Load; only the active id changes.
type Registry struct {
	mu          sync.RWMutex
	activeID    string
	collections map[string]*Collection
	order       []string
}

// Load builds a registry from raw definitions. An empty list yields a
// single default collection. Invalid definitions abort the load.
func Load(defs []Definition, opts LoadOptions) (*Registry, error) {
	if len(defs) == 0 {
		defs = []Definition{{}}
	}
	if opts.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("collection: working dir: %w", err)
		}
		opts.WorkingDir = wd
	}

	r := &Registry{collections: make(map[string]*Collection, len(defs))}
	for _, raw := range defs {
		def := raw.merged()
		if err := def.Validate(); err != nil {
			return nil, err
		}
		c, err := def.build(opts.Prefix, opts.WorkingDir)
		if err != nil {
			return nil, err
		}
		if _, dup := r.collections[c.ID]; dup {
			return nil, fmt.Errorf("collection: duplicate id %q", c.ID)
		}
		r.collections[c.ID] = c
		r.order = append(r.order, c.ID)
	}

	active := opts.Active
	if active == "" {
		active = r.collections[r.order[0]].Name
	}
	if err := r.SetActive(active); err != nil {
		return nil, err
	}
	return r, nil
}

// SetActive makes the collection with the given id or name active.
func (r *Registry) SetActive(idOrName string) error {
	c, err := r.Lookup(idOrName)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.activeID = c.ID
	r.mu.Unlock()
	return nil
}

// ActiveID returns the id of the active collection.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Active returns the active collection.
func (r *Registry) Active() *Collection {
	return r.collections[r.ActiveID()]
}

// Has reports whether id names a collection.
func (r *Registry) Has(id string) bool {
	_, ok := r.collections[id]
	return ok
}

// Get returns the collection with the given id.
func (r *Registry) Get(id string) (*Collection, error) {
	c, ok := r.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", id, apperr.ErrUnknownCollection)
	}
	return c, nil
}

// Lookup finds a collection by id, falling back to a name match.
func (r *Registry) Lookup(idOrName string) (*Collection, error) {
	if c, ok := r.collections[idOrName]; ok {
		return c, nil
	}
	for _, id := range r.order {
		if c := r.collections[id]; c.Name == idOrName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("collection %q: %w", idOrName, apperr.ErrUnknownCollection)
}

// ByPath returns the collection whose root contains path. When roots are
// nested the deepest one wins.
func (r *Registry) ByPath(path string) (*Collection, bool) {
	if path == "" {
		return nil, false
	}
	var best *Collection
	for _, id := range r.order {
		c := r.collections[id]
		if !pathutil.HasPathPrefix(path, c.Path) {
			continue
		}
		if best == nil || len(c.Path) > len(best.Path) {
			best = c
		}
	}
	return best, best != nil
}

// Current returns the collection containing path, or the active one.
func (r *Registry) Current(path string) *Collection {
	if c, ok := r.ByPath(path); ok {
		return c
	}
	return r.Active()
}

// URIFor returns the URI of path within the collection containing it.
func (r *Registry) URIFor(path string) uri.URI {
	if c, ok := r.ByPath(path); ok {
		return c.URIFor(path)
	}
	return uri.New("", path)
}

// IDs returns collection ids in definition order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.order)
}

// All returns collections in definition order.
func (r *Registry) All() []*Collection {
	out := make([]*Collection, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.collections[id])
	}
	return out
}
