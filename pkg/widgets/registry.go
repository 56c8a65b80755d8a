package widgets

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores definitions by key. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Register adds def. Duplicate keys return an error naming both sources.
func (r *Registry) Register(def Definition) error {
	if def.Key == "" {
		return fmt.Errorf("widgets: definition key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.definitions[def.Key]; ok {
		return fmt.Errorf("widgets: duplicate key %q (%s and %s)", def.Key, existing.Source, def.Source)
	}
	r.definitions[def.Key] = def
	return nil
}

// Get returns the definition for key.
func (r *Registry) Get(key string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[key]
	return def, ok
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Lookup is Get returning ErrNotFound for unknown keys.
func (r *Registry) Lookup(key string) (Definition, error) {
	def, ok := r.Get(key)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return def, nil
}

// List returns every definition sorted by key.
func (r *Registry) List() []Definition {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Categories returns the sorted distinct categories in use.
func (r *Registry) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, def := range r.List() {
		if def.Category == "" {
			continue
		}
		if _, ok := seen[def.Category]; ok {
			continue
		}
		seen[def.Category] = struct{}{}
		out = append(out, def.Category)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.definitions)
}

// Replace swaps the content of r for the content of other in one step.
func (r *Registry) Replace(other *Registry) {
	next := make(map[string]Definition)
	if other != nil {
		other.mu.RLock()
		for k, v := range other.definitions {
			next[k] = v
		}
		other.mu.RUnlock()
	}
	r.mu.Lock()
	r.definitions = next
	r.mu.Unlock()
}
