package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-widgets/pkg/cache"
)

// Factory builds an engine. It runs at most once per registration, on first
// use.
type Factory func() (Engine, error)

// Registry stores engines by name. Engines are built lazily: concurrent
// first callers share one in-flight build and a failed build is retried on
// the next call.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*cache.Lazy[Engine]
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]*cache.Lazy[Engine]),
	}
}

// Register adds an engine factory by name. Duplicate names return an error.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("render: engine name is required")
	}
	if factory == nil {
		return fmt.Errorf("render: engine %q: factory is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("render: engine %q already registered", name)
	}
	r.engines[name] = cache.NewLazy(func() (Engine, error) {
		engine, err := factory()
		if err != nil {
			return nil, fmt.Errorf("render: load engine %q: %w", name, err)
		}
		if engine == nil {
			return nil, fmt.Errorf("render: load engine %q: factory returned nil", name)
		}
		return engine, nil
	})
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the engine registered under name, building it on first use.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	lazy, ok := r.engines[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return lazy.Get()
}

// Loaded reports whether the named engine has been built.
func (r *Registry) Loaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lazy, ok := r.engines[name]
	return ok && lazy.Loaded()
}

// List returns a sorted list of engine names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an engine is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.engines[name]
	return ok
}

// Reset clears the caches of every engine built so far.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lazy := range r.engines {
		if !lazy.Loaded() {
			continue
		}
		engine, err := lazy.Get()
		if err != nil {
			continue
		}
		if resetter, ok := engine.(interface{ Reset() }); ok {
			resetter.Reset()
		}
	}
}
