package aioengine

import (
	"sort"
	"sync"
)

// Factory constructs an engine instance from options.
type Factory func(opts Options) (IOEngine, error)

// Registry maps engine names to factories so a harness can select an
// implementation by name. Construction is explicit; nothing registers itself
// at package load time.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the built-in engines.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("aio", func(opts Options) (IOEngine, error) {
		return New(opts), nil
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New constructs the named engine.
func (r *Registry) New(name string, opts Options) (IOEngine, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, newError("registry", ErrCodeInvalidConfig,
			"unknown engine "+name)
	}
	return f(opts)
}

// Names lists the registered engines in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
