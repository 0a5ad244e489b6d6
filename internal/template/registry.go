package template

import "sync"

// Registry records variants under their display name within the module
// (package path) that issued the parametrization, so external
// serialization can locate a variant by name alone.
type Registry struct {
	mu      sync.Mutex
	modules map[string]map[string]*Template
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]*Template)}
}

// Register binds v under name in the module's namespace and returns the
// name actually used. A collision with a previously registered,
// different object appends trailing underscore markers instead of
// overwriting; registering the same object again is a no-op.
func (r *Registry) Register(module, name string, v *Template) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := r.modules[module]
	if names == nil {
		names = make(map[string]*Template)
		r.modules[module] = names
	}
	for {
		existing, ok := names[name]
		if !ok {
			names[name] = v
			return name
		}
		if existing == v {
			return name
		}
		name += "_"
	}
}

// Lookup returns the variant registered under name in module.
func (r *Registry) Lookup(module, name string) (*Template, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.modules[module][name]
	return v, ok
}

// Names returns every name registered for module, in no particular
// order.
func (r *Registry) Names(module string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.modules[module]))
	for name := range r.modules[module] {
		names = append(names, name)
	}
	return names
}
