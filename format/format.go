// Package format holds the process-wide registry of named string formats
// (email, uuid, date-time, ...) consulted by validators.
package format

import (
	"sort"
	"sync"
)

// Predicate reports whether s conforms to a format.
type Predicate func(s string) bool

// Registry maps format names to predicates. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Predicate
}

// NewRegistry returns a registry pre-populated with the built-in formats.
func NewRegistry() *Registry {
	r := &Registry{m: make(map[string]Predicate, len(builtins))}
	for name, fn := range builtins {
		r.m[name] = fn
	}
	return r
}

// Empty returns a registry with no formats.
func Empty() *Registry { return &Registry{m: map[string]Predicate{}} }

// Default is the registry validators use unless told otherwise. Dialect
// packages register their namespaced formats here at init.
var Default = NewRegistry()

// Set registers fn under name. Registering again replaces the predicate.
func (r *Registry) Set(name string, fn Predicate) {
	r.mu.Lock()
	r.m[name] = fn
	r.mu.Unlock()
}

// Get returns the predicate for name.
func (r *Registry) Get(name string) (Predicate, bool) {
	r.mu.RLock()
	fn, ok := r.m[name]
	r.mu.RUnlock()
	return fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	delete(r.m, name)
	r.mu.Unlock()
}

// Check applies the named format to s. known is false for unregistered
// names, in which case ok is false too.
func (r *Registry) Check(name, s string) (ok, known bool) {
	fn, known := r.Get(name)
	if !known {
		return false, false
	}
	return fn(s), true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{m: make(map[string]Predicate, len(r.m))}
	for k, v := range r.m {
		c.m[k] = v
	}
	return c
}

// Set registers fn in the Default registry.
func Set(name string, fn Predicate) { Default.Set(name, fn) }

// Get looks name up in the Default registry.
func Get(name string) (Predicate, bool) { return Default.Get(name) }

// Has reports whether name is registered in the Default registry.
func Has(name string) bool { return Default.Has(name) }
