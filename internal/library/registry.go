package library

import (
	"sort"
	"sync"
)

// Registry holds the current library definitions shared by the watchers and
// the processing scheduler.
type Registry struct {
	mu   sync.RWMutex
	libs map[string]Library
}

// NewRegistry seeds a registry with libs.
func NewRegistry(libs ...Library) *Registry {
	r := &Registry{libs: make(map[string]Library, len(libs))}
	for _, lib := range libs {
		r.libs[lib.Name] = lib
	}
	return r
}

// Get returns the library named name.
func (r *Registry) Get(name string) (Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.libs[name]
	return lib, ok
}

// Set adds or replaces a library.
func (r *Registry) Set(lib Library) {
	r.mu.Lock()
	r.libs[lib.Name] = lib
	r.mu.Unlock()
}

// Remove drops a library.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.libs, name)
	r.mu.Unlock()
}

// All returns every library sorted by name.
func (r *Registry) All() []Library {
	r.mu.RLock()
	out := make([]Library, 0, len(r.libs))
	for _, lib := range r.libs {
		out = append(out, lib)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
