package sourcemap

import (
	"sort"
	"sync"
)

// Registry exposes the compiled scripts of a running program.
type Registry interface {
	// HasCompiledFile reports whether name is a script compiled from
	// authored source.
	HasCompiledFile(name string) bool

	// SourceMap returns the raw source map JSON for name, or nil if the
	// compiler produced none.
	SourceMap(name string) []byte
}

// MemoryRegistry is an in-memory Registry. It is safe for concurrent use.
type MemoryRegistry struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{files: make(map[string][]byte)}
}

// Register records a compiled file and its source map (which may be nil).
func (r *MemoryRegistry) Register(file string, sourceMap []byte) {
	r.mu.Lock()
	r.files[file] = sourceMap
	r.mu.Unlock()
}

// Unregister forgets a compiled file.
func (r *MemoryRegistry) Unregister(file string) {
	r.mu.Lock()
	delete(r.files, file)
	r.mu.Unlock()
}

// Reset forgets every compiled file.
func (r *MemoryRegistry) Reset() {
	r.mu.Lock()
	r.files = make(map[string][]byte)
	r.mu.Unlock()
}

// HasCompiledFile implements Registry.
func (r *MemoryRegistry) HasCompiledFile(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[name]
	return ok
}

// SourceMap implements Registry.
func (r *MemoryRegistry) SourceMap(name string) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.files[name]
}

// Files returns the registered file names in sorted order.
func (r *MemoryRegistry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
