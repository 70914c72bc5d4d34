package command

import (
	"sort"
	"sync"
)

// Registry maps command names to commands. It is filled once at startup
// and then only read, but stays safe for concurrent use either way.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register stores c under its name. A command registered earlier under the
// same name is replaced.
//
// Parameters:
//   - c: the command to register
//
// Thread Safety:
// Safe to call concurrently with Lookup, though registration normally
// finishes before the server accepts connections.
func (r *Registry) Register(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.Name()] = c
}

// Lookup returns the command registered under name.
//
// Returns:
//   - the command and true if it exists
//   - nil and false otherwise
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
