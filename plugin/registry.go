package plugin

import (
	"fmt"
	"sync"

	"github.com/ufoflow/ufoflow/graph"
)

// Constructor builds a fresh *graph.Task for one instance of a plugin.
// The returned task's Mode, Inputs, Outputs, UsesGPU, and Impl must
// already be set; TaskGraph never fabricates port shape itself.
type Constructor func(instanceName string) (*graph.Task, error)

// Registry is a name-keyed map of plugin constructors, implementing
// graph.PluginManager so it can back TaskGraph's JSON loader.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register adds a constructor under pluginName, overwriting any prior
// registration for that name.
func (r *Registry) Register(pluginName string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[pluginName] = ctor
}

// Create implements graph.PluginManager.
func (r *Registry) Create(pluginName, instanceName string) (*graph.Task, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[pluginName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin: unknown plugin %q", pluginName)
	}
	t, err := ctor(instanceName)
	if err != nil {
		return nil, fmt.Errorf("plugin: construct %q(%q): %w", pluginName, instanceName, err)
	}
	return t, nil
}

// Names returns every registered plugin name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		out = append(out, name)
	}
	return out
}

var _ graph.PluginManager = (*Registry)(nil)
