// Package noderegistry resolves a node type_name to a factory that produces
// node instances bound to a job Context. Node packages self-register their
// factory from an init() function: a blank-import + init() pattern wired
// up from cmd/pipelined's plugin imports.
package noderegistry

import (
	"fmt"
	"sync"

	"github.com/pipelined/pipelined/internal/pipeline"
	pipelineerrors "github.com/pipelined/pipelined/pkg/errors"
)

// Registry is a mutex-guarded type_name -> factory map, kept as an
// instantiable type rather than a single global map so tests and multiple
// runners never share state.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]pipeline.Factory
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]pipeline.Factory)}
}

// Register adds a factory for typeName. Registering the same type_name
// twice is a programming error and returns an error rather than silently
// overwriting.
func (r *Registry) Register(typeName string, factory pipeline.Factory) error {
	if factory == nil {
		return pipelineerrors.NewValidationError("node_type", fmt.Sprintf("factory for %q is nil", typeName), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeName]; exists {
		return pipelineerrors.NewValidationError("node_type", fmt.Sprintf("type %q already registered", typeName), nil)
	}

	r.factories[typeName] = factory
	return nil
}

// Get implements pipeline.FactoryLookup.
func (r *Registry) Get(typeName string) (pipeline.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[typeName]
	return factory, ok
}

// Reset clears all registrations. Exposed for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]pipeline.Factory)
}

// Default is the process-wide registry that node packages self-register
// against from init().
var Default = New()

// Register adds factory to the Default registry.
func Register(typeName string, factory pipeline.Factory) error {
	return Default.Register(typeName, factory)
}

// Get looks up typeName in the Default registry.
func Get(typeName string) (pipeline.Factory, bool) {
	return Default.Get(typeName)
}
