package engine

import (
	"sync"

	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/modelmeta"
)

// Factory constructs the singleton Engine instance for a Framework on
// first demand.
type Factory func() (Engine, error)

// Registry maps a Framework to its lazily-constructed singleton Engine.
// Construction happens at most once per framework: the second call for
// the same framework returns the same instance, per the Engine Registry
// contract.
type Registry struct {
	mu        sync.RWMutex
	factories map[Framework]Factory
	instances map[Framework]Engine
}

// NewRegistry creates an empty Registry. Callers register a Factory per
// Framework they intend to support via RegisterFactory before serving
// traffic.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Framework]Factory),
		instances: make(map[Framework]Engine),
	}
}

// RegisterFactory installs the constructor used to lazily build the
// singleton Engine for framework.
func (r *Registry) RegisterFactory(framework Framework, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[framework] = factory
}

// Get returns the engine bound to the framework implied by encoding, or
// InvalidEncoding if the encoding maps to no registered framework or the
// framework has never been created.
func (r *Registry) Get(encoding modelmeta.GraphEncoding) (Engine, error) {
	framework, ok := FrameworkFor(encoding)
	if !ok {
		return nil, &mlerror.InvalidEncoding{Encoding: string(encoding)}
	}

	r.mu.RLock()
	e, ok := r.instances[framework]
	r.mu.RUnlock()
	if !ok {
		return nil, &mlerror.InvalidEncoding{Encoding: string(encoding)}
	}

	return e, nil
}

// GetOrCreate returns the engine bound to the framework implied by
// encoding, constructing and installing it on first call.
func (r *Registry) GetOrCreate(encoding modelmeta.GraphEncoding) (Engine, error) {
	framework, ok := FrameworkFor(encoding)
	if !ok {
		return nil, &mlerror.InvalidEncoding{Encoding: string(encoding)}
	}

	r.mu.RLock()
	e, ok := r.instances[framework]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another writer may have won the race while we waited for the lock.
	if e, ok := r.instances[framework]; ok {
		return e, nil
	}

	factory, ok := r.factories[framework]
	if !ok {
		return nil, &mlerror.InvalidEncoding{Encoding: string(encoding)}
	}

	e, err := factory()
	if err != nil {
		return nil, &mlerror.Internal{Message: "failed to construct engine", Cause: err}
	}

	r.instances[framework] = e
	return e, nil
}
