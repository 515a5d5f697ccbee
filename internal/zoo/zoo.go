// Package zoo implements the Model Zoo: a registry of model_id ->
// ModelContext, created once per prefetch and torn down on preempt.
package zoo

import (
	"sync"

	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/tensor"
)

// ModelId is the fully-qualified OCI reference naming a registered model.
type ModelId = string

// ModelContext bundles the metadata and engine handles that back one
// registered model.
type ModelContext struct {
	ModelName             string
	GraphEncoding         modelmeta.GraphEncoding
	ExecutionTarget       modelmeta.ExecutionTarget
	Dtype                 tensor.DataType
	Graph                 uint32
	GraphExecutionContext uint32
}

// Zoo is a concurrency-safe map from ModelId to ModelContext.
type Zoo struct {
	mu     sync.RWMutex
	models map[ModelId]ModelContext
}

// New returns an empty Zoo.
func New() *Zoo {
	return &Zoo{models: make(map[ModelId]ModelContext)}
}

// Get returns the ModelContext registered for id, if any.
func (z *Zoo) Get(id ModelId) (ModelContext, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	ctx, ok := z.models[id]
	return ctx, ok
}

// Insert registers ctx under id, overwriting any prior entry. Callers
// are responsible for logging a warning when an overwrite occurs, per
// the prefetch contract in spec.md §4.5.
func (z *Zoo) Insert(id ModelId, ctx ModelContext) (previous ModelContext, overwritten bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	previous, overwritten = z.models[id]
	z.models[id] = ctx
	return previous, overwritten
}

// Delete removes id from the zoo. It reports whether an entry was
// actually present.
func (z *Zoo) Delete(id ModelId) (ModelContext, bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	ctx, ok := z.models[id]
	if ok {
		delete(z.models, id)
	}
	return ctx, ok
}

// Len returns the number of registered models.
func (z *Zoo) Len() int {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return len(z.models)
}
