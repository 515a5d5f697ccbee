// Package engine defines the polymorphic inference capability set that
// every backend (ONNX/TensorFlow, TFLite) implements, plus the Engine
// Registry that maps a Framework to its lazily-constructed singleton.
package engine

import (
	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/tensor"
)

// Framework identifies the family of engine that backs a GraphEncoding.
type Framework string

const (
	// FrameworkTract backs the onnx and tensorflow encodings.
	FrameworkTract Framework = "tract"
	// FrameworkTFLite backs the tflite encoding.
	FrameworkTFLite Framework = "tflite"
)

// FrameworkFor maps a GraphEncoding to the Framework that implements it.
// openvino has no backing engine in this repository and is rejected.
func FrameworkFor(encoding modelmeta.GraphEncoding) (Framework, bool) {
	switch encoding {
	case modelmeta.EncodingOnnx, modelmeta.EncodingTensorflow:
		return FrameworkTract, true
	case modelmeta.EncodingTFLite:
		return FrameworkTFLite, true
	default:
		return "", false
	}
}

// Engine is the capability set every inference backend implements. All
// methods are safe for concurrent use by multiple callers; internally an
// Engine serializes mutations to its own graph/session tables.
type Engine interface {
	// Load stores raw model bytes and returns a fresh graph handle.
	Load(model []byte) (graph uint32, err error)

	// InitExecutionContext parses the graph for the given encoding and
	// target, and returns a fresh execution context handle bound to it.
	InitExecutionContext(graph uint32, target modelmeta.ExecutionTarget, encoding modelmeta.GraphEncoding) (gec uint32, err error)

	// SetInput stores t as the pending input at index for gec, replacing
	// any prior input at that index.
	SetInput(gec uint32, index uint32, t tensor.Tensor) error

	// Compute runs the graph bound to gec against its pending inputs and
	// stores the resulting output tensors.
	Compute(gec uint32) error

	// GetOutput returns the output tensor computed at index for gec.
	GetOutput(gec uint32, index uint32) (tensor.Tensor, error)

	// DropModelState removes both the graph and the execution context.
	// Infallible: dropping state that doesn't exist is a no-op.
	DropModelState(graph uint32, gec uint32)
}
