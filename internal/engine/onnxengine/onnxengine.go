// Package onnxengine is the Tract-equivalent engine backend: it wraps a
// general-purpose ONNX runtime (github.com/yalue/onnxruntime_go) and
// implements engine.Engine for the onnx and tensorflow graph encodings.
//
// TensorFlow-encoded models are accepted by modelmeta at parse time, but
// this backend can only run ONNX graphs through the bound runtime, so
// InitExecutionContext surfaces InvalidEncoding for tensorflow rather
// than silently misinterpreting the bytes.
package onnxengine

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/wamli/inference-provider/internal/engine/keytable"
	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/tensor"
)

// session holds everything needed to run one graph execution context:
// the compiled ORT session plus the most recent input/output tensors,
// mirroring TractSession in the original implementation.
type session struct {
	ort        *ort.DynamicAdvancedSession
	inputInfo  []ort.InputOutputInfo
	outputInfo []ort.InputOutputInfo
	inputs     []*ort.Tensor[float32]
	outputs    []*ort.Tensor[float32]
}

// Engine is the onnxruntime-backed implementation of engine.Engine.
type Engine struct {
	mu       sync.Mutex
	graphs   *keytable.Table[[]byte]
	sessions *keytable.Table[*session]
}

// New constructs an Engine, initializing the onnxruntime shared library
// the first time any Engine is created in the process.
func New(sharedLibPath string) (*Engine, error) {
	if err := ensureInitialized(sharedLibPath); err != nil {
		return nil, err
	}

	return &Engine{
		graphs:   keytable.New[[]byte](),
		sessions: keytable.New[*session](),
	}, nil
}

var initOnce sync.Once
var initErr error

func ensureInitialized(sharedLibPath string) error {
	initOnce.Do(func() {
		if sharedLibPath != "" {
			ort.SetSharedLibraryPath(sharedLibPath)
		}
		if !ort.IsInitialized() {
			initErr = ort.InitializeEnvironment()
		}
	})
	return initErr
}

// Load stores the raw model bytes under a fresh graph handle.
func (e *Engine) Load(model []byte) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := make([]byte, len(model))
	copy(buf, model)

	return e.graphs.Insert(buf), nil
}

// InitExecutionContext builds an ORT session from the stored model bytes
// and returns a fresh execution context handle bound to it.
func (e *Engine) InitExecutionContext(graph uint32, target modelmeta.ExecutionTarget, encoding modelmeta.GraphEncoding) (uint32, error) {
	if target != modelmeta.TargetCPU {
		return 0, &mlerror.UnsupportedExecutionTarget{Target: string(target)}
	}

	if encoding != modelmeta.EncodingOnnx {
		return 0, &mlerror.InvalidEncoding{Encoding: string(encoding)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	modelBytes, ok := e.graphs.Get(graph)
	if !ok {
		return 0, &mlerror.Internal{Message: fmt.Sprintf("unknown graph %d", graph)}
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfoWithONNXData(modelBytes)
	if err != nil {
		return 0, &mlerror.Internal{Message: "failed to read onnx model input/output info", Cause: err}
	}

	inputNames := make([]string, len(inputInfo))
	for i, in := range inputInfo {
		inputNames[i] = in.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, out := range outputInfo {
		outputNames[i] = out.Name
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return 0, &mlerror.Internal{Message: "failed to create onnx session options", Cause: err}
	}

	ortSession, err := ort.NewDynamicAdvancedSessionWithONNXData(modelBytes, inputNames, outputNames, opts)
	if err != nil {
		return 0, &mlerror.Internal{Message: "failed to build model from buffer", Cause: err}
	}

	gec := e.sessions.Insert(&session{
		ort:        ortSession,
		inputInfo:  inputInfo,
		outputInfo: outputInfo,
	})

	return gec, nil
}

// SetInput fixes the input fact at index to f32, decodes the tensor's
// little-endian bytes, reshapes into a row-major n-dimensional array,
// and overwrites any prior input at index.
func (e *Engine) SetInput(gec uint32, index uint32, t tensor.Tensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.Get(gec)
	if !ok {
		return &mlerror.Internal{Message: fmt.Sprintf("unknown execution context %d", gec)}
	}

	data, err := tensor.DecodeF32(t.Data)
	if err != nil {
		return &mlerror.Internal{Message: "reshape failed", Cause: err}
	}

	shape := make(ort.Shape, len(t.Shape))
	for i, dim := range t.Shape {
		shape[i] = int64(dim)
	}

	input, err := ort.NewTensor(shape, data)
	if err != nil {
		return &mlerror.Internal{Message: "corrupt input type or shape", Cause: err}
	}

	if int(index) >= len(s.inputs) {
		grown := make([]*ort.Tensor[float32], index+1)
		copy(grown, s.inputs)
		s.inputs = grown
	}
	if s.inputs[index] != nil {
		_ = s.inputs[index].Destroy()
	}
	s.inputs[index] = input

	return nil
}

// Compute optimizes the graph, makes it runnable, and runs it with the
// pending input list, storing all resulting tensors.
func (e *Engine) Compute(gec uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.Get(gec)
	if !ok {
		return &mlerror.Internal{Message: fmt.Sprintf("unknown execution context %d", gec)}
	}

	inputArbs := make([]ort.ArbitraryTensor, len(s.inputInfo))
	for i := range s.inputInfo {
		if i >= len(s.inputs) || s.inputs[i] == nil {
			return &mlerror.Internal{Message: fmt.Sprintf("no input set at index %d", i)}
		}
		inputArbs[i] = s.inputs[i]
	}

	outputs := make([]*ort.Tensor[float32], len(s.outputInfo))
	outputArbs := make([]ort.ArbitraryTensor, len(s.outputInfo))
	for i, out := range s.outputInfo {
		shape := make(ort.Shape, len(out.Dimensions))
		for j, d := range out.Dimensions {
			shape[j] = d
		}
		t, err := ort.NewEmptyTensor[float32](shape)
		if err != nil {
			return &mlerror.Internal{Message: "failed to allocate output tensor", Cause: err}
		}
		outputs[i] = t
		outputArbs[i] = t
	}

	if err := s.ort.Run(inputArbs, outputArbs); err != nil {
		return &mlerror.Internal{Message: "onnx runtime invocation failed", Cause: err}
	}

	for _, prev := range s.outputs {
		if prev != nil {
			_ = prev.Destroy()
		}
	}
	s.outputs = outputs

	return nil
}

// GetOutput encodes the selected output tensor back to little-endian
// f32 bytes, returning dtype f32 and the output shape.
func (e *Engine) GetOutput(gec uint32, index uint32) (tensor.Tensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.Get(gec)
	if !ok {
		return tensor.Tensor{}, &mlerror.Internal{Message: fmt.Sprintf("unknown execution context %d", gec)}
	}

	if s.outputs == nil {
		return tensor.Tensor{}, &mlerror.Internal{Message: "compute has not been called for this execution context"}
	}

	if int(index) >= len(s.outputs) {
		return tensor.Tensor{}, &mlerror.Internal{Message: fmt.Sprintf("output index %d out of range", index)}
	}

	out := s.outputs[index]
	shape := out.GetShape()
	uShape := make([]uint32, len(shape))
	for i, d := range shape {
		uShape[i] = uint32(d)
	}

	return tensor.Tensor{
		Shape: uShape,
		Dtype: tensor.F32,
		Data:  tensor.EncodeF32(out.GetData()),
	}, nil
}

// DropModelState removes both the graph and the execution context,
// destroying any native ORT resources still held by the session.
func (e *Engine) DropModelState(graph uint32, gec uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.graphs.Delete(graph)

	if s, ok := e.sessions.Get(gec); ok {
		for _, t := range s.inputs {
			if t != nil {
				_ = t.Destroy()
			}
		}
		for _, t := range s.outputs {
			if t != nil {
				_ = t.Destroy()
			}
		}
		if s.ort != nil {
			_ = s.ort.Destroy()
		}
		e.sessions.Delete(gec)
	}
}

// DefaultSharedLibraryPath mirrors the per-platform resolution used by
// the reference onnx-cpu module this backend is grounded on.
func DefaultSharedLibraryPath() string {
	switch arch := runtime.GOOS + "-" + runtime.GOARCH; arch {
	case "linux-amd64":
		return "./third_party/onnxruntime.so"
	case "linux-arm64":
		return "./third_party/onnxruntime_arm64.so"
	case "darwin-arm64":
		return "./third_party/onnxruntime_arm64.dylib"
	case "windows-amd64":
		return "./third_party/onnxruntime.dll"
	default:
		return ""
	}
}
