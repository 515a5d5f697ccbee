// Package tfliteengine is the optional mobile/edge engine backend: it
// wraps github.com/mattn/go-tflite and implements engine.Engine for the
// tflite graph encoding. Unlike onnxengine it permits quantized integer
// (uint8) outputs in addition to f32.
package tfliteengine

import (
	"fmt"
	"sync"

	tflite "github.com/mattn/go-tflite"

	"github.com/wamli/inference-provider/internal/engine/keytable"
	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/tensor"
)

type session struct {
	model       *tflite.Model
	interpreter *tflite.Interpreter
}

// dtypeFor maps a tflite tensor's native type to this repository's wire
// DataType. Types go-tflite exposes but this engine has no mapping for
// fall back to F32, matching the documented default for models that
// don't use quantized output tensors.
func dtypeFor(t tflite.TensorType) tensor.DataType {
	switch t {
	case tflite.UInt8:
		return tensor.U8
	case tflite.Int8:
		return tensor.S8
	case tflite.Int16:
		return tensor.S16
	case tflite.Int32:
		return tensor.S32
	case tflite.Int64:
		return tensor.S64
	case tflite.Float32:
		return tensor.F32
	case tflite.Float64:
		return tensor.F64
	default:
		return tensor.F32
	}
}

// Engine is the go-tflite-backed implementation of engine.Engine.
type Engine struct {
	mu       sync.Mutex
	models   *keytable.Table[[]byte]
	sessions *keytable.Table[*session]
	threads  int
}

// New constructs a tflite Engine. threads <= 0 uses the interpreter's
// default thread count.
func New(threads int) *Engine {
	return &Engine{
		models:   keytable.New[[]byte](),
		sessions: keytable.New[*session](),
		threads:  threads,
	}
}

// Load stores the raw model bytes under a fresh graph handle.
func (e *Engine) Load(model []byte) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := make([]byte, len(model))
	copy(buf, model)

	return e.models.Insert(buf), nil
}

// InitExecutionContext builds a tflite interpreter from the stored model
// bytes and returns a fresh execution context handle bound to it.
func (e *Engine) InitExecutionContext(graph uint32, target modelmeta.ExecutionTarget, encoding modelmeta.GraphEncoding) (uint32, error) {
	if target != modelmeta.TargetCPU {
		return 0, &mlerror.UnsupportedExecutionTarget{Target: string(target)}
	}

	if encoding != modelmeta.EncodingTFLite {
		return 0, &mlerror.InvalidEncoding{Encoding: string(encoding)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	modelBytes, ok := e.models.Get(graph)
	if !ok {
		return 0, &mlerror.Internal{Message: fmt.Sprintf("unknown graph %d", graph)}
	}

	model := tflite.NewModel(modelBytes)
	if model == nil {
		return 0, &mlerror.Internal{Message: "interpreter builder failed to parse model"}
	}

	options := tflite.NewInterpreterOptions()
	if e.threads > 0 {
		options.SetNumThread(e.threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return 0, &mlerror.Internal{Message: "interpreter build failed"}
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return 0, &mlerror.Internal{Message: fmt.Sprintf("interpreter failed to allocate tensors: %v", status)}
	}

	gec := e.sessions.Insert(&session{
		model:       model,
		interpreter: interpreter,
	})

	return gec, nil
}

// SetInput copies the tensor's bytes into the interpreter's input tensor
// at index, overwriting any prior input at that index.
func (e *Engine) SetInput(gec uint32, index uint32, t tensor.Tensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.Get(gec)
	if !ok {
		return &mlerror.Internal{Message: fmt.Sprintf("unknown execution context %d", gec)}
	}

	input := s.interpreter.GetInputTensor(int(index))
	if input == nil {
		return &mlerror.Internal{Message: fmt.Sprintf("no input tensor at index %d", index)}
	}

	if want := dtypeFor(input.Type()); t.Dtype != want {
		return &mlerror.Internal{Message: fmt.Sprintf("input tensor %d expects dtype %s, got %s", index, want, t.Dtype)}
	}

	if copy(input.RawInput(), t.Data) != len(t.Data) {
		return &mlerror.Internal{Message: "reshape failed: input buffer size mismatch"}
	}

	return nil
}

// Compute invokes the interpreter against its currently bound inputs.
func (e *Engine) Compute(gec uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.Get(gec)
	if !ok {
		return &mlerror.Internal{Message: fmt.Sprintf("unknown execution context %d", gec)}
	}

	if status := s.interpreter.Invoke(); status != tflite.OK {
		return &mlerror.Internal{Message: fmt.Sprintf("interpreter invocation failed: %v", status)}
	}

	return nil
}

// GetOutput reads the interpreter's output tensor at index back into the
// wire Tensor format, preserving its native dtype (f32 or quantized u8).
func (e *Engine) GetOutput(gec uint32, index uint32) (tensor.Tensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions.Get(gec)
	if !ok {
		return tensor.Tensor{}, &mlerror.Internal{Message: fmt.Sprintf("unknown execution context %d", gec)}
	}

	out := s.interpreter.GetOutputTensor(int(index))
	if out == nil {
		return tensor.Tensor{}, &mlerror.Internal{Message: fmt.Sprintf("output index %d out of range", index)}
	}

	dims := out.NumDims()
	shape := make([]uint32, dims)
	for i := 0; i < dims; i++ {
		shape[i] = uint32(out.Dim(i))
	}

	raw := out.RawOutput()
	data := make([]byte, len(raw))
	copy(data, raw)

	return tensor.Tensor{
		Shape: shape,
		Dtype: dtypeFor(out.Type()),
		Data:  data,
	}, nil
}

// DropModelState removes both the graph and the execution context,
// releasing the native interpreter and model resources.
func (e *Engine) DropModelState(graph uint32, gec uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.models.Delete(graph)

	if s, ok := e.sessions.Get(gec); ok {
		s.interpreter.Delete()
		s.model.Delete()
		e.sessions.Delete(gec)
	}
}
