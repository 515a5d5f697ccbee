package provider

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wamliconfig "github.com/wamli/inference-provider/internal/config"
	"github.com/wamli/inference-provider/internal/engine"
	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/metrics"
	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/tensor"

	"github.com/spf13/viper"
)

// fakeEngine is a minimal in-memory stand-in for engine.Engine so these
// tests exercise facade semantics without the native ONNX runtime.
type fakeEngine struct {
	mu          sync.Mutex
	graphs      map[uint32][]byte
	nextGraph   uint32
	sessions    map[uint32]*fakeSession
	nextSession uint32
}

type fakeSession struct {
	target modelmeta.ExecutionTarget
	inputs map[uint32]tensor.Tensor
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		graphs:   make(map[uint32][]byte),
		sessions: make(map[uint32]*fakeSession),
	}
}

func (e *fakeEngine) Load(model []byte) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := e.nextGraph
	e.nextGraph++
	e.graphs[key] = model
	return key, nil
}

func (e *fakeEngine) InitExecutionContext(graph uint32, target modelmeta.ExecutionTarget, encoding modelmeta.GraphEncoding) (uint32, error) {
	if target != modelmeta.TargetCPU {
		return 0, &mlerror.UnsupportedExecutionTarget{Target: string(target)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.graphs[graph]; !ok {
		return 0, &mlerror.Internal{Message: "unknown graph"}
	}
	key := e.nextSession
	e.nextSession++
	e.sessions[key] = &fakeSession{target: target, inputs: make(map[uint32]tensor.Tensor)}
	return key, nil
}

func (e *fakeEngine) SetInput(gec uint32, index uint32, t tensor.Tensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[gec]
	if !ok {
		return &mlerror.Internal{Message: "unknown gec"}
	}
	s.inputs[index] = t
	return nil
}

func (e *fakeEngine) Compute(gec uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[gec]; !ok {
		return &mlerror.Internal{Message: "unknown gec"}
	}
	return nil
}

// GetOutput echoes the most recent input at index 0, so tests can assert
// the facade round-trips data through the engine without caring about
// real inference.
func (e *fakeEngine) GetOutput(gec uint32, index uint32) (tensor.Tensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[gec]
	if !ok {
		return tensor.Tensor{}, &mlerror.Internal{Message: "unknown gec"}
	}
	in, ok := s.inputs[0]
	if !ok {
		return tensor.Tensor{}, &mlerror.Internal{Message: "no input set"}
	}
	return in, nil
}

func (e *fakeEngine) DropModelState(graph uint32, gec uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.graphs, graph)
	delete(e.sessions, gec)
}

// fakeFetcher serves pre-baked layer bytes keyed by image reference.
type fakeFetcher struct {
	layers map[string][]byte
}

func (f *fakeFetcher) Fetch(registryHost, imageRef string) ([]byte, error) {
	b, ok := f.layers[imageRef]
	if !ok {
		return nil, &mlerror.Internal{Message: "no such image: " + imageRef}
	}
	return b, nil
}

// buildLayer tars up metadata.json (if metadataJSON is non-nil) and
// model.bin (if modelBytes is non-nil), then gzips the result, mirroring
// the registry layer format internal/layer.Decode expects.
func buildLayer(t *testing.T, metadataJSON, modelBytes []byte) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	if metadataJSON != nil {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: "metadata.json", Mode: 0o644, Size: int64(len(metadataJSON))}))
		_, err := tw.Write(metadataJSON)
		require.NoError(t, err)
	}
	if modelBytes != nil {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: "model.bin", Mode: 0o644, Size: int64(len(modelBytes))}))
		_, err := tw.Write(modelBytes)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	return gzBuf.Bytes()
}

func newTestProvider(t *testing.T, layers map[string][]byte) (*Provider, *fakeEngine) {
	t.Helper()

	fe := newFakeEngine()
	reg := engine.NewRegistry()
	reg.RegisterFactory(engine.FrameworkTract, func() (engine.Engine, error) { return fe, nil })

	cfg := wamliconfig.New(viper.New(), nil)
	m := metrics.New(prometheus.NewRegistry())

	return New(nil, cfg, &fakeFetcher{layers: layers}, reg, m, 2), fe
}

func TestPredict_BeforePrefetch_ContextNotFound(t *testing.T) { // S2
	p, _ := newTestProvider(t, nil)

	_, err := p.Predict("never-seen", tensor.Tensor{})
	require.Error(t, err)
	assert.True(t, mlerror.IsContextNotFound(err))
}

func TestPrefetchThenPredict_RoundTrips(t *testing.T) { // S1 (shape of the round trip, with a fake engine)
	meta := []byte(`{"graph_encoding":"onnx","execution_target":"cpu","tensor_dtype":"f32"}`)
	layer := buildLayer(t, meta, []byte("model-bytes"))

	p, _ := newTestProvider(t, map[string][]byte{"wamli-mobilenetv27:latest": layer})

	require.NoError(t, p.Prefetch("wamli-mobilenetv27:latest"))

	in := tensor.Tensor{Shape: []uint32{1, 3, 2, 2}, Dtype: tensor.F32, Data: tensor.EncodeF32([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})}
	out, err := p.Predict("wamli-mobilenetv27:latest", in)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}

func TestPreempt_IsIdempotentAndClearsState(t *testing.T) { // S3
	meta := []byte(`{"graph_encoding":"onnx","execution_target":"cpu"}`)
	layer := buildLayer(t, meta, []byte("model-bytes"))

	p, fe := newTestProvider(t, map[string][]byte{"m1": layer})
	require.NoError(t, p.Prefetch("m1"))

	require.NoError(t, p.Preempt("m1"))
	require.NoError(t, p.Preempt("m1")) // idempotent

	_, err := p.Predict("m1", tensor.Tensor{})
	require.Error(t, err)
	assert.True(t, mlerror.IsContextNotFound(err))

	fe.mu.Lock()
	defer fe.mu.Unlock()
	assert.Empty(t, fe.graphs)
	assert.Empty(t, fe.sessions)
}

func TestPrefetch_MissingJSON_InvalidMetadata(t *testing.T) { // S4
	layer := buildLayer(t, nil, []byte("model-bytes-only"))

	p, _ := newTestProvider(t, map[string][]byte{"m1": layer})

	err := p.Prefetch("m1")
	require.Error(t, err)
	assert.True(t, mlerror.IsInvalidMetadata(err))
}

func TestPrefetch_UnsupportedExecutionTarget(t *testing.T) { // S5
	meta := []byte(`{"graph_encoding":"onnx","execution_target":"gpu"}`)
	layer := buildLayer(t, meta, []byte("model-bytes"))

	p, _ := newTestProvider(t, map[string][]byte{"m1": layer})

	err := p.Prefetch("m1")
	require.Error(t, err)
	assert.True(t, mlerror.IsUnsupportedExecutionTarget(err))
}

func TestPrefetch_Overwrite_DropsPreviousState(t *testing.T) {
	meta := []byte(`{"graph_encoding":"onnx","execution_target":"cpu"}`)

	p, fe := newTestProvider(t, map[string][]byte{"m1": buildLayer(t, meta, []byte("v1"))})
	require.NoError(t, p.Prefetch("m1"))

	fe.mu.Lock()
	assert.Len(t, fe.graphs, 1)
	fe.mu.Unlock()

	// Re-point the fetcher at a second layer for the same model_id and
	// prefetch again: the old graph/session must be torn down, leaving
	// exactly one live graph behind, not two.
	p.fetcher = &fakeFetcher{layers: map[string][]byte{"m1": buildLayer(t, meta, []byte("v2"))}}
	require.NoError(t, p.Prefetch("m1"))

	fe.mu.Lock()
	defer fe.mu.Unlock()
	assert.Len(t, fe.graphs, 1)
}
