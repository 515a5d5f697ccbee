package httpapi

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	wamliconfig "github.com/wamli/inference-provider/internal/config"
	"github.com/wamli/inference-provider/internal/engine"
	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/metrics"
	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/provider"
	"github.com/wamli/inference-provider/internal/staticmodel"
	"github.com/wamli/inference-provider/internal/tensor"
	wamlitesting "github.com/wamli/inference-provider/pkg/testing"
)

// fakeEngine is a smaller stand-in than the provider package's own test
// fake (which is unexported there): its output does not depend on the
// input tensor.
type fakeEngine struct {
	graphs map[uint32][]byte
	next   uint32
}

func newFakeEngine() *fakeEngine { return &fakeEngine{graphs: make(map[uint32][]byte)} }

func (e *fakeEngine) Load(model []byte) (uint32, error) {
	key := e.next
	e.next++
	e.graphs[key] = model
	return key, nil
}

func (e *fakeEngine) InitExecutionContext(graph uint32, target modelmeta.ExecutionTarget, encoding modelmeta.GraphEncoding) (uint32, error) {
	if target != modelmeta.TargetCPU {
		return 0, &mlerror.UnsupportedExecutionTarget{Target: string(target)}
	}
	return 0, nil
}

func (e *fakeEngine) SetInput(gec uint32, index uint32, t tensor.Tensor) error { return nil }
func (e *fakeEngine) Compute(gec uint32) error                                 { return nil }
func (e *fakeEngine) GetOutput(gec uint32, index uint32) (tensor.Tensor, error) {
	return tensor.Tensor{Shape: []uint32{1}, Dtype: tensor.F32, Data: tensor.EncodeF32([]float32{1})}, nil
}
func (e *fakeEngine) DropModelState(graph uint32, gec uint32) {}

type fakeFetcher struct{ layers map[string][]byte }

func (f *fakeFetcher) Fetch(registryHost, imageRef string) ([]byte, error) {
	b, ok := f.layers[imageRef]
	if !ok {
		return nil, &mlerror.Internal{Message: "no such image"}
	}
	return b, nil
}

func buildLayer(t *testing.T, metadataJSON []byte) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "metadata.json", Mode: 0o644, Size: int64(len(metadataJSON))}))
	_, err := tw.Write(metadataJSON)
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "model.bin", Mode: 0o644, Size: 5}))
	_, err = tw.Write([]byte("model"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err = gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return gzBuf.Bytes()
}

func newTestServer(t *testing.T, layers map[string][]byte) *Server {
	t.Helper()

	reg := engine.NewRegistry()
	reg.RegisterFactory(engine.FrameworkTract, func() (engine.Engine, error) { return newFakeEngine(), nil })

	cfg := wamliconfig.New(viper.New(), nil)
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()
	p := provider.New(logger, cfg, &fakeFetcher{layers: layers}, reg, m, 2)

	demoStore, err := staticmodel.NewDemoStore()
	require.NoError(t, err)

	return NewServer(p, demoStore, logger, ":0")
}

// predictRequest builds a predict POST request with the JSON content type
// gin's ShouldBindJSON requires; wamlitesting.PerformRequest dispatches it.
func predictRequest(modelID string, body string) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, "/v1/predict/"+modelID, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandlePrefetchThenPredict(t *testing.T) {
	meta := []byte(`{"graph_encoding":"onnx","execution_target":"cpu"}`)
	s := newTestServer(t, map[string][]byte{"m1": buildLayer(t, meta)})
	router := s.SetupRoutes()

	rec := wamlitesting.PerformSimpleRequest(router, http.MethodPost, "/v1/prefetch/m1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = wamlitesting.PerformRequest(router, predictRequest("m1", `{"shape":[1],"dtype":"f32","data":"AACAPw=="}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePredict_BeforePrefetch_Returns404(t *testing.T) {
	s := newTestServer(t, nil)
	router := s.SetupRoutes()

	rec := wamlitesting.PerformRequest(router, predictRequest("never-seen", `{"shape":[1],"dtype":"f32","data":"AACAPw=="}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePredict_InvalidTensor_Returns400(t *testing.T) {
	s := newTestServer(t, nil)
	router := s.SetupRoutes()

	rec := wamlitesting.PerformRequest(router, predictRequest("never-seen", `{"shape":[1],"dtype":"f32","data":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePrefetch_UnsupportedTarget_Returns422(t *testing.T) {
	meta := []byte(`{"graph_encoding":"onnx","execution_target":"gpu"}`)
	s := newTestServer(t, map[string][]byte{"m1": buildLayer(t, meta)})
	router := s.SetupRoutes()

	rec := wamlitesting.PerformSimpleRequest(router, http.MethodPost, "/v1/prefetch/m1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleStaticMetadataAndData(t *testing.T) {
	s := newTestServer(t, nil)
	router := s.SetupRoutes()

	rec := wamlitesting.PerformSimpleRequest(router, http.MethodGet, "/v1/static/demo-model/metadata")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = wamlitesting.PerformSimpleRequest(router, http.MethodGet, "/v1/static/demo-model/data")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = wamlitesting.PerformSimpleRequest(router, http.MethodGet, "/v1/static/no-such-model/metadata")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	router := s.SetupRoutes()

	rec := wamlitesting.PerformSimpleRequest(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}
