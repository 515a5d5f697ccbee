// Package provider implements the Provider Facade: the single entry
// point that ties the model zoo, the engine registry, the registry
// fetcher, and the layer decoder together into the predict/prefetch/
// preempt operations and the link lifecycle.
package provider

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wamli/inference-provider/internal/config"
	"github.com/wamli/inference-provider/internal/engine"
	"github.com/wamli/inference-provider/internal/layer"
	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/modelmeta"
	"github.com/wamli/inference-provider/internal/metrics"
	"github.com/wamli/inference-provider/internal/provider/blockpool"
	"github.com/wamli/inference-provider/internal/provider/geclock"
	"github.com/wamli/inference-provider/internal/registry"
	"github.com/wamli/inference-provider/internal/tensor"
	"github.com/wamli/inference-provider/internal/zoo"
)

// Fetcher pulls OCI images and extracts the model layer. Satisfied by
// *registry.Fetcher; named here so tests can substitute a fake.
type Fetcher interface {
	Fetch(registryHost, imageRef string) ([]byte, error)
}

// Provider composes the model zoo, engine registry, fetcher, and layer
// decoder into the predict/prefetch/preempt surface. All exported
// methods are safe for concurrent use.
type Provider struct {
	logger  *zap.Logger
	cfg     *config.Config
	fetcher Fetcher
	engines *engine.Registry
	zoo     *zoo.Zoo
	gecLock *geclock.Table
	pool    *blockpool.Pool
	metrics *metrics.Metrics

	linked *linkTable
}

// New constructs a Provider. poolSize bounds the number of goroutines
// running blocking inference calls concurrently.
func New(logger *zap.Logger, cfg *config.Config, fetcher Fetcher, engines *engine.Registry, m *metrics.Metrics, poolSize int) *Provider {
	return &Provider{
		logger:  logger,
		cfg:     cfg,
		fetcher: fetcher,
		engines: engines,
		zoo:     zoo.New(),
		gecLock: geclock.New(),
		pool:    blockpool.New(poolSize),
		metrics: m,
		linked:  newLinkTable(),
	}
}

// Init fetches and registers every prefetch target named in the
// provider's configuration, then starts watching the config file for
// additively-introduced targets, mirroring InferenceProvider::init in
// the original implementation. A startup prefetch failure is logged
// and skipped rather than aborting the rest of the boot sequence: one
// unreachable model must not keep every other model from loading.
func (p *Provider) Init() error {
	for _, imageRef := range p.cfg.PrefetchTargets() {
		if err := p.Prefetch(imageRef); err != nil {
			if p.logger != nil {
				p.logger.Error("startup prefetch failed, skipping", zap.String("image_ref", imageRef), zap.Error(err))
			}
			continue
		}
	}

	p.cfg.OnChange(func(imageRef string) {
		if err := p.Prefetch(imageRef); err != nil {
			p.logger.Error("prefetch triggered by config reload failed", zap.String("image_ref", imageRef), zap.Error(err))
		}
	})

	return nil
}

// Shutdown clears the link tables. There is no other provider-owned
// state to release: engines and the zoo live for the process lifetime.
func (p *Provider) Shutdown() error {
	p.linked.clear()
	return nil
}

// Prefetch fetches modelID's image from the configured registry,
// decodes its layer, and registers the resulting model context under
// modelID, replacing and tearing down any prior registration.
func (p *Provider) Prefetch(modelID string) (err error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ObservePrefetch(modelID, err, time.Since(start))
		}
	}()

	if p.logger != nil {
		p.logger.Info("prefetching model", zap.String("model_id", modelID))
	}

	raw, err := p.fetcher.Fetch(p.cfg.RegistryURL(), modelID)
	if err != nil {
		return mlerror.Wrap(err)
	}

	metadataBytes, modelBytes, err := layer.Decode(layer.NewReader(raw))
	if err != nil {
		return &mlerror.InvalidMetadata{Message: err.Error()}
	}

	meta, err := modelmeta.Parse(metadataBytes, p.logger)
	if err != nil {
		return &mlerror.InvalidMetadata{Message: err.Error()}
	}

	eng, err := p.engines.GetOrCreate(meta.GraphEncoding)
	if err != nil {
		return mlerror.Wrap(err)
	}

	graph, err := eng.Load(modelBytes)
	if err != nil {
		return mlerror.Wrap(err)
	}

	gec, err := eng.InitExecutionContext(graph, meta.ExecutionTarget, meta.GraphEncoding)
	if err != nil {
		return mlerror.Wrap(err)
	}

	ctx := zoo.ModelContext{
		ModelName:             meta.ModelName,
		GraphEncoding:         meta.GraphEncoding,
		ExecutionTarget:       meta.ExecutionTarget,
		Dtype:                 meta.TensorDtype,
		Graph:                 graph,
		GraphExecutionContext: gec,
	}
	if ctx.ModelName == "" {
		ctx.ModelName = modelID
	}

	previous, overwritten := p.zoo.Insert(modelID, ctx)
	if overwritten {
		if p.logger != nil {
			p.logger.Warn("model is already registered, replacing", zap.String("model_id", modelID))
		}
		p.dropModelState(previous)
	}

	if p.metrics != nil {
		p.metrics.SetModelsLoaded(p.zoo.Len())
	}

	return nil
}

// Preempt removes modelID from the zoo and releases its engine-side
// state. It is not an error to preempt a model that is not registered.
func (p *Provider) Preempt(modelID string) (err error) {
	defer func() {
		if p.metrics != nil {
			p.metrics.ObservePreempt(modelID, err)
		}
	}()

	ctx, ok := p.zoo.Delete(modelID)
	if !ok {
		return nil
	}

	p.dropModelState(ctx)

	if p.metrics != nil {
		p.metrics.SetModelsLoaded(p.zoo.Len())
	}

	return nil
}

func (p *Provider) dropModelState(ctx zoo.ModelContext) {
	eng, err := p.engines.Get(ctx.GraphEncoding)
	if err != nil {
		return
	}
	eng.DropModelState(ctx.Graph, ctx.GraphExecutionContext)
	p.gecLock.Forget(ctx.GraphExecutionContext)
}

// Predict runs modelID's registered graph against tensorIn and returns
// the resulting output tensor. set_input/compute/get_output run on the
// blocking pool, serialized per graph execution context by gecLock so
// concurrent predictions against different models never contend.
func (p *Provider) Predict(modelID string, tensorIn tensor.Tensor) (out tensor.Tensor, err error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ObservePredict(modelID, err, time.Since(start))
		}
	}()

	modelCtx, ok := p.zoo.Get(modelID)
	if !ok {
		if p.logger != nil {
			p.logger.Error("predict: model not found", zap.String("model_id", modelID))
		}
		return tensor.Tensor{}, &mlerror.ContextNotFound{Message: fmt.Sprintf("model %q is unknown", modelID)}
	}

	eng, err := p.engines.Get(modelCtx.GraphEncoding)
	if err != nil {
		return tensor.Tensor{}, mlerror.Wrap(err)
	}

	runErr := p.pool.Run(func() error {
		unlock := p.gecLock.Lock(modelCtx.GraphExecutionContext)
		defer unlock()

		if err := eng.SetInput(modelCtx.GraphExecutionContext, 0, tensorIn); err != nil {
			return mlerror.Wrap(err)
		}

		if err := eng.Compute(modelCtx.GraphExecutionContext); err != nil {
			return mlerror.Wrap(err)
		}

		result, err := eng.GetOutput(modelCtx.GraphExecutionContext, 0)
		if err != nil {
			return mlerror.Wrap(err)
		}

		out = result
		return nil
	})

	if runErr != nil {
		if p.logger != nil {
			p.logger.Error("predict: inference failed", zap.String("model_id", modelID), zap.Error(runErr))
		}
		return tensor.Tensor{}, runErr
	}

	return out, nil
}

// ReceiveLinkConfigAsSource records the configuration delivered when
// this provider is linked to a downstream component as the link's
// source.
func (p *Provider) ReceiveLinkConfigAsSource(targetID string, cfg map[string]string) {
	p.linked.putTo(targetID, cfg)
	if p.logger != nil {
		p.logger.Info("finished processing link from provider to component", zap.String("target_id", targetID))
	}
}

// ReceiveLinkConfigAsTarget records the configuration delivered when a
// component links to this provider as the link's target.
func (p *Provider) ReceiveLinkConfigAsTarget(sourceID string, cfg map[string]string) {
	p.linked.putFrom(sourceID, cfg)
	if p.logger != nil {
		p.logger.Info("finished processing link from component to provider", zap.String("source_id", sourceID))
	}
}

// DeleteLinkAsSource removes the link this provider held to target.
func (p *Provider) DeleteLinkAsSource(target string) {
	p.linked.deleteTo(target)
	if p.logger != nil {
		p.logger.Info("finished processing delete link from provider to component", zap.String("target_id", target))
	}
}

// DeleteLinkAsTarget removes the link source held to this provider.
func (p *Provider) DeleteLinkAsTarget(source string) {
	p.linked.deleteFrom(source)
	if p.logger != nil {
		p.logger.Info("finished processing delete link from component to provider", zap.String("source_id", source))
	}
}
