package provider

import (
	"context"
	"runtime"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wamli/inference-provider/internal/engine"
	"github.com/wamli/inference-provider/internal/engine/onnxengine"
	"github.com/wamli/inference-provider/internal/engine/tfliteengine"
	"github.com/wamli/inference-provider/internal/registry"
)

// Module wires the Provider facade: the engine registry (with onnx and
// tflite factories installed), the OCI registry fetcher, and the
// Provider itself, plus a lifecycle hook that prefetches the configured
// models on start and tears down links on stop.
var Module fx.Option = fx.Options(
	fx.Provide(
		provideEngineRegistry,
		provideFetcher,
		providePoolSize,
		New,
	),
	fx.Invoke(registerLifecycle),
)

func provideEngineRegistry(v *viper.Viper) *engine.Registry {
	r := engine.NewRegistry()

	sharedLib := v.GetString("engine.onnx_shared_library_path")
	if sharedLib == "" {
		sharedLib = onnxengine.DefaultSharedLibraryPath()
	}
	r.RegisterFactory(engine.FrameworkTract, func() (engine.Engine, error) {
		return onnxengine.New(sharedLib)
	})

	threads := v.GetInt("engine.tflite_threads")
	r.RegisterFactory(engine.FrameworkTFLite, func() (engine.Engine, error) {
		return tfliteengine.New(threads), nil
	})

	return r
}

func provideFetcher(v *viper.Viper) Fetcher {
	var opts []registry.Option
	if v.GetBool("registry.insecure") {
		opts = append(opts, registry.WithInsecure(true))
	}
	if mt := v.GetString("registry.media_type"); mt != "" {
		opts = append(opts, registry.WithMediaType(mt))
	}
	return registry.New(opts...)
}

func providePoolSize(v *viper.Viper) int {
	if n := v.GetInt("provider.blocking_pool_size"); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func registerLifecycle(lc fx.Lifecycle, p *Provider, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Init(); err != nil {
				logger.Error("failed to prefetch configured models", zap.Error(err))
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Shutdown()
		},
	})
}
