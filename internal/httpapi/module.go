package httpapi

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wamli/inference-provider/internal/provider"
	"github.com/wamli/inference-provider/internal/staticmodel"
)

// DefaultAddr is used when http.addr is unset in configuration.
const DefaultAddr = ":8081"

// Module provides the admin HTTP Server and registers its graceful
// shutdown with the fx lifecycle. Start is driven by the CLI's action
// (see cmd/inference-provider), not by this lifecycle hook, so that the
// blocking Serve() call runs after every other module has started.
var Module fx.Option = fx.Options(
	fx.Provide(provideServer),
	fx.Invoke(registerLifecycle),
)

func provideServer(v *viper.Viper, p *provider.Provider, staticModels staticmodel.Store, logger *zap.Logger) *Server {
	addr := v.GetString("http.addr")
	if addr == "" {
		addr = DefaultAddr
	}
	return NewServer(p, staticModels, logger, addr)
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
