package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/wamli/inference-provider/internal/config"
	"github.com/wamli/inference-provider/internal/httpapi"
	"github.com/wamli/inference-provider/internal/metrics"
	"github.com/wamli/inference-provider/internal/provider"
	"github.com/wamli/inference-provider/internal/staticmodel"
	"github.com/wamli/inference-provider/pkg/afero"
	"github.com/wamli/inference-provider/pkg/logging"
)

// ServeCommand runs the inference provider's admin HTTP surface, dispatching
// predict/prefetch/preempt calls to the model zoo and engine registry.
type ServeCommand struct {
	server *httpapi.Server
}

func (s *ServeCommand) Name() string {
	return "serve"
}

func (s *ServeCommand) ShortDescription() string {
	return "Run the inference provider HTTP surface"
}

func (s *ServeCommand) LongDescription() string {
	return "serve starts the model zoo, prefetches any models configured at startup, and exposes predict/prefetch/preempt over HTTP."
}

func (s *ServeCommand) ConfigureCommand(cmd *cobra.Command) {
	cmd.Run = func(cmd *cobra.Command, args []string) {
		runProviderCommand(cmd, s, s.Start)
	}
}

func (s *ServeCommand) FxModules() []fx.Option {
	return []fx.Option{
		afero.Module,
		logging.Module,
		config.Module,
		metrics.Module,
		provider.Module,
		staticmodel.Module,
		httpapi.Module,
		fx.Populate(&s.server),
	}
}

func (s *ServeCommand) Start() error {
	return s.server.Serve()
}

func NewServeCommand() *ServeCommand {
	return &ServeCommand{}
}
