package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var configFilePath string
var debug bool

// ProviderModule represents a runnable mode of the inference-provider binary.
// Only one mode ships today (serve), but the shape mirrors the agent
// framework this binary was split out of so new modes (e.g. a one-shot
// "validate-model" command) can be added without touching main.go.
type ProviderModule interface {
	Name() string
	ShortDescription() string
	LongDescription() string
	FxModules() []fx.Option

	// ConfigureCommand lets a module add subcommands, custom flags, etc.
	ConfigureCommand(*cobra.Command)

	// Start is the default action when no subcommand is specified.
	Start() error
}

// CreateProviderCommand creates a cobra command for a ProviderModule.
func CreateProviderCommand(module ProviderModule) *cobra.Command {
	cmd := &cobra.Command{
		Use:   module.Name(),
		Short: module.ShortDescription(),
		Long:  module.LongDescription(),
	}

	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")

	module.ConfigureCommand(cmd)

	return cmd
}

// runProviderCommand wires the module's fx graph and runs action in the
// background, shutting the app down once it returns.
func runProviderCommand(cmd *cobra.Command, module ProviderModule, action func() error) {
	options := []fx.Option{
		configProvider(cmd, module),
	}

	options = append(options, module.FxModules()...)

	options = append(options, fx.Invoke(func(lc fx.Lifecycle, l *zap.Logger, sh fx.Shutdowner) {
		lc.Append(
			fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := action(); err != nil {
							l.Error(module.Name()+" encountered an error during execution", zap.Error(err))
							os.Exit(1)
						}
						if err := sh.Shutdown(); err != nil {
							l.Error("failed to shut down "+module.Name(), zap.Error(err))
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return nil
				},
			})
	}))

	app := fx.New(fx.Options(options...))
	app.Run()
	_ = app.Stop(context.Background())
}
