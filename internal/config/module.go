package config

import (
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a *Config built from the global *viper.Viper assembled
// by the CLI.
var Module fx.Option = fx.Provide(
	func(v *viper.Viper, logger *zap.Logger) *Config { return New(v, logger) },
)
