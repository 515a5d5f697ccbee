package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/wamli/inference-provider/pkg/configutils"
)

// appEnvPrefix is the prefix used for environment variable overrides, e.g.
// INFERENCE_PROVIDER_LOGGING_LEVEL=debug.
const appEnvPrefix = "INFERENCE_PROVIDER"

func configProvider(cli *cobra.Command, module ProviderModule) fx.Option {
	return fx.Provide(func() (*viper.Viper, error) {
		v := viper.GetViper()

		v.SetEnvPrefix(appEnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.BindPFlag("debug", cli.Flags().Lookup("debug")); err != nil {
			panic(err)
		}

		if configFilePath == "" {
			return nil, errors.New("no config file provided")
		}

		if err := configutils.ResolveAndMergeFile(v, configFilePath); err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}

		// viper.UnmarshalKey only consults the values it read from file,
		// so re-Set everything to pick up environment overrides too.
		for _, key := range v.AllKeys() {
			v.Set(key, v.Get(key))
		}
		return v, nil
	})
}
