package staticmodel

import (
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// RootKey names the directory a live FsStore is rooted at. When unset,
// Module falls back to the compiled-in demo bundle instead of touching
// the filesystem at all.
const RootKey = "static_model.root"

// Module provides a Store for the admin HTTP surface's static-model
// debug routes, backed by the process's afero.Fs (provided by
// pkg/afero.Module) when a root directory is configured, or by the
// embedded demo bundle otherwise.
var Module fx.Option = fx.Provide(provideStore)

func provideStore(fs afero.Fs, v *viper.Viper) (Store, error) {
	root := v.GetString(RootKey)
	if root == "" {
		return NewDemoStore()
	}
	return NewFsStore(fs, root), nil
}
