package staticmodel

import (
	"embed"
	"io/fs"

	"github.com/spf13/afero"
)

//go:embed testdata
var demoFS embed.FS

// NewDemoStore returns an FsStore serving the compiled-in reference
// bundle under testdata/, useful for exercising the static model
// contract without a registry.
func NewDemoStore() (*FsStore, error) {
	sub, err := fs.Sub(demoFS, "testdata")
	if err != nil {
		return nil, err
	}

	return NewFsStore(afero.FromIOFS{FS: sub}, ""), nil
}
