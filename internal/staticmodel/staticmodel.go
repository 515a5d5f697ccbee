// Package staticmodel is a reference implementation of the static model
// actor contract: a component that serves a single fixed model's bytes
// and metadata document off its own filesystem rather than fetching
// them from a registry. It is a standalone collaborator, grounded on
// pkg/afero's filesystem abstraction; the provider facade never imports
// it directly.
package staticmodel

import (
	"io"
	"path"

	"github.com/spf13/afero"
)

// dataFile and metadataFile are the well-known file names a static
// model directory must contain.
const (
	dataFile     = "model.bin"
	metadataFile = "metadata.json"
)

// Store is the get_data()/get_metadata() actor contract.
type Store interface {
	GetData(modelID string) ([]byte, error)
	GetMetadata(modelID string) ([]byte, error)
}

// FsStore serves models laid out as <root>/<modelID>/model.bin and
// <root>/<modelID>/metadata.json on an afero.Fs. Any afero.Fs works,
// including one built with afero.FromIOFS over an embed.FS for
// compiled-in reference bundles. This is spf13/afero's own Fs interface
// rather than this repository's pkg/afero.Fs extension, since
// afero.FromIOFS only satisfies the former (it has no LOwnership/Lchown
// to offer for a read-only embedded filesystem).
type FsStore struct {
	fs   afero.Fs
	root string
}

// NewFsStore returns a Store rooted at root on fs.
func NewFsStore(fs afero.Fs, root string) *FsStore {
	return &FsStore{fs: fs, root: root}
}

// GetData returns the raw model bytes for modelID.
func (s *FsStore) GetData(modelID string) ([]byte, error) {
	return s.readFile(modelID, dataFile)
}

// GetMetadata returns the JSON metadata document for modelID.
func (s *FsStore) GetMetadata(modelID string) ([]byte, error) {
	return s.readFile(modelID, metadataFile)
}

func (s *FsStore) readFile(modelID, name string) ([]byte, error) {
	f, err := s.fs.Open(path.Join(s.root, modelID, name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}

	return buf, nil
}
