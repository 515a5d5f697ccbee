// Package layer implements the Layer Decoder: it gzip-decompresses a
// registry layer and extracts exactly two entries from its tar archive —
// the first *.json metadata document and the first non-JSON model
// binary. Both selections are required.
package layer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
)

// Decode gzip-decompresses r, walks the resulting tar archive, and
// returns the first *.json entry as metadata and the first non-JSON
// entry as the model binary.
func Decode(r io.Reader) (metadata []byte, model []byte, err error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to gunzip layer")
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to read tar archive")
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		if metadata == nil && filepath.Ext(hdr.Name) == ".json" {
			b, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, errors.Wrap(err, "failed to read metadata entry")
			}
			metadata = b
			continue
		}

		if model == nil && filepath.Ext(hdr.Name) != ".json" {
			b, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, errors.Wrap(err, "failed to read model entry")
			}
			model = b
			continue
		}
	}

	if metadata == nil {
		return nil, nil, errors.New("no JSON file found in model layer archive")
	}
	if model == nil {
		return nil, nil, errors.New("no model file found in model layer archive")
	}

	return metadata, model, nil
}

// NewReader is a small helper for tests that have the raw layer bytes in
// memory rather than an io.Reader from the registry fetch path.
func NewReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
