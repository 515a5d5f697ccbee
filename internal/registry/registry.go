// Package registry implements the Registry Fetcher: it pulls an OCI
// image by reference and content type and returns the raw bytes of the
// first layer whose media type matches.
package registry

import (
	"fmt"
	"io"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/pkg/errors"

	"github.com/wamli/inference-provider/internal/mlerror"
)

// DefaultMediaType is the content type published by the wamli model
// build pipeline.
const DefaultMediaType = "application/vnd.docker.image.rootfs.diff.tar.gzip"

// OCIMediaType is also accepted, per spec.md §4.1.
const OCIMediaType = "application/vnd.oci.image.layer.v1.tar+gzip"

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMediaType overrides the accepted layer media type. The default
// fetcher also always accepts OCIMediaType regardless of this setting.
func WithMediaType(mediaType string) Option {
	return func(f *Fetcher) { f.mediaType = mediaType }
}

// WithInsecure configures the fetcher to use plain HTTP against the
// registry, for pointing at a local registry (e.g. localhost:5000) in
// integration tests.
func WithInsecure(insecure bool) Option {
	return func(f *Fetcher) { f.insecure = insecure }
}

// Fetcher pulls OCI images and extracts the model layer.
type Fetcher struct {
	mediaType string
	insecure  bool
}

// New constructs a Fetcher with DefaultMediaType unless overridden.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{mediaType: DefaultMediaType}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch concatenates registry and imageRef to obtain the OCI reference,
// pulls the image, and returns the still-compressed bytes of the first
// layer whose media type matches the configured content type
// (layer.Decode gunzips them).
func (f *Fetcher) Fetch(registryHost, imageRef string) ([]byte, error) {
	ref := registryHost + "/" + imageRef

	parsed, err := name.ParseReference(ref, f.nameOptions()...)
	if err != nil {
		return nil, &mlerror.Internal{Message: fmt.Sprintf("invalid image reference %q", ref), Cause: err}
	}

	img, err := remote.Image(parsed)
	if err != nil {
		return nil, ociImageLoadError(ref, err)
	}

	layer, err := f.selectLayer(img)
	if err != nil {
		return nil, ociLayerLoadError(ref, err)
	}

	rc, err := layer.Compressed()
	if err != nil {
		return nil, ociUncompressError(ref, err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, ociUncompressError(ref, err)
	}

	return raw, nil
}

func (f *Fetcher) selectLayer(img v1.Image) (v1.Layer, error) {
	layers, err := img.Layers()
	if err != nil {
		return nil, err
	}

	for _, l := range layers {
		mt, err := l.MediaType()
		if err != nil {
			continue
		}
		if string(mt) == f.mediaType || string(mt) == OCIMediaType {
			return l, nil
		}
	}

	return nil, errors.New("no layer matches the configured media type")
}

func (f *Fetcher) nameOptions() []name.Option {
	if f.insecure {
		return []name.Option{name.Insecure}
	}
	return nil
}

func ociImageLoadError(ref string, cause error) error {
	return &mlerror.Internal{Message: fmt.Sprintf("failed to load OCI image %q", ref), Cause: cause}
}

func ociLayerLoadError(ref string, cause error) error {
	return &mlerror.Internal{Message: fmt.Sprintf("failed to load OCI layer for %q", ref), Cause: cause}
}

func ociUncompressError(ref string, cause error) error {
	return &mlerror.Internal{Message: fmt.Sprintf("failed to decompress OCI layer for %q", ref), Cause: cause}
}
