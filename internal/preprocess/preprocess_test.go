package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/tensor"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestConvert_ProducesNCHWShapeAndNormalizedValues(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	in := tensor.Tensor{Data: encodePNG(t, src)}
	out, err := Convert(in, []uint32{1, 3, 4, 4}, tensor.F32)
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 3, 4, 4}, out.Shape)
	assert.Equal(t, tensor.F32, out.Dtype)
	require.NoError(t, out.Validate())

	values, err := tensor.DecodeF32(out.Data)
	require.NoError(t, err)
	require.Len(t, values, 3*4*4)

	// A solid red image, normalized: red channel plane is all (1-mean_r)/std_r.
	wantRed := (1.0 - mean[0]) / std[0]
	for i := 0; i < 16; i++ {
		assert.InDelta(t, wantRed, values[i], 1e-3)
	}
}

func TestConvert_RejectsNonF32Dtype(t *testing.T) {
	src := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	_, err := Convert(tensor.Tensor{Data: src}, []uint32{1, 3, 2, 2}, tensor.U8)
	require.Error(t, err)
	assert.True(t, mlerror.IsProcessor(err))
}

func TestConvert_RejectsNon4DShape(t *testing.T) {
	src := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	_, err := Convert(tensor.Tensor{Data: src}, []uint32{3, 2, 2}, tensor.F32)
	require.Error(t, err)
	assert.True(t, mlerror.IsProcessor(err))
}

func TestConvert_RejectsNonThreeChannelTarget(t *testing.T) {
	src := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	_, err := Convert(tensor.Tensor{Data: src}, []uint32{1, 1, 2, 2}, tensor.F32)
	require.Error(t, err)
	assert.True(t, mlerror.IsProcessor(err))
}

func TestConvert_UndecodableImage_IsProcessorError(t *testing.T) {
	_, err := Convert(tensor.Tensor{Data: []byte("not an image")}, []uint32{1, 3, 2, 2}, tensor.F32)
	require.Error(t, err)
	assert.True(t, mlerror.IsProcessor(err))
}
