// Package preprocess is a reference implementation of the ImageNet
// conversion contract: it decodes an encoded image, resizes it to a
// target shape, and normalizes it into the f32 tensor layout the ONNX
// MobileNet family expects. It is a standalone collaborator, never
// imported by the provider facade itself.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/tensor"
)

// mean and std are the ImageNet per-channel (R,G,B) normalization
// constants used by the reference preprocessor.
var (
	mean = [3]float32{0.485, 0.456, 0.406}
	std  = [3]float32{0.229, 0.224, 0.225}
)

// Convert decodes raw (JPEG/PNG) image bytes carried as t.Data, resizes
// to targetShape (expected [1, channels, height, width]), and returns an
// f32 NCHW tensor normalized to ImageNet statistics. targetDtype is
// validated but only tensor.F32 is currently supported, matching the
// original preprocessor's output contract.
func Convert(t tensor.Tensor, targetShape []uint32, targetDtype tensor.DataType) (tensor.Tensor, error) {
	if targetDtype != tensor.F32 {
		return tensor.Tensor{}, &mlerror.Processor{Message: fmt.Sprintf("unsupported target dtype: %s", targetDtype)}
	}

	if len(targetShape) != 4 || targetShape[0] != 1 {
		return tensor.Tensor{}, &mlerror.Processor{Message: "target shape must be [1, channels, height, width]"}
	}
	channels, height, width := int(targetShape[1]), int(targetShape[2]), int(targetShape[3])
	if channels != 3 {
		return tensor.Tensor{}, &mlerror.Processor{Message: "only 3-channel (RGB) targets are supported"}
	}

	img, _, err := image.Decode(bytes.NewReader(t.Data))
	if err != nil {
		return tensor.Tensor{}, &mlerror.Processor{Message: fmt.Sprintf("failed to decode image: %v", err)}
	}

	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	values := make([]float32, channels*height*width)
	plane := height * width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			pixel := [3]float32{float32(r>>8) / 255.0, float32(g>>8) / 255.0, float32(b>>8) / 255.0}
			for c := 0; c < channels; c++ {
				values[c*plane+y*width+x] = (pixel[c] - mean[c]) / std[c]
			}
		}
	}

	return tensor.Tensor{
		Shape: targetShape,
		Dtype: tensor.F32,
		Data:  tensor.EncodeF32(values),
	}, nil
}
