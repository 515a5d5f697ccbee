// Package postprocess is a reference implementation of the ImageNet
// classifier contract: it decodes a model's raw output tensor into the
// top-5 labeled probabilities. It is a standalone collaborator, never
// imported by the provider facade itself.
package postprocess

import (
	"sort"

	"github.com/wamli/inference-provider/internal/mlerror"
	"github.com/wamli/inference-provider/internal/tensor"
)

// Classification is one labeled probability in a classify() result.
type Classification struct {
	Label       string
	Probability float32
}

// Classify decodes t's little-endian f32 payload and returns the top-5
// classes sorted descending by probability, tie-broken by lower index.
// A length of 1000 is treated as raw ONNX logits and run through softmax
// first; a length of 1001 (the TFLite convention, which reserves index 0
// for "background") is assumed already normalized. Any other length is a
// Processor error.
func Classify(t tensor.Tensor, labels []string) ([]Classification, error) {
	values, err := tensor.DecodeF32(t.Data)
	if err != nil {
		return nil, &mlerror.Processor{Message: err.Error()}
	}

	switch len(values) {
	case 1000:
		softmax(values)
	case 1001:
		// already normalized, nothing to do
	default:
		return nil, &mlerror.Processor{Message: "unsupported classifier output length"}
	}

	type indexed struct {
		index int
		value float32
	}
	ranked := make([]indexed, len(values))
	for i, v := range values {
		ranked[i] = indexed{index: i, value: v}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].value != ranked[j].value {
			return ranked[i].value > ranked[j].value
		}
		return ranked[i].index < ranked[j].index
	})

	top := 5
	if top > len(ranked) {
		top = len(ranked)
	}

	out := make([]Classification, top)
	for i := 0; i < top; i++ {
		label := ""
		if idx := ranked[i].index; idx >= 0 && idx < len(labels) {
			label = labels[idx]
		}
		out[i] = Classification{Label: label, Probability: ranked[i].value}
	}

	return out, nil
}

// softmax applies the softmax function to values in place, across the
// single axis the classifier's flattened output represents.
func softmax(values []float32) {
	var max float32
	for i, v := range values {
		if i == 0 || v > max {
			max = v
		}
	}

	var sum float32
	for i, v := range values {
		e := expf32(v - max)
		values[i] = e
		sum += e
	}

	if sum == 0 {
		return
	}
	for i := range values {
		values[i] /= sum
	}
}
