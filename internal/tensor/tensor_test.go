package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeF32_RoundTrip(t *testing.T) { // invariant 5
	values := []float32{0, 1, -1, 3.14159, float32(math.Inf(1)), float32(math.Inf(-1)), -0.0}

	decoded, err := DecodeF32(EncodeF32(values))
	require.NoError(t, err)
	require.Len(t, decoded, len(values))

	for i := range values {
		assert.Equal(t, math.Float32bits(values[i]), math.Float32bits(decoded[i]), "index %d", i)
	}
}

func TestDecodeF32_RejectsUnalignedLength(t *testing.T) {
	_, err := DecodeF32([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tensor  Tensor
		wantErr bool
	}{
		{"matching f32", Tensor{Shape: []uint32{1, 2}, Dtype: F32, Data: make([]byte, 8)}, false},
		{"short data", Tensor{Shape: []uint32{1, 2}, Dtype: F32, Data: make([]byte, 4)}, true},
		{"na dtype skips check", Tensor{Shape: []uint32{1, 2}, Dtype: NA, Data: nil}, false},
		{"unknown dtype", Tensor{Shape: []uint32{1}, Dtype: "bogus", Data: make([]byte, 4)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tensor.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestElements(t *testing.T) {
	assert.Equal(t, 24, Tensor{Shape: []uint32{2, 3, 4}}.Elements())
	assert.Equal(t, 1, Tensor{Shape: nil}.Elements())
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("F32", false)
	require.NoError(t, err)
	assert.Equal(t, F32, dt)

	dt, err = ParseDataType("bogus", false)
	require.NoError(t, err)
	assert.Equal(t, F32, dt)

	_, err = ParseDataType("bogus", true)
	assert.Error(t, err)
}
