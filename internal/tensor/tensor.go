package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tensor is the wire representation of a typed, row-major n-dimensional
// array: shape extents, a dtype tag, and the packed little-endian bytes.
type Tensor struct {
	Shape []uint32 `json:"shape"`
	Dtype DataType `json:"dtype"`
	Data  []byte   `json:"data"`
}

// Elements returns the product of Shape, i.e. the number of elements the
// Tensor is declared to hold.
func (t Tensor) Elements() int {
	n := 1
	for _, s := range t.Shape {
		n *= int(s)
	}
	return n
}

// Validate checks the data.length == product(shape) * size_of(dtype)
// invariant. Producers guarantee it; consumers may reject on mismatch by
// calling Validate at their boundary.
func (t Tensor) Validate() error {
	if t.Dtype == NA {
		return nil
	}

	size := t.Dtype.Size()
	if size == 0 {
		return fmt.Errorf("tensor: unknown dtype %q", t.Dtype)
	}

	want := t.Elements() * size
	if len(t.Data) != want {
		return fmt.Errorf("tensor: data length %d does not match shape %v and dtype %s (want %d)", len(t.Data), t.Shape, t.Dtype, want)
	}

	return nil
}

// DecodeF32 decodes t.Data as a little-endian []float32 sequence.
func DecodeF32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("tensor: f32 data length %d is not a multiple of 4", len(data))
	}

	out := make([]float32, len(data)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}

	return out, nil
}

// EncodeF32 encodes a []float32 sequence as little-endian bytes.
func EncodeF32(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(v))
	}

	return out
}
