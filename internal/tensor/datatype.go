// Package tensor defines the DataType and Tensor value types shared by the
// model zoo, the engines, and the HTTP surface.
package tensor

import (
	"fmt"
	"strings"
)

// DataType is a tagged enumeration of the tensor element types the wire
// format can carry.
type DataType string

const (
	U8   DataType = "u8"
	U16  DataType = "u16"
	U32  DataType = "u32"
	U64  DataType = "u64"
	U128 DataType = "u128"
	S8   DataType = "s8"
	S16  DataType = "s16"
	S32  DataType = "s32"
	S64  DataType = "s64"
	S128 DataType = "s128"
	F16  DataType = "f16"
	F32  DataType = "f32"
	F64  DataType = "f64"
	F128 DataType = "f128"
	NA   DataType = "na"
)

// sizes maps a DataType to the byte width of one element. NA has no
// defined width.
var sizes = map[DataType]int{
	U8: 1, S8: 1,
	U16: 2, S16: 2, F16: 2,
	U32: 4, S32: 4, F32: 4,
	U64: 8, S64: 8, F64: 8,
	U128: 16, S128: 16, F128: 16,
}

// Size returns the byte width of one element of d, or 0 for NA or an
// unrecognized DataType.
func (d DataType) Size() int {
	return sizes[d]
}

// Valid reports whether d is one of the known DataType members.
func (d DataType) Valid() bool {
	if d == NA {
		return true
	}
	_, ok := sizes[d]
	return ok
}

// ParseDataType parses a case-insensitive DataType string.
//
// When strict is false (engine-side metadata parsing), an unknown string
// silently defaults to F32. When strict is true (the client-facing API
// surface), an unknown string is rejected.
func ParseDataType(s string, strict bool) (DataType, error) {
	dt := DataType(strings.ToLower(s))
	if dt.Valid() {
		return dt, nil
	}

	if strict {
		return "", fmt.Errorf("invalid data type: %q", s)
	}

	return F32, nil
}
