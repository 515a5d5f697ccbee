// Package modelmeta parses the JSON metadata document packaged alongside
// every model binary in the registry layer.
package modelmeta

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wamli/inference-provider/internal/tensor"
)

// GraphEncoding identifies the on-disk format of a model's graph.
type GraphEncoding string

const (
	EncodingOnnx       GraphEncoding = "onnx"
	EncodingTFLite     GraphEncoding = "tflite"
	EncodingOpenVino   GraphEncoding = "openvino"
	EncodingTensorflow GraphEncoding = "tensorflow"
)

// ParseGraphEncoding parses a case-insensitive graph_encoding string.
// Unlike ExecutionTarget/DataType, an unknown encoding is always fatal.
func ParseGraphEncoding(s string) (GraphEncoding, error) {
	switch GraphEncoding(strings.ToLower(s)) {
	case EncodingOnnx:
		return EncodingOnnx, nil
	case EncodingTFLite:
		return EncodingTFLite, nil
	case EncodingOpenVino:
		return EncodingOpenVino, nil
	case EncodingTensorflow:
		return EncodingTensorflow, nil
	default:
		return "", fmt.Errorf("invalid graph encoding: %q", s)
	}
}

// ExecutionTarget identifies the hardware class requested for inference.
type ExecutionTarget string

const (
	TargetCPU ExecutionTarget = "cpu"
	TargetGPU ExecutionTarget = "gpu"
	TargetTPU ExecutionTarget = "tpu"
	TargetNPU ExecutionTarget = "npu"
)

// ParseExecutionTarget parses a case-insensitive execution_target string.
// An unknown value defaults to cpu; the caller is expected to log a
// warning when ok is false.
func ParseExecutionTarget(s string) (target ExecutionTarget, ok bool) {
	switch ExecutionTarget(strings.ToLower(s)) {
	case TargetCPU:
		return TargetCPU, true
	case TargetGPU:
		return TargetGPU, true
	case TargetTPU:
		return TargetTPU, true
	case TargetNPU:
		return TargetNPU, true
	default:
		return TargetCPU, false
	}
}

// Metadata is the decoded form of the JSON metadata document found
// alongside the model binary in the registry layer.
type Metadata struct {
	ModelName       string
	GraphEncoding   GraphEncoding
	ExecutionTarget ExecutionTarget
	TensorDtype     tensor.DataType
	TensorShapeIn   []uint32
	TensorShapeOut  []uint32
}

// wireMetadata mirrors the raw JSON shape; every field but graph_encoding
// is optional and default-tolerant.
type wireMetadata struct {
	ModelName       *string  `json:"model_name"`
	GraphEncoding   string   `json:"graph_encoding"`
	ExecutionTarget *string  `json:"execution_target"`
	TensorDtype     *string  `json:"tensor_dtype"`
	TensorShapeIn   []uint32 `json:"tensor_shape_in"`
	TensorShapeOut  []uint32 `json:"tensor_shape_out"`
}

// Parse decodes the JSON metadata document with default-tolerant
// semantics. graph_encoding is mandatory and fails parsing outright when
// missing or unrecognized; execution_target and tensor_dtype default
// substitute with a logged warning when absent or invalid.
func Parse(b []byte, logger *zap.Logger) (Metadata, error) {
	var wire wireMetadata
	if err := json.Unmarshal(b, &wire); err != nil {
		return Metadata{}, fmt.Errorf("malformed metadata json: %w", err)
	}

	if wire.GraphEncoding == "" {
		return Metadata{}, fmt.Errorf("metadata is missing required field graph_encoding")
	}

	encoding, err := ParseGraphEncoding(wire.GraphEncoding)
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		GraphEncoding:  encoding,
		TensorShapeIn:  wire.TensorShapeIn,
		TensorShapeOut: wire.TensorShapeOut,
	}

	if wire.ModelName != nil {
		meta.ModelName = *wire.ModelName
	}

	meta.ExecutionTarget = TargetCPU
	if wire.ExecutionTarget != nil {
		target, ok := ParseExecutionTarget(*wire.ExecutionTarget)
		meta.ExecutionTarget = target
		if !ok && logger != nil {
			logger.Warn("unrecognized execution_target, defaulting to cpu", zap.String("value", *wire.ExecutionTarget))
		}
	}

	meta.TensorDtype = tensor.F32
	if wire.TensorDtype != nil {
		dtype, err := tensor.ParseDataType(*wire.TensorDtype, false)
		if err != nil {
			// ParseDataType(strict=false) never errors, but guard anyway.
			if logger != nil {
				logger.Warn("unrecognized tensor_dtype, defaulting to f32", zap.String("value", *wire.TensorDtype))
			}
			dtype = tensor.F32
		} else if strings.ToLower(*wire.TensorDtype) != string(dtype) {
			if logger != nil {
				logger.Warn("unrecognized tensor_dtype, defaulting to f32", zap.String("value", *wire.TensorDtype))
			}
		}
		meta.TensorDtype = dtype
	}

	return meta, nil
}
