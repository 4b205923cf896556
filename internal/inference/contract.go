package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// predictionFields is cx, cy, w, h, confidence
const predictionFields = 5

// CheckDetector verifies the model takes one float32 1×3×S×S image and
// produces float32 predictions shaped [1,5,N] or [1,N,5]. Dynamic dimensions
// (-1) are accepted anywhere.
func (m *ModelInfo) CheckDetector(inputSize int) error {
	if len(m.Inputs) != 1 {
		return fmt.Errorf("model has %d inputs, want 1", len(m.Inputs))
	}
	if len(m.Outputs) == 0 {
		return fmt.Errorf("model has no outputs")
	}

	in := m.Inputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat {
		return fmt.Errorf("input %q has type %v, want float32", in.Name, in.DataType)
	}
	want := []int64{1, 3, int64(inputSize), int64(inputSize)}
	if len(in.Dimensions) != len(want) {
		return fmt.Errorf("input %q has shape %v, want %v", in.Name, in.Dimensions, want)
	}
	for i, dim := range in.Dimensions {
		if dim != -1 && dim != want[i] {
			return fmt.Errorf("input %q has shape %v, want %v", in.Name, in.Dimensions, want)
		}
	}

	out := m.Outputs[0]
	if out.DataType != ort.TensorElementDataTypeFloat {
		return fmt.Errorf("output %q has type %v, want float32", out.Name, out.DataType)
	}
	dims := out.Dimensions
	if len(dims) != 3 || (dims[0] != 1 && dims[0] != -1) {
		return fmt.Errorf("output %q has shape %v, want [1,5,N] or [1,N,5]", out.Name, dims)
	}
	if !fits(dims[1]) && !fits(dims[2]) {
		return fmt.Errorf("output %q has shape %v, no axis of %d", out.Name, dims, predictionFields)
	}
	return nil
}

func fits(dim int64) bool {
	return dim == predictionFields || dim == -1
}
