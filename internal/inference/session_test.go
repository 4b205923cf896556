package inference

import (
	"math"
	"testing"
)

func TestNumElements(t *testing.T) {
	tests := []struct {
		name  string
		shape []int64
		want  int64
	}{
		{"yolo input", []int64{1, 3, 640, 640}, 1228800},
		{"yolo output", []int64{1, 5, 8400}, 42000},
		{"scalar", nil, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NumElements(tc.shape); got != tc.want {
				t.Errorf("NumElements(%v) = %d, want %d", tc.shape, got, tc.want)
			}
		})
	}
}

func TestFloat32ToBytesLittleEndian(t *testing.T) {
	in := []float32{0, 1, -2.5, float32(math.Pi)}
	out := float32ToBytes(in)

	if len(out) != len(in)*4 {
		t.Fatalf("len = %d, want %d", len(out), len(in)*4)
	}

	for i, want := range in {
		bits := uint32(out[i*4]) | uint32(out[i*4+1])<<8 | uint32(out[i*4+2])<<16 | uint32(out[i*4+3])<<24
		if got := math.Float32frombits(bits); got != want {
			t.Errorf("element %d = %v, want %v", i, got, want)
		}
	}
}

func TestNewORTRunnerRequiresInitialize(t *testing.T) {
	if _, err := NewORTRunner("missing.onnx"); err == nil {
		t.Fatal("expected error before Initialize")
	}
}

func TestNewNetRunnerMissingFile(t *testing.T) {
	if _, err := NewNetRunner("does/not/exist.onnx"); err == nil {
		t.Fatal("expected error for missing model")
	}
}
