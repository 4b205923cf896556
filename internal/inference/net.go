package inference

import (
	"fmt"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// NetRunner runs a model through OpenCV's DNN module.
type NetRunner struct {
	net       gocv.Net
	modelPath string
	mu        sync.Mutex
}

// NewNetRunner loads an ONNX model into an OpenCV DNN network on the CPU
func NewNetRunner(modelPath string) (*NetRunner, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", modelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &NetRunner{net: net, modelPath: modelPath}, nil
}

// Run executes a forward pass. gocv.Net keeps per-call state, so calls are serialized.
func (r *NetRunner) Run(input Tensor) (Tensor, error) {
	sizes := make([]int, len(input.Shape))
	for i, dim := range input.Shape {
		sizes[i] = int(dim)
	}

	blob, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, float32ToBytes(input.Data))
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to create input blob: %w", err)
	}
	defer blob.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.net.SetInput(blob, "")
	output := r.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to read output of %s: %w", r.modelPath, err)
	}

	dims := output.Size()
	result := Tensor{
		Shape: make([]int64, len(dims)),
		Data:  make([]float32, len(data)),
	}
	for i, dim := range dims {
		result.Shape[i] = int64(dim)
	}
	copy(result.Data, data)
	return result, nil
}

// Close releases the network
func (r *NetRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.net.Close()
}

func float32ToBytes(data []float32) []byte {
	result := make([]byte, len(data)*4)
	for i, v := range data {
		bits := math.Float32bits(v)
		result[i*4] = byte(bits)
		result[i*4+1] = byte(bits >> 8)
		result[i*4+2] = byte(bits >> 16)
		result[i*4+3] = byte(bits >> 24)
	}
	return result
}
