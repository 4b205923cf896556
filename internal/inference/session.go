package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	initialized bool
	initMu      sync.Mutex
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Runner executes a model with exactly one input and one output tensor.
// Implementations must be safe for concurrent Run calls.
type Runner interface {
	Run(input Tensor) (Tensor, error)
	Close() error
}

// Initialize sets up the ONNX Runtime environment (call once at startup).
// An empty libraryPath keeps the runtime's default lookup.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	initialized = true
	return nil
}

// Shutdown cleans up the ONNX Runtime environment
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// ORTRunner runs a model through an ONNX Runtime session on the CPU
type ORTRunner struct {
	session    *ort.DynamicAdvancedSession
	modelPath  string
	inputName  string
	outputName string
}

// NewORTRunner loads modelPath and binds its first input and first output.
func NewORTRunner(modelPath string) (*ORTRunner, error) {
	initMu.Lock()
	ready := initialized
	initMu.Unlock()
	if !ready {
		return nil, fmt.Errorf("ONNX Runtime not initialized, call Initialize() first")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info for %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has %d inputs and %d outputs", modelPath, len(inputs), len(outputs))
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	return &ORTRunner{
		session:    session,
		modelPath:  modelPath,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

// Run executes inference on a single input tensor
func (r *ORTRunner) Run(input Tensor) (Tensor, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// A nil output is allocated by the runtime with the model's output shape
	outputs := []ort.Value{nil}
	if err := r.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return Tensor{}, fmt.Errorf("inference failed on %s: %w", r.modelPath, err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Tensor{}, fmt.Errorf("output %q is not a float32 tensor", r.outputName)
	}

	shape := out.GetShape()
	data := out.GetData()
	result := Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  make([]float32, len(data)),
	}
	copy(result.Data, data)
	return result, nil
}

// Close releases session resources
func (r *ORTRunner) Close() error {
	if r.session != nil {
		return r.session.Destroy()
	}
	return nil
}

// ModelInfo describes a model's tensors without creating a session.
type ModelInfo struct {
	Inputs  []ort.InputOutputInfo
	Outputs []ort.InputOutputInfo
}

// Inspect reads input/output tensor metadata from an ONNX file.
func Inspect(modelPath string) (*ModelInfo, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model info: %w", err)
	}
	return &ModelInfo{Inputs: inputs, Outputs: outputs}, nil
}

// NumElements returns the element count implied by shape.
func NumElements(shape []int64) int64 {
	size := int64(1)
	for _, dim := range shape {
		size *= dim
	}
	return size
}
