package inference

import "fmt"

// Backends accepted by Open.
const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
)

// Open loads modelPath with the named backend. libraryPath is only used by the
// ONNX backend.
func Open(backend, modelPath, libraryPath string) (Runner, error) {
	switch backend {
	case BackendONNX, "":
		if err := Initialize(libraryPath); err != nil {
			return nil, err
		}
		return NewORTRunner(modelPath)
	case BackendOpenCV:
		return NewNetRunner(modelPath)
	default:
		return nil, fmt.Errorf("invalid backend: %s (use 'onnx' or 'opencv')", backend)
	}
}
