package detector

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/inference"
)

// ErrImageDecode is returned when input bytes are not a decodable raster
var ErrImageDecode = errors.New("detector: cannot decode image")

// predictionWidth is the row size of the model output: cx, cy, w, h, confidence
const predictionWidth = 5

// Config holds detector configuration
type Config struct {
	InputSize     int     // square model input side S
	ConfThreshold float32 // minimum confidence kept before NMS
	NMSThreshold  float32 // IoU above which a lower-scored box is dropped
}

// DefaultConfig returns production defaults for a YOLOv8 face model
func DefaultConfig() Config {
	return Config{
		InputSize:     640,
		ConfThreshold: 0.25,
		NMSThreshold:  0.5,
	}
}

// YOLOFace detects faces with a single-class YOLO model.
// It holds no per-call state and is safe for concurrent use when its Runner is.
type YOLOFace struct {
	runner inference.Runner
	config Config
}

// New creates a detector around an already loaded model runner
func New(runner inference.Runner, config Config) *YOLOFace {
	return &YOLOFace{
		runner: runner,
		config: config,
	}
}

// Detect decodes data and finds faces in it. The returned Mat is owned by the
// caller and must not be used when err is non-nil.
func (d *YOLOFace) Detect(data []byte) (gocv.Mat, []Face, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		img.Close()
		return gocv.Mat{}, nil, fmt.Errorf("%w (%d bytes): %v", ErrImageDecode, len(data), err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, nil, fmt.Errorf("%w (%d bytes)", ErrImageDecode, len(data))
	}

	faces, err := d.DetectMat(img)
	if err != nil {
		img.Close()
		return gocv.Mat{}, nil, err
	}

	return img, faces, nil
}

// DetectMat finds faces in a decoded BGR image. An image without faces
// yields an empty slice and a nil error.
func (d *YOLOFace) DetectMat(img gocv.Mat) ([]Face, error) {
	origWidth := img.Cols()
	origHeight := img.Rows()

	input, err := d.preprocess(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess %dx%d image: %w", origWidth, origHeight, err)
	}

	output, err := d.runner.Run(input)
	if err != nil {
		return nil, fmt.Errorf("inference on %dx%d image: %w", origWidth, origHeight, err)
	}

	cands, err := decode(output, d.config.InputSize, origWidth, origHeight, d.config.ConfThreshold)
	if err != nil {
		return nil, fmt.Errorf("decode output for %dx%d image: %w", origWidth, origHeight, err)
	}

	kept := nms(cands, float64(d.config.NMSThreshold))
	return assignIDs(kept), nil
}

// Close releases the model runner
func (d *YOLOFace) Close() error {
	return d.runner.Close()
}

// preprocess resizes to S×S without letterboxing, swaps BGR to RGB,
// scales to [0,1] and lays the pixels out as a 1×3×S×S tensor
func (d *YOLOFace) preprocess(img gocv.Mat) (inference.Tensor, error) {
	size := d.config.InputSize

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return inference.Tensor{}, err
	}

	tensor := inference.Tensor{
		Shape: []int64{1, 3, int64(size), int64(size)},
		Data:  make([]float32, len(data)),
	}
	copy(tensor.Data, data)
	return tensor, nil
}

// decode converts raw predictions into clamped corner boxes in source pixels.
// Output may be [1,5,N] (one row per field) or [1,N,5] (one row per prediction).
func decode(output inference.Tensor, inputSize, origWidth, origHeight int, threshold float32) ([]candidate, error) {
	numPreds, fieldsFirst, err := predictionLayout(output.Shape, len(output.Data))
	if err != nil {
		return nil, err
	}

	at := func(i, k int) float32 {
		if fieldsFirst {
			return output.Data[k*numPreds+i]
		}
		return output.Data[i*predictionWidth+k]
	}

	// Resize was independent per axis, so is the inverse
	scaleX := float64(origWidth) / float64(inputSize)
	scaleY := float64(origHeight) / float64(inputSize)

	var cands []candidate
	for i := 0; i < numPreds; i++ {
		confidence := at(i, 4)
		if confidence < threshold {
			continue
		}

		cx := float64(at(i, 0))
		cy := float64(at(i, 1))
		w := float64(at(i, 2))
		h := float64(at(i, 3))

		box := BoundingBox{
			X1: int((cx - w/2) * scaleX),
			Y1: int((cy - h/2) * scaleY),
			X2: int((cx + w/2) * scaleX),
			Y2: int((cy + h/2) * scaleY),
		}.Clamp(origWidth, origHeight)

		if box.Empty() {
			continue
		}

		cands = append(cands, candidate{box: box, score: confidence})
	}

	return cands, nil
}

// predictionLayout returns the prediction count and whether fields are the outer axis
func predictionLayout(shape []int64, size int) (int, bool, error) {
	dims := shape
	if len(dims) == 3 && dims[0] == 1 {
		dims = dims[1:]
	}
	if len(dims) != 2 {
		return 0, false, fmt.Errorf("unexpected output shape %v", shape)
	}

	var numPreds int
	var fieldsFirst bool
	switch {
	case dims[0] == predictionWidth:
		numPreds, fieldsFirst = int(dims[1]), true
	case dims[1] == predictionWidth:
		numPreds, fieldsFirst = int(dims[0]), false
	default:
		return 0, false, fmt.Errorf("output shape %v has no axis of %d", shape, predictionWidth)
	}

	if numPreds*predictionWidth != size {
		return 0, false, fmt.Errorf("output shape %v does not match %d values", shape, size)
	}
	return numPreds, fieldsFirst, nil
}
