package pipeline

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
)

// FaceDetector finds faces in encoded or decoded images
type FaceDetector interface {
	Detect(data []byte) (gocv.Mat, []detector.Face, error)
	DetectMat(img gocv.Mat) ([]detector.Face, error)
}

// Compositor applies a masking treatment to target regions
type Compositor interface {
	Composite(ctx context.Context, req compositor.Request) (gocv.Mat, error)
}

// Fallback decides what a failed style-region request returns
type Fallback string

const (
	// FallbackOriginal returns the untouched image and flags the result
	FallbackOriginal Fallback = "original"
	// FallbackError fails the request
	FallbackError Fallback = "error"
)
