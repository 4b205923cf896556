package pipeline

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/selection"
)

// JPEGQuality is used for every encoded output
const JPEGQuality = 95

// PreviewRequest describes the selection to draw. Clicks are applied in order
// with Tool after SelectedIDs.
type PreviewRequest struct {
	SelectedIDs []int
	HoverID     int // 0 means no hover
	Clicks      []image.Point
	Tool        selection.Tool
}

// Output is an encoded result image
type Output struct {
	JPEG     []byte
	Faces    int
	Selected []int
	Fallback bool
}

// Service exposes the pipeline over encoded images, one synchronous call per
// request
type Service struct {
	pipeline *Pipeline
}

// NewService wraps a pipeline
func NewService(p *Pipeline) *Service {
	return &Service{pipeline: p}
}

// Detect returns the faces of an encoded image, largest first
func (s *Service) Detect(data []byte) ([]detector.Face, error) {
	det, err := s.pipeline.Detect(data)
	if err != nil {
		return nil, err
	}
	defer det.Close()

	log.Info(log.Fields{
		"width":  det.Image.Cols(),
		"height": det.Image.Rows(),
		"faces":  len(det.Faces),
	}, detector.Summary(det.Faces))
	return det.Faces, nil
}

// Preview detects faces and draws them with the requested selection state
func (s *Service) Preview(data []byte, req PreviewRequest) (*Output, error) {
	det, err := s.pipeline.Detect(data)
	if err != nil {
		return nil, err
	}
	defer det.Close()

	state := selection.New(det.Registry)
	state.Select(req.SelectedIDs...)
	state.SetTool(req.Tool)
	for _, c := range req.Clicks {
		state.ClickAt(c.X, c.Y)
	}
	if req.HoverID != 0 {
		state.Hover(req.HoverID)
	}

	preview := s.pipeline.Preview(det.Image, det.Faces, state)
	defer preview.Close()

	jpeg, err := encodeJPEG(preview)
	if err != nil {
		return nil, err
	}
	return &Output{JPEG: jpeg, Faces: len(det.Faces), Selected: state.Selected()}, nil
}

// Blur treats the given boxes of an encoded image without running detection
func (s *Service) Blur(ctx context.Context, data []byte, boxes []detector.BoundingBox, mode compositor.Mode, emoji string) (*Output, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	res, err := s.pipeline.Composite(ctx, img, boxes, mode, emoji)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	jpeg, err := encodeJPEG(res.Image)
	if err != nil {
		return nil, err
	}
	return &Output{JPEG: jpeg, Faces: len(boxes), Fallback: res.Fallback}, nil
}

// Process detects faces and treats all of them
func (s *Service) Process(ctx context.Context, data []byte, mode compositor.Mode, emoji string) (*Output, error) {
	res, faces, err := s.pipeline.DetectAndComposite(ctx, data, mode, emoji)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	jpeg, err := encodeJPEG(res.Image)
	if err != nil {
		return nil, err
	}

	log.Info(log.Fields{
		"mode":      string(mode),
		"faces":     len(faces),
		"fallback":  res.Fallback,
		"detect_ms": res.Timing.Detection.Milliseconds(),
		"total_ms":  res.Timing.Total.Milliseconds(),
	}, "image processed")
	return &Output{JPEG: jpeg, Faces: len(faces), Fallback: res.Fallback}, nil
}

func decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w (%d bytes)", detector.ErrImageDecode, len(data))
	}
	return img, nil
}

func encodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("encode %dx%d image: %w", img.Cols(), img.Rows(), err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
