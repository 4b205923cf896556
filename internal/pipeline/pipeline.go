// Package pipeline runs detection, selection and compositing for callers such
// as the CLI, the HTTP server and the interactive window.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/config"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/fonts"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/inference"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/stylize"
)

// Timing holds performance timing information
type Timing struct {
	Detection time.Duration
	Composite time.Duration
	Total     time.Duration
}

// Detection is a decoded image with its faces, largest first
type Detection struct {
	Image    gocv.Mat
	Faces    []detector.Face
	Registry *detector.Registry
	Timing   Timing
}

// Close releases the decoded image
func (d *Detection) Close() error {
	return d.Image.Close()
}

// Result is a composited image. Fallback is set when stylization failed and
// the original image was returned instead.
type Result struct {
	Image    gocv.Mat
	Fallback bool
	Timing   Timing
}

// Close releases the result image
func (r *Result) Close() error {
	return r.Image.Close()
}

// Pipeline orchestrates detection and compositing. It keeps no per-call
// state and is safe for concurrent use when its parts are.
type Pipeline struct {
	detector   FaceDetector
	compositor Compositor
	fallback   Fallback
	closers    []func() error
}

// New creates a pipeline from already constructed parts
func New(det FaceDetector, comp Compositor, fallback Fallback) *Pipeline {
	if fallback == "" {
		fallback = FallbackOriginal
	}
	return &Pipeline{
		detector:   det,
		compositor: comp,
		fallback:   fallback,
	}
}

// Open builds the production pipeline from configuration: the shared
// detector, the shared emoji font and, when an API key is set, the Gemini
// stylizer
func Open(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	det, err := detector.Shared(detector.Config{
		InputSize:     cfg.InputSize,
		ConfThreshold: cfg.ConfThreshold,
		NMSThreshold:  cfg.NMSThreshold,
	}, func() (inference.Runner, error) {
		return inference.Open(cfg.ModelBackend, cfg.ModelPath, cfg.ORTLibraryPath)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load detector %s: %w", cfg.ModelPath, err)
	}

	closers := []func() error{detector.CloseShared, inference.Shutdown}

	var stylizer compositor.Stylizer
	gemini, err := stylize.NewGemini(ctx, stylize.Options{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Timeout:     cfg.StylizeTimeout,
		MinInterval: cfg.StylizeMinInterval,
	})
	switch {
	case err == nil:
		stylizer = gemini
		closers = append([]func() error{gemini.Close}, closers...)
	case errors.Is(err, stylize.ErrNoAPIKey):
		log.Warn(nil, "GEMINI_API_KEY not set, style mode unavailable")
	default:
		log.Warn(log.Fields{"error": err.Error()}, "stylizer unavailable")
	}

	comp := compositor.New(fonts.Shared(cfg.FontPath), stylizer)

	p := New(det, comp, Fallback(cfg.StylizeFallback))
	p.closers = closers
	return p, nil
}

// Detect decodes data and finds its faces. No faces is a valid, empty result.
func (p *Pipeline) Detect(data []byte) (*Detection, error) {
	start := time.Now()
	img, faces, err := p.detector.Detect(data)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	log.Debug(log.Fields{
		"width":   img.Cols(),
		"height":  img.Rows(),
		"faces":   len(faces),
		"elapsed": elapsed.String(),
	}, "detection completed")

	return &Detection{
		Image:    img,
		Faces:    faces,
		Registry: detector.NewRegistry(faces),
		Timing:   Timing{Detection: elapsed, Total: elapsed},
	}, nil
}

// Preview draws the faces with their selection state onto a copy of img
func (p *Pipeline) Preview(img gocv.Mat, faces []detector.Face, sel compositor.Selection) gocv.Mat {
	return compositor.Preview(img, faces, sel)
}

// Composite applies mode to the targets of img. A failed stylization follows
// the pipeline's fallback policy.
func (p *Pipeline) Composite(ctx context.Context, img gocv.Mat, targets []detector.BoundingBox, mode compositor.Mode, emoji string) (*Result, error) {
	start := time.Now()
	out, err := p.compositor.Composite(ctx, compositor.Request{
		Image:   img,
		Targets: targets,
		Mode:    mode,
		Emoji:   emoji,
	})
	elapsed := time.Since(start)

	if err != nil {
		if p.fallback == FallbackOriginal && errors.Is(err, compositor.ErrStylizationUnavailable) {
			log.Warn(log.Fields{
				"mode":    string(mode),
				"width":   img.Cols(),
				"height":  img.Rows(),
				"targets": len(targets),
				"error":   err.Error(),
			}, "stylization failed, returning original image")
			return &Result{
				Image:    img.Clone(),
				Fallback: true,
				Timing:   Timing{Composite: elapsed, Total: elapsed},
			}, nil
		}
		return nil, err
	}

	return &Result{
		Image:  out,
		Timing: Timing{Composite: elapsed, Total: elapsed},
	}, nil
}

// DetectAndComposite detects faces in data and treats all of them
func (p *Pipeline) DetectAndComposite(ctx context.Context, data []byte, mode compositor.Mode, emoji string) (*Result, []detector.Face, error) {
	start := time.Now()

	det, err := p.Detect(data)
	if err != nil {
		return nil, nil, err
	}
	defer det.Close()

	res, err := p.Composite(ctx, det.Image, detector.Boxes(det.Faces), mode, emoji)
	if err != nil {
		return nil, det.Faces, err
	}

	res.Timing.Detection = det.Timing.Detection
	res.Timing.Total = time.Since(start)
	return res, det.Faces, nil
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error
	for _, closeFn := range p.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
