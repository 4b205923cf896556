// Package compositor applies a masking treatment to selected face regions.
package compositor

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"strings"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/fonts"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// Mode is a masking treatment
type Mode string

const (
	ModeBlur  Mode = "blur"
	ModeEmoji Mode = "emoji"
	ModeStyle Mode = "style"
)

// ParseMode accepts the mode names used by the CLI and HTTP API
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBlur, "":
		return ModeBlur, nil
	case ModeEmoji:
		return ModeEmoji, nil
	case ModeStyle, "cartoon":
		return ModeStyle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Stylizer restyles a whole encoded image. format is the image subtype, e.g. "png".
type Stylizer interface {
	Stylize(ctx context.Context, data []byte, format string) ([]byte, error)
}

// Picker chooses an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// DefaultEmoji is the pool faces draw from when no override is given
var DefaultEmoji = []string{"😊", "🥰", "😄", "😃", "😁", "🤗", "😺", "😸"}

// Request is one compositing job. Image is never modified.
type Request struct {
	Image   gocv.Mat
	Targets []detector.BoundingBox
	Mode    Mode
	// Emoji overrides the default pool; one glyph is used for every face,
	// several form a pool
	Emoji string
}

// Compositor applies masking treatments. It holds no per-call state; a shared
// Compositor is safe for concurrent use if its Picker is.
type Compositor struct {
	renderer fonts.Renderer
	stylizer Stylizer
	picker   Picker
	pool     []string
}

// Option configures a Compositor
type Option func(*Compositor)

// WithPicker replaces the random source for emoji choice
func WithPicker(p Picker) Option {
	return func(c *Compositor) {
		c.picker = p
	}
}

// WithEmojiPool replaces DefaultEmoji
func WithEmojiPool(pool []string) Option {
	return func(c *Compositor) {
		if len(pool) > 0 {
			c.pool = pool
		}
	}
}

// New creates a compositor. stylizer may be nil, which makes ModeStyle fail
// with ErrStylizationUnavailable whenever there is a target.
func New(renderer fonts.Renderer, stylizer Stylizer, opts ...Option) *Compositor {
	c := &Compositor{
		renderer: renderer,
		stylizer: stylizer,
		picker:   globalRand{},
		pool:     DefaultEmoji,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Composite returns a new image with the requested treatment applied to the
// targets only. The caller owns the returned Mat.
func (c *Compositor) Composite(ctx context.Context, req Request) (gocv.Mat, error) {
	width, height := req.Image.Cols(), req.Image.Rows()
	fail := func(target int, err error) (gocv.Mat, error) {
		return gocv.Mat{}, &Error{Mode: req.Mode, Width: width, Height: height, Target: target, Err: err}
	}

	if req.Image.Empty() {
		return fail(-1, ErrEmptyImage)
	}

	switch req.Mode {
	case ModeBlur, ModeEmoji, ModeStyle:
	default:
		return fail(-1, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode))
	}

	regions := clampTargets(req.Targets, width, height)

	out := req.Image.Clone()
	if len(regions) == 0 {
		return out, nil
	}

	var err error
	switch req.Mode {
	case ModeBlur:
		err = blurRegions(&out, regions)
	case ModeEmoji:
		err = c.drawEmoji(&out, regions, req.Emoji)
	case ModeStyle:
		err = c.stylizeRegions(ctx, &out, regions)
	}
	if err != nil {
		out.Close()
		return fail(-1, err)
	}

	log.Debug(log.Fields{
		"mode":    string(req.Mode),
		"width":   width,
		"height":  height,
		"targets": len(regions),
	}, "composite applied")
	return out, nil
}

// region is a target clamped to the image with its request index
type region struct {
	index int
	rect  image.Rectangle
}

// clampTargets limits targets to the image and drops those left without area
func clampTargets(targets []detector.BoundingBox, width, height int) []region {
	var regions []region
	for i, box := range targets {
		clamped := box.Clamp(width, height)
		if clamped.Empty() {
			continue
		}
		regions = append(regions, region{index: i, rect: clamped.Rect()})
	}
	return regions
}
