package fonts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"
)

// Variant is how a font can be rasterized
type Variant int

const (
	// Vector fonts draw at any size
	Vector Variant = iota
	// Bitmap fonts draw at one fixed size and are resampled
	Bitmap
)

func (v Variant) String() string {
	if v == Bitmap {
		return "bitmap"
	}
	return "vector"
}

// GlyphColor fills monochrome glyphs
var GlyphColor = color.RGBA{R: 255, G: 204, B: 0, A: 255}

const zeroWidthJoiner = 0x200D

// fallbackText is drawn by the built-in font for glyphs it lacks
const fallbackText = ":)"

// Renderer draws a single glyph (one grapheme cluster) centered on a point
type Renderer interface {
	Name() string
	Variant() Variant
	// Draw renders glyph so its em size is size pixels, centered on center
	Draw(dst draw.Image, glyph string, center image.Point, size int) error
}

type glyphRenderer struct {
	name      string
	variant   Variant
	fixedSize int

	// newFace returns a fresh face, faces are not safe for concurrent use
	newFace func(size float64) (font.Face, error)
	// covers reports ErrGlyphUnsupported for glyphs the font cannot draw
	covers func(glyph string) error
	// substitute replaces unsupported glyphs when set
	substitute string
}

func newVector(name string, f *sfnt.Font) *glyphRenderer {
	return &glyphRenderer{
		name:    name,
		variant: Vector,
		newFace: opentypeFace(f),
		covers:  sfntCovers(f, 64),
	}
}

func newBitmap(name string, f *sfnt.Font, fixedSize int) *glyphRenderer {
	return &glyphRenderer{
		name:      name,
		variant:   Bitmap,
		fixedSize: fixedSize,
		newFace:   opentypeFace(f),
		covers:    sfntCovers(f, fixedSize),
	}
}

// builtin is the last-resort monochrome font. It has no emoji coverage and
// substitutes a text smiley instead of failing.
func builtin() *glyphRenderer {
	face := basicfont.Face7x13
	return &glyphRenderer{
		name:      "basicfont-7x13",
		variant:   Bitmap,
		fixedSize: face.Height,
		newFace: func(float64) (font.Face, error) {
			return face, nil
		},
		covers: func(glyph string) error {
			for _, r := range visibleRunes(glyph) {
				if _, ok := face.GlyphAdvance(r); !ok {
					return fmt.Errorf("%w: %q in %s", ErrGlyphUnsupported, r, "basicfont-7x13")
				}
			}
			return nil
		},
		substitute: fallbackText,
	}
}

func (g *glyphRenderer) Name() string {
	return g.name
}

func (g *glyphRenderer) Variant() Variant {
	return g.variant
}

func (g *glyphRenderer) Draw(dst draw.Image, glyph string, center image.Point, size int) error {
	if size <= 0 {
		return fmt.Errorf("fonts: invalid size %d", size)
	}

	text := string(visibleRunes(glyph))
	if err := g.covers(text); err != nil {
		if g.substitute == "" {
			return err
		}
		text = g.substitute
	}
	if text == "" {
		return fmt.Errorf("%w: empty glyph", ErrGlyphUnsupported)
	}

	if g.variant == Vector {
		face, err := g.newFace(float64(size))
		if err != nil {
			return err
		}
		defer face.Close()
		drawCentered(dst, face, text, center)
		return nil
	}

	return g.drawScaled(dst, text, center, size)
}

// drawScaled draws at the fixed size onto a transparent layer twice the fixed
// size, then resamples the layer so that fixedSize maps to size
func (g *glyphRenderer) drawScaled(dst draw.Image, text string, center image.Point, size int) error {
	face, err := g.newFace(float64(g.fixedSize))
	if err != nil {
		return err
	}
	defer face.Close()

	side := 2 * g.fixedSize
	if w := font.MeasureString(face, text).Ceil(); w > g.fixedSize {
		side = 2 * w
	}
	layer := image.NewRGBA(image.Rect(0, 0, side, side))
	drawCentered(layer, face, text, image.Pt(side/2, side/2))

	half := side * size / g.fixedSize / 2
	target := image.Rect(center.X-half, center.Y-half, center.X+half, center.Y+half)
	xdraw.CatmullRom.Scale(dst, target, layer, layer.Bounds(), xdraw.Over, nil)
	return nil
}

// drawCentered draws text so its ink bounds are centered on center
func drawCentered(dst draw.Image, face font.Face, text string, center image.Point) {
	bounds, _ := font.BoundString(face, text)
	w := bounds.Max.X - bounds.Min.X
	h := bounds.Max.Y - bounds.Min.Y

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(GlyphColor),
		Face: face,
	}
	d.Dot = fixed.Point26_6{
		X: fixed.I(center.X) - w/2 - bounds.Min.X,
		Y: fixed.I(center.Y) - h/2 - bounds.Min.Y,
	}
	d.DrawString(text)
}

func opentypeFace(f *sfnt.Font) func(size float64) (font.Face, error) {
	return func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}
}

// sfntCovers checks that every visible rune maps to an outline glyph.
// Colored bitmap glyphs cannot be rasterized and count as unsupported.
func sfntCovers(f *sfnt.Font, ppem int) func(glyph string) error {
	return func(glyph string) error {
		var buf sfnt.Buffer
		for _, r := range visibleRunes(glyph) {
			idx, err := f.GlyphIndex(&buf, r)
			if err != nil {
				return fmt.Errorf("%w: %q: %v", ErrGlyphUnsupported, r, err)
			}
			if idx == 0 {
				return fmt.Errorf("%w: %q has no glyph", ErrGlyphUnsupported, r)
			}
			if _, err := f.LoadGlyph(&buf, idx, fixed.I(ppem), nil); err != nil {
				return fmt.Errorf("%w: %q: %v", ErrGlyphUnsupported, r, err)
			}
		}
		return nil
	}
}

// visibleRunes drops variation selectors and skin tone modifiers, which have
// no ink of their own. A ZWJ sequence is reduced to its first component since
// fonts here cannot form the ligature and would draw the parts side by side.
func visibleRunes(glyph string) []rune {
	runes := make([]rune, 0, len(glyph))
	for _, r := range glyph {
		switch {
		case r == zeroWidthJoiner:
			return runes
		case r >= 0xFE00 && r <= 0xFE0F, r >= 0x1F3FB && r <= 0x1F3FF:
			continue
		}
		runes = append(runes, r)
	}
	return runes
}
