package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/fonts"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// emojiScale sizes a glyph relative to the larger box side
const emojiScale = 1.2

// ParseEmoji splits an override into grapheme clusters, ignoring whitespace
// and commas between them
func ParseEmoji(s string) []string {
	var glyphs []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		if strings.TrimFunc(cluster, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		}) == "" {
			continue
		}
		glyphs = append(glyphs, cluster)
	}
	return glyphs
}

// drawEmoji covers every region with a glyph. A face whose glyph cannot be
// drawn is logged and skipped.
func (c *Compositor) drawEmoji(img *gocv.Mat, regions []region, override string) error {
	if c.renderer == nil {
		return errors.New("no font renderer")
	}

	pool := c.pool
	if glyphs := ParseEmoji(override); len(glyphs) > 0 {
		pool = glyphs
	}

	canvas, err := toDrawable(*img)
	if err != nil {
		return fmt.Errorf("convert image for drawing: %w", err)
	}

	drawn := 0
	for _, r := range regions {
		glyph := pool[0]
		if len(pool) > 1 {
			glyph = pool[c.picker.IntN(len(pool))]
		}

		size := int(float64(max(r.rect.Dx(), r.rect.Dy())) * emojiScale)
		center := image.Pt((r.rect.Min.X+r.rect.Max.X)/2, (r.rect.Min.Y+r.rect.Max.Y)/2)

		if err := c.renderer.Draw(canvas, glyph, center, size); err != nil {
			fields := log.Fields{
				"target": r.index,
				"glyph":  glyph,
				"font":   c.renderer.Name(),
				"error":  err.Error(),
			}
			if errors.Is(err, fonts.ErrGlyphUnsupported) {
				log.Warn(fields, "glyph unsupported by font, face skipped")
			} else {
				log.Warn(fields, "emoji draw failed, face skipped")
			}
			continue
		}
		drawn++
	}

	if drawn == 0 {
		return nil
	}

	result, err := gocv.ImageToMatRGB(canvas)
	if err != nil {
		return fmt.Errorf("convert drawn image: %w", err)
	}
	defer result.Close()
	result.CopyTo(img)
	return nil
}

// toDrawable converts a BGR Mat into a mutable RGBA image
func toDrawable(m gocv.Mat) (draw.Image, error) {
	src, err := m.ToImage()
	if err != nil {
		return nil, err
	}
	if d, ok := src.(draw.Image); ok {
		return d, nil
	}
	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)
	return rgba, nil
}
