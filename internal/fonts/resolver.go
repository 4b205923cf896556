// Package fonts locates a font that can draw emoji glyphs and renders them
// onto images. Resolution happens once; the resolved Renderer is read-only
// and safe for concurrent use.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// ErrGlyphUnsupported is returned by Draw when the font cannot render a glyph
var ErrGlyphUnsupported = errors.New("fonts: glyph not supported")

// Candidate is a font file to try. FixedSize > 0 marks a font that only
// rasterizes at that pixel size (embedded bitmap glyphs).
type Candidate struct {
	Path      string
	FixedSize int
}

// ProbeGlyph is the default glyph a candidate must draw to be accepted
const ProbeGlyph = '😊'

// DefaultCandidates returns well-known emoji font locations across platforms,
// most preferred first
func DefaultCandidates() []Candidate {
	return []Candidate{
		// Linux
		{Path: "/usr/share/fonts/truetype/noto/NotoEmoji-Regular.ttf"},
		{Path: "/usr/share/fonts/noto/NotoEmoji-Regular.ttf"},
		{Path: "/usr/share/fonts/truetype/noto/NotoColorEmoji.ttf", FixedSize: 109},
		{Path: "/usr/share/fonts/noto/NotoColorEmoji.ttf", FixedSize: 109},
		{Path: "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"},
		// Windows
		{Path: "C:/Windows/Fonts/seguiemj.ttf"},
		{Path: "C:/Windows/Fonts/NotoColorEmoji.ttf", FixedSize: 109},
		{Path: "C:/Windows/Fonts/seguisym.ttf"},
		// macOS
		{Path: "/System/Library/Fonts/Apple Color Emoji.ttc", FixedSize: 160},
	}
}

// Resolver picks the first loadable candidate that covers ProbeGlyph and
// falls back to a built-in monochrome font when none does.
type Resolver struct {
	// Probe must be drawable by a candidate for it to be accepted
	Probe rune

	candidates []Candidate

	once     sync.Once
	renderer Renderer
}

// NewResolver creates a resolver over candidates, tried in order
func NewResolver(candidates []Candidate) *Resolver {
	return &Resolver{Probe: ProbeGlyph, candidates: candidates}
}

// Resolve returns the renderer, loading fonts on first call only. It never fails.
func (r *Resolver) Resolve() Renderer {
	r.once.Do(func() {
		for _, c := range r.candidates {
			renderer, err := load(c, r.Probe)
			if err != nil {
				log.Debug(log.Fields{"path": c.Path, "error": err.Error()}, "font candidate skipped")
				continue
			}
			log.Info(log.Fields{"path": c.Path, "variant": renderer.Variant().String()}, "emoji font resolved")
			r.renderer = renderer
			return
		}

		log.Warn(log.Fields{"candidates": len(r.candidates)}, "no emoji font found, using built-in font")
		r.renderer = builtin()
	})
	return r.renderer
}

var (
	sharedMu       sync.Mutex
	sharedResolver *Resolver
)

// Shared returns the process-wide renderer. The first call resolves fonts with
// extra paths tried before DefaultCandidates; later calls ignore the argument.
func Shared(extra ...string) Renderer {
	sharedMu.Lock()
	if sharedResolver == nil {
		var candidates []Candidate
		for _, p := range extra {
			if p != "" {
				candidates = append(candidates, Candidate{Path: p})
			}
		}
		sharedResolver = NewResolver(append(candidates, DefaultCandidates()...))
	}
	r := sharedResolver
	sharedMu.Unlock()

	return r.Resolve()
}

func load(c Candidate, probe rune) (Renderer, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, err
	}

	f, err := parse(c.Path, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.Path, err)
	}

	name := filepath.Base(c.Path)
	var renderer *glyphRenderer
	if c.FixedSize > 0 {
		renderer = newBitmap(name, f, c.FixedSize)
	} else {
		renderer = newVector(name, f)
	}

	if err := renderer.covers(string(probe)); err != nil {
		return nil, err
	}
	return renderer, nil
}

func parse(path string, data []byte) (*sfnt.Font, error) {
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}
