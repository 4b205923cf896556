package compositor

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
)

// Selection is what a preview needs to know about the caller's choice
type Selection interface {
	IsSelected(id int) bool
	HoverID() (int, bool)
}

type boxStyle struct {
	color     color.RGBA
	thickness int
}

var (
	hoveredStyle    = boxStyle{color: color.RGBA{R: 255, G: 255, B: 0, A: 255}, thickness: 4}
	selectedStyle   = boxStyle{color: color.RGBA{R: 255, G: 0, B: 0, A: 255}, thickness: 3}
	unselectedStyle = boxStyle{color: color.RGBA{R: 0, G: 255, B: 0, A: 255}, thickness: 2}
	labelText       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	labelFont      = gocv.FontHersheySimplex
	labelScale     = 0.7
	labelThickness = 2
	labelPad       = 4
)

// Preview returns a copy of img with every face outlined according to its
// state and labelled #id. Hovered and selected faces are drawn last so their
// outlines stay on top.
func Preview(img gocv.Mat, faces []detector.Face, sel Selection) gocv.Mat {
	out := img.Clone()

	hover, hasHover := 0, false
	if sel != nil {
		hover, hasHover = sel.HoverID()
	}

	styleOf := func(id int) (boxStyle, int) {
		switch {
		case hasHover && id == hover:
			return hoveredStyle, 2
		case sel != nil && sel.IsSelected(id):
			return selectedStyle, 1
		default:
			return unselectedStyle, 0
		}
	}

	for pass := 0; pass < 3; pass++ {
		for _, f := range faces {
			style, layer := styleOf(f.ID)
			if layer != pass {
				continue
			}
			box := f.BoundingBox.Clamp(out.Cols(), out.Rows())
			if box.Empty() {
				continue
			}
			gocv.Rectangle(&out, box.Rect(), style.color, style.thickness)
			drawLabel(&out, fmt.Sprintf("#%d", f.ID), box, style.color)
		}
	}

	return out
}

// drawLabel puts text on a filled background above the box, or just inside
// its top edge when there is no room above
func drawLabel(img *gocv.Mat, text string, box detector.BoundingBox, background color.RGBA) {
	size := gocv.GetTextSize(text, labelFont, labelScale, labelThickness)
	w := size.X + 2*labelPad
	h := size.Y + 2*labelPad

	top := box.Y1 - h
	if top < 0 {
		top = box.Y1
	}
	rect := image.Rect(box.X1, top, box.X1+w, top+h)

	gocv.Rectangle(img, rect, background, -1)
	gocv.PutText(img, text, image.Pt(rect.Min.X+labelPad, rect.Max.Y-labelPad),
		labelFont, labelScale, labelText, labelThickness)
}
